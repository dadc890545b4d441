package scholar

import (
	"sort"

	"seo-agents/backend/internal/providers"
	"seo-agents/backend/internal/repository"
	"seo-agents/backend/pkg/models"
)

// GapFilter bounds which competitor keywords count as gaps.
type GapFilter struct {
	MinVolume     int
	MaxDifficulty int
}

// GapAnalysis returns competitor keywords the client neither ranks for nor
// already researched, filtered by volume and difficulty, deduplicated
// case-insensitively and sorted by volume. Keywords without a difficulty are
// treated as 0.
func GapAnalysis(observed []providers.QueryStat, researched, competitor []providers.KeywordMetric, f GapFilter) []models.PrioritizedKeyword {
	known := make(map[string]struct{}, len(observed)+len(researched))
	for _, q := range observed {
		known[repository.NormalizeKeyword(q.Query)] = struct{}{}
	}
	for _, r := range researched {
		known[repository.NormalizeKeyword(r.Keyword)] = struct{}{}
	}

	best := make(map[string]models.PrioritizedKeyword)
	for _, c := range competitor {
		key := repository.NormalizeKeyword(c.Keyword)
		if key == "" {
			continue
		}
		if _, ok := known[key]; ok {
			continue
		}
		difficulty := 0
		if c.Difficulty != nil {
			difficulty = *c.Difficulty
		}
		if c.Volume < f.MinVolume || difficulty > f.MaxDifficulty {
			continue
		}
		if prev, ok := best[key]; ok && prev.Volume >= c.Volume {
			continue
		}
		best[key] = models.PrioritizedKeyword{
			Keyword:    key,
			Volume:     c.Volume,
			Difficulty: difficulty,
			Source:     models.KeywordSourceGap,
		}
	}

	out := make([]models.PrioritizedKeyword, 0, len(best))
	for _, kw := range best {
		out = append(out, kw)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Volume != out[j].Volume {
			return out[i].Volume > out[j].Volume
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}
