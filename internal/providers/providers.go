// Package providers holds the external research services the workflows
// consume. Their heuristics are out of scope; only the contracts matter here.
package providers

import (
	"context"
	"time"

	"seo-agents/backend/pkg/models"
)

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Trailing returns the days-long range ending the day before now.
func Trailing(now time.Time, days int) DateRange {
	end := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -1)
	return DateRange{Start: end.AddDate(0, 0, -(days - 1)), End: end}
}

// QueryStat is one search query observed for a client's site.
type QueryStat struct {
	Query       string `json:"query"`
	Clicks      int    `json:"clicks"`
	Impressions int    `json:"impressions"`
}

// KeywordMetric is a keyword with research metrics. Difficulty is nil when
// the source does not report one.
type KeywordMetric struct {
	Keyword    string `json:"keyword"`
	Volume     int    `json:"volume"`
	Difficulty *int   `json:"difficulty,omitempty"`
}

// SearchPerformance reports how a client's site performs in search.
type SearchPerformance interface {
	TopQueries(ctx context.Context, client models.Client, r DateRange) ([]QueryStat, error)
}

// KeywordResearch looks up keyword metrics.
type KeywordResearch interface {
	BulkKeywordResearch(ctx context.Context, seeds []string) ([]KeywordMetric, error)
	CompetitorKeywords(ctx context.Context, domain string) ([]KeywordMetric, error)
}

// Credentials checks that a client's third-party credentials still work.
type Credentials interface {
	Refresh(ctx context.Context, client models.Client) error
}
