package models

import (
	"time"
)

// KeywordSource records where a keyword candidate was observed.
type KeywordSource string

const (
	KeywordSourceSearchConsole KeywordSource = "search_console"
	KeywordSourceResearch      KeywordSource = "research"
	KeywordSourceGap           KeywordSource = "gap"
)

// PrioritizedKeyword is a ranked keyword produced by the Scholar workflow.
type PrioritizedKeyword struct {
	Keyword    string        `json:"keyword" db:"keyword" validate:"required,max=120"`
	Volume     int           `json:"volume" db:"volume" validate:"min=0"`
	Difficulty int           `json:"difficulty" db:"difficulty" validate:"min=0,max=100"`
	Source     KeywordSource `json:"source" db:"source" validate:"omitempty,oneof=search_console research gap"`
	Priority   int           `json:"priority" db:"priority" validate:"min=0"`
	Intent     string        `json:"intent,omitempty" db:"intent"`
}

// ContentTopic seeds one Ghostwriter run.
type ContentTopic struct {
	Keyword         string `json:"keyword" validate:"required"`
	SuggestedTitle  string `json:"suggested_title" validate:"required"`
	Angle           string `json:"angle" validate:"required"`
	EstimatedVolume int    `json:"estimated_volume" validate:"min=0"`
}

// KeywordRecord is a persisted keyword row, unique per client and keyword.
type KeywordRecord struct {
	ClientID  string    `json:"client_id" db:"client_id"`
	RunID     string    `json:"run_id" db:"run_id"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	PrioritizedKeyword
}
