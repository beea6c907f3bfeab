package domain

import "time"

// SummarySnapshot is the record published after each successful dataset load.
type SummarySnapshot struct {
	ID        string    `json:"id"`
	Summary   Summary   `json:"summary"`
	Rows      int       `json:"rows"`
	FetchedAt time.Time `json:"fetched_at"`
}
