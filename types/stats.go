package types

import "time"

// AccrualStats summarises the presence collector since process start.
type AccrualStats struct {
	LastTick       time.Time `json:"last_tick"`
	TotalTicks     int64     `json:"total_ticks"`
	FailedTicks    int64     `json:"failed_ticks"`
	SkippedTicks   int64     `json:"skipped_ticks"`
	LastObserved   int       `json:"last_observed"`
	AccruedSeconds float64   `json:"accrued_seconds"`
	StartTime      time.Time `json:"start_time"`
}
