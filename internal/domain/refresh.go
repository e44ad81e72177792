package domain

import "time"

// ProgressFunc reports detail-fetch progress during a refresh.
// Called after every batch: (20, 4312), (40, 4312), ...
type ProgressFunc func(fetched, listed int)

// RefreshStats summarizes one run of the fetch pipeline.
type RefreshStats struct {
	Collections       int // Collections processed
	CollectionsFailed int // Collections whose item listing failed
	Listed            int // Item ids listed across all collections
	FetchFailed       int // Per-item detail fetches that failed
	Dropped           int // Records removed by the quality filter
	Kept              int // Records returned
	Duration          time.Duration
}
