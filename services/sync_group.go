package services

import "time"

// Sync groups bucket concurrent searchers into coarse time windows so their
// matching runs get evaluated together. The group paces when a searcher
// re-evaluates; it never partitions the candidate pool.
const (
	syncWindowMs   = 120_000 // 2-minute bucket
	syncBoundaryMs = 30_000
	syncBufferMs   = 5_000
)

// SyncGroupFor returns the sync-group id for a point in time.
func SyncGroupFor(now time.Time) int64 {
	return now.UnixMilli() / syncWindowMs
}

// SyncDelay returns how long a searcher in the given group waits before its
// matching evaluation runs. A boundary already in the past means evaluate
// immediately.
func SyncDelay(group int64, now time.Time) time.Duration {
	offsetMs := (group+1)*syncBoundaryMs - now.UnixMilli() + syncBufferMs
	if offsetMs < 0 {
		offsetMs = 0
	}
	return time.Duration(offsetMs) * time.Millisecond
}

// Remaining computes how much of a server-anchored countdown is left. Tickers
// and reconnecting clients recompute this instead of trusting a live timer
// handle, so countdowns survive restarts.
func Remaining(anchor time.Time, duration time.Duration, now time.Time) time.Duration {
	left := duration - now.Sub(anchor)
	if left < 0 {
		return 0
	}
	return left
}
