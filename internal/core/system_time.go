package core

import (
	"fmt"
	"time"
)

// CockroachDB historical read functions for AS OF SYSTEM TIME.
// See https://www.cockroachlabs.com/docs/stable/as-of-system-time

// FollowerReadTimestamp reads at a timestamp old enough to be served by the
// closest replica: follower_read_timestamp().
func FollowerReadTimestamp() Expression {
	return NewExp("follower_read_timestamp()")
}

// WithMinTimestamp performs a bounded staleness read no older than t:
// with_min_timestamp(t).
func WithMinTimestamp(t time.Time) Expression {
	return NewExp("with_min_timestamp(?)", t)
}

// WithMinTimestampNearestOnly is WithMinTimestamp with the nearest_only flag:
// with_min_timestamp(t, nearestOnly).
func WithMinTimestampNearestOnly(t time.Time, nearestOnly bool) Expression {
	return NewExp("with_min_timestamp(?, ?)", t, nearestOnly)
}

// WithMaxStaleness performs a bounded staleness read at most d old:
// with_max_staleness(d). The interval is bound as text.
func WithMaxStaleness(d time.Duration) Expression {
	return NewExp("with_max_staleness(?)", interval(d))
}

// WithMaxStalenessNearestOnly is WithMaxStaleness with the nearest_only flag.
func WithMaxStalenessNearestOnly(d time.Duration, nearestOnly bool) Expression {
	return NewExp("with_max_staleness(?, ?)", interval(d), nearestOnly)
}

// interval formats d as a CockroachDB INTERVAL literal.
func interval(d time.Duration) string {
	return fmt.Sprintf("%d microseconds", d.Microseconds())
}
