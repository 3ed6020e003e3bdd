package vptree

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleIndex is returned by queries when the item set has changed
	// since the last rebuild. Call Rebuild first, or enable AutoRebuild.
	ErrStaleIndex = errors.New("stale index: rebuild required")

	// ErrNilMetric is returned when an index is created without a
	// distance function.
	ErrNilMetric = errors.New("distance function must not be nil")
)

// MetricError wraps a failure reported by the caller-supplied distance
// function during a build or query. The index never suppresses these; the
// operation is aborted and the previous state is kept.
//
// The original error can be accessed via errors.Unwrap.
type MetricError struct {
	cause error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric invocation failed: %v", e.cause)
}

func (e *MetricError) Unwrap() error { return e.cause }
