package vptree

import (
	"sync/atomic"
	"time"
)

// SearchOp identifies which of the three query types a metrics or log
// entry refers to.
type SearchOp int

const (
	SearchOpNearest SearchOp = iota
	SearchOpKNearest
	SearchOpWithin
)

// String returns a string representation of the SearchOp.
func (op SearchOp) String() string {
	switch op {
	case SearchOpNearest:
		return "Nearest"
	case SearchOpKNearest:
		return "KNearest"
	case SearchOpWithin:
		return "Within"
	default:
		return "Unknown"
	}
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordRebuild is called after each rebuild. itemCount is the number
	// of items indexed, duration the total build time, err nil on success.
	RecordRebuild(itemCount int, duration time.Duration, err error)

	// RecordSearch is called after each query of any type.
	RecordSearch(op SearchOp, duration time.Duration, err error)

	// RecordInsert is called after each insert or bulk extend.
	// count is the number of items added.
	RecordInsert(count int)

	// RecordRemove is called after each remove attempt.
	RecordRemove(removed bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRebuild(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordSearch(SearchOp, time.Duration, error) {}
func (NoopMetricsCollector) RecordInsert(int)                            {}
func (NoopMetricsCollector) RecordRemove(bool)                           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	RebuildCount      atomic.Int64
	RebuildErrors     atomic.Int64
	RebuildTotalNanos atomic.Int64
	SearchCount       atomic.Int64
	SearchErrors      atomic.Int64
	SearchTotalNanos  atomic.Int64
	InsertedItems     atomic.Int64
	RemoveCount       atomic.Int64
	RemoveMisses      atomic.Int64
}

// RecordRebuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRebuild(itemCount int, duration time.Duration, err error) {
	b.RebuildCount.Add(1)
	b.RebuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RebuildErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(op SearchOp, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(count int) {
	b.InsertedItems.Add(int64(count))
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(removed bool) {
	b.RemoveCount.Add(1)
	if !removed {
		b.RemoveMisses.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		RebuildCount:    b.RebuildCount.Load(),
		RebuildErrors:   b.RebuildErrors.Load(),
		RebuildAvgNanos: b.avg(&b.RebuildTotalNanos, &b.RebuildCount),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchAvgNanos:  b.avg(&b.SearchTotalNanos, &b.SearchCount),
		InsertedItems:   b.InsertedItems.Load(),
		RemoveCount:     b.RemoveCount.Load(),
		RemoveMisses:    b.RemoveMisses.Load(),
	}
}

func (b *BasicMetricsCollector) avg(total, count *atomic.Int64) int64 {
	c := count.Load()
	if c == 0 {
		return 0
	}
	return total.Load() / c
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	RebuildCount    int64
	RebuildErrors   int64
	RebuildAvgNanos int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	InsertedItems   int64
	RemoveCount     int64
	RemoveMisses    int64
}
