package vptree

import "fmt"

// Options contains configuration options for an index.
type Options struct {
	// BuildWorkers caps the number of goroutines partitioning independent
	// subtrees during a rebuild. After a split the two halves share no
	// mutable state, so they can be built in parallel. 1 (the default)
	// builds sequentially.
	BuildWorkers int

	// AutoRebuild rebuilds a stale index transparently before answering a
	// query instead of failing with ErrStaleIndex. Convenient, but query
	// latency then occasionally includes a full O(n log n) build; latency-
	// sensitive callers should rebuild explicitly.
	AutoRebuild bool

	// Seed drives pivot selection during median partitioning. Rebuilding
	// the same item set with the same seed reproduces the same tree,
	// whatever the BuildWorkers setting.
	Seed int64

	// Logger receives structured operation logs. Defaults to a no-op
	// logger.
	Logger *Logger

	// Metrics receives operation metrics. Defaults to
	// NoopMetricsCollector.
	Metrics MetricsCollector
}

// DefaultOptions contains the default configuration options for an index.
var DefaultOptions = Options{
	BuildWorkers: 1,
	Seed:         1,
}

func (o *Options) validate() error {
	if o.BuildWorkers < 1 {
		return fmt.Errorf("vptree: build workers must be >= 1, got %d", o.BuildWorkers)
	}
	return nil
}
