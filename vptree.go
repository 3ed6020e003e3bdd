package vptree

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DistanceFunc computes the distance between two items.
//
// The function must be deterministic and satisfy the metric axioms:
// non-negativity, identity of indiscernibles, symmetry and the triangle
// inequality. Pruning correctness depends on the triangle inequality; the
// index trusts the function and does not verify the axioms at runtime. A
// returned error aborts the running operation and is propagated wrapped
// in a MetricError.
type DistanceFunc[T any] func(a, b T) (float64, error)

// Result pairs an item with its distance to the query point.
type Result[T any] struct {
	Item     T
	Distance float64
}

// Index is a vantage-point tree over a collection of items in an
// arbitrary metric space. It answers nearest-neighbor, k-nearest-neighbor
// and within-radius queries using triangle-inequality pruning.
//
// The tree is stored as a flat pre-order array without child pointers;
// adjacency is computed from array position and per-node subtree sizes.
// Mutations only mark the index stale: the array is rebuilt wholesale by
// Rebuild, never patched incrementally.
//
// Queries on a built index are safe to run concurrently with each other.
// Insert, Extend, Remove and Rebuild take exclusive access.
type Index[T any] struct {
	mu     sync.RWMutex
	items  []T
	nodes  []node
	metric DistanceFunc[T]
	stale  bool
	// gen counts mutations of the item set, letting Remove detect
	// concurrent changes between its scan and its delete.
	gen  uint64
	opts Options
}

// New creates an index over the given items. The items slice is copied;
// an empty or nil slice yields a valid empty index. The index starts
// stale: call Rebuild before querying, or enable AutoRebuild.
func New[T any](items []T, metric DistanceFunc[T], optFns ...func(o *Options)) (*Index[T], error) {
	if metric == nil {
		return nil, ErrNilMetric
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	return &Index[T]{
		items:  slices.Clone(items),
		metric: metric,
		stale:  true,
		opts:   opts,
	}, nil
}

// Len returns the number of items currently held, including items added
// since the last rebuild.
func (idx *Index[T]) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// IsStale reports whether the item set has changed since the last
// successful rebuild. A fresh index is stale until its first Rebuild.
func (idx *Index[T]) IsStale() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stale
}

// Rebuild replaces the tree array with one built from the current item
// set. On a metric error the previous array and the stale flag are left
// untouched. Rebuilding an empty index succeeds and yields an index that
// answers every query with no results.
func (idx *Index[T]) Rebuild(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.rebuildLocked(ctx)
}

func (idx *Index[T]) rebuildLocked(ctx context.Context) error {
	start := time.Now()

	b := &builder[T]{
		items:    idx.items,
		distance: idx.metric,
		seed:     idx.opts.Seed,
	}
	if idx.opts.BuildWorkers > 1 {
		// The calling goroutine partitions too, so only workers-1 extra
		// goroutines are admitted.
		b.workers = semaphore.NewWeighted(int64(idx.opts.BuildWorkers - 1))
	}

	nodes, err := b.run()

	idx.opts.Metrics.RecordRebuild(len(idx.items), time.Since(start), err)
	idx.opts.Logger.LogRebuild(ctx, len(idx.items), err)
	if err != nil {
		return err
	}

	idx.nodes = nodes
	idx.stale = false
	return nil
}

// Insert adds an item and marks the index stale.
func (idx *Index[T]) Insert(item T) {
	idx.mu.Lock()
	idx.items = append(idx.items, item)
	idx.stale = true
	idx.gen++
	idx.mu.Unlock()

	idx.opts.Metrics.RecordInsert(1)
	idx.opts.Logger.LogInsert(context.Background(), 1)
}

// Extend adds items in bulk and marks the index stale. Extending with no
// items is a no-op.
func (idx *Index[T]) Extend(items ...T) {
	if len(items) == 0 {
		return
	}

	idx.mu.Lock()
	idx.items = append(idx.items, items...)
	idx.stale = true
	idx.gen++
	idx.mu.Unlock()

	idx.opts.Metrics.RecordInsert(len(items))
	idx.opts.Logger.LogInsert(context.Background(), len(items))
}

// Remove deletes the first item for which match returns true and reports
// whether one was removed. A removal marks the index stale; if no item
// matches, the index is left as it was.
//
// match runs without any index lock held, so it may itself call index
// methods. If the item set changes while match is being evaluated, the
// scan starts over against the new item set.
func (idx *Index[T]) Remove(match func(item T) bool) bool {
	removed := false
	for {
		// The snapshot is cloned because a concurrent removal shifts the
		// live backing array in place.
		idx.mu.RLock()
		snapshot := slices.Clone(idx.items)
		gen := idx.gen
		idx.mu.RUnlock()

		target := -1
		for i, item := range snapshot {
			if match(item) {
				target = i
				break
			}
		}
		if target < 0 {
			break
		}

		idx.mu.Lock()
		if idx.gen != gen {
			// A concurrent mutation invalidated the scan; rescan.
			idx.mu.Unlock()
			continue
		}
		idx.items = slices.Delete(idx.items, target, target+1)
		idx.stale = true
		idx.gen++
		idx.mu.Unlock()
		removed = true
		break
	}

	idx.opts.Metrics.RecordRemove(removed)
	idx.opts.Logger.LogRemove(context.Background(), removed)
	return removed
}

// Nearest returns the single closest item to q, or nil if the index is
// empty. A stale index fails with ErrStaleIndex unless AutoRebuild is
// enabled.
func (idx *Index[T]) Nearest(ctx context.Context, q T) (*Result[T], error) {
	var res *Result[T]
	err := idx.query(ctx, SearchOpNearest, func() (int, error) {
		c := newNearestCollector()
		if err := idx.traverse(q, c); err != nil {
			return 0, err
		}
		if !c.found {
			return 0, nil
		}
		res = &Result[T]{Item: idx.items[c.ref], Distance: c.best}
		return 1, nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// KNearest returns up to k items closest to q, ascending by distance.
// Fewer than k are returned when the index holds fewer items; k <= 0
// yields no results.
func (idx *Index[T]) KNearest(ctx context.Context, q T, k int) ([]Result[T], error) {
	var out []Result[T]
	err := idx.query(ctx, SearchOpKNearest, func() (int, error) {
		if k <= 0 {
			return 0, nil
		}
		if k > len(idx.items) {
			k = len(idx.items)
		}
		c := newKNNCollector(k)
		if err := idx.traverse(q, c); err != nil {
			return 0, err
		}
		found := c.results()
		out = make([]Result[T], len(found))
		for i, item := range found {
			out[i] = Result[T]{Item: idx.items[item.Ref], Distance: item.Distance}
		}
		return len(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Within returns every item whose distance to q is at most radius,
// ascending by distance. The result may be empty.
func (idx *Index[T]) Within(ctx context.Context, q T, radius float64) ([]Result[T], error) {
	var out []Result[T]
	err := idx.query(ctx, SearchOpWithin, func() (int, error) {
		c := newRadiusCollector(radius)
		if err := idx.traverse(q, c); err != nil {
			return 0, err
		}
		sort.Slice(c.items, func(i, j int) bool {
			return c.items[i].Distance < c.items[j].Distance
		})
		out = make([]Result[T], len(c.items))
		for i, item := range c.items {
			out[i] = Result[T]{Item: idx.items[item.Ref], Distance: item.Distance}
		}
		return len(out), nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// query wraps a single search with staleness handling, metrics and
// logging. run executes under at least a read lock on a non-stale index
// and returns the number of results produced.
func (idx *Index[T]) query(ctx context.Context, op SearchOp, run func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	results, err := idx.runQuery(ctx, run)
	idx.opts.Metrics.RecordSearch(op, time.Since(start), err)
	idx.opts.Logger.LogSearch(ctx, op.String(), results, err)
	return err
}

func (idx *Index[T]) runQuery(ctx context.Context, run func() (int, error)) (int, error) {
	idx.mu.RLock()
	if !idx.stale {
		defer idx.mu.RUnlock()
		return run()
	}
	idx.mu.RUnlock()

	if !idx.opts.AutoRebuild {
		return 0, ErrStaleIndex
	}

	// Auto-rebuild holds the write lock across the rebuild and the query
	// so no concurrent mutation can wedge in between.
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.stale {
		if err := idx.rebuildLocked(ctx); err != nil {
			return 0, err
		}
	}
	return run()
}
