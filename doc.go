// Package vptree provides a nearest-neighbor search index for arbitrary
// metric spaces.
//
// A vantage-point tree partitions items by their distance to chosen
// reference points and answers three query types with triangle-inequality
// pruning:
//
//   - Nearest: the single closest item
//   - KNearest: the k closest items, ascending by distance
//   - Within: every item inside a fixed radius, ascending by distance
//
// The distance function is supplied by the caller and may be anything
// that satisfies the metric axioms (Euclidean, Hamming, edit distance,
// great-circle, ...). The tree is stored as a flat pre-order array with
// per-node subtree sizes instead of child pointers, keeping per-node
// overhead to a few words.
//
// # Quick Start
//
//	ctx := context.Background()
//
//	euclidean := func(a, b [2]float64) (float64, error) {
//	    return math.Hypot(a[0]-b[0], a[1]-b[1]), nil
//	}
//
//	idx, err := vptree.New(points, euclidean)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := idx.Rebuild(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	best, err := idx.Nearest(ctx, query)
//	top10, err := idx.KNearest(ctx, query, 10)
//	nearby, err := idx.Within(ctx, query, 25.0)
//
// # Mutation and Staleness
//
// Insert, Extend and Remove only record the change and mark the index
// stale; the tree is rebuilt wholesale by Rebuild, never patched in
// place. Queries against a stale index fail with ErrStaleIndex so that
// build cost stays predictable. Callers who prefer convenience over
// predictable latency can opt into transparent rebuilds:
//
//	idx, err := vptree.New(points, euclidean, func(o *vptree.Options) {
//	    o.AutoRebuild = true
//	})
//
// # Parallel Builds
//
// After each partition step the two subtrees share no mutable state, so
// large builds can fan out across cores:
//
//	idx, err := vptree.New(points, euclidean, func(o *vptree.Options) {
//	    o.BuildWorkers = runtime.NumCPU()
//	})
package vptree
