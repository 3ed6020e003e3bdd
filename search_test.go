package vptree

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(21))

	for _, n := range []int{1, 2, 10, 100, 500} {
		points := randomPoints(rng, n)
		idx, err := New(points, euclidean)
		require.NoError(t, err)
		require.NoError(t, idx.Rebuild(ctx))

		for _, q := range randomPoints(rng, 50) {
			want := bruteForce(t, points, q)

			best, err := idx.Nearest(ctx, q)
			require.NoError(t, err)
			require.NotNil(t, best)
			// Equal-distance ties may resolve to a different item, but the
			// distance must match the linear-scan minimum exactly.
			assert.Equal(t, want[0].Distance, best.Distance)
		}
	}
}

func TestKNearestMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(23))

	points := randomPoints(rng, 400)
	idx, err := New(points, euclidean)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx))

	for _, k := range []int{1, 3, 10, 50, 400} {
		for _, q := range randomPoints(rng, 25) {
			want := bruteForce(t, points, q)

			results, err := idx.KNearest(ctx, q, k)
			require.NoError(t, err)
			require.Len(t, results, min(k, len(points)))
			assert.Equal(t, distancesOf(want[:len(results)]), distancesOf(results))
		}
	}
}

func TestWithinMatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(29))

	points := randomPoints(rng, 400)
	idx, err := New(points, euclidean)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx))

	for _, radius := range []float64{0, 1, 10, 40, 200} {
		for _, q := range randomPoints(rng, 25) {
			var want []point
			for _, r := range bruteForce(t, points, q) {
				if r.Distance <= radius {
					want = append(want, r.Item)
				}
			}

			results, err := idx.Within(ctx, q, radius)
			require.NoError(t, err)

			got := make([]point, len(results))
			for i, r := range results {
				got[i] = r.Item
				if i > 0 {
					assert.GreaterOrEqual(t, r.Distance, results[i-1].Distance, "results not sorted")
				}
			}
			assert.ElementsMatch(t, want, got)
		}
	}
}

// TestWithinBoundaryInclusive pins the radius comparison: items at
// exactly the boundary distance are included.
func TestWithinBoundaryInclusive(t *testing.T) {
	ctx := context.Background()

	idx, err := New([]float64{0, 3, 6}, absDiff)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx))

	results, err := idx.Within(ctx, 0, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 0.0, results[0].Item)
	assert.Equal(t, 3.0, results[1].Item)
}

func TestParallelBuildMatchesSequential(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(31))

	// Large enough that the right subtree clears the worker handoff
	// threshold.
	points := randomPoints(rng, 5000)
	queries := randomPoints(rng, 20)

	sequential, err := New(points, euclidean)
	require.NoError(t, err)
	require.NoError(t, sequential.Rebuild(ctx))

	parallel, err := New(points, euclidean, func(o *Options) {
		o.BuildWorkers = 4
	})
	require.NoError(t, err)
	require.NoError(t, parallel.Rebuild(ctx))

	require.Len(t, parallel.nodes, len(points))
	require.Equal(t, uint32(len(points)), checkSubtree(t, parallel, 0))

	for _, q := range queries {
		want, err := sequential.KNearest(ctx, q, 10)
		require.NoError(t, err)
		got, err := parallel.KNearest(ctx, q, 10)
		require.NoError(t, err)
		assert.Equal(t, distancesOf(want), distancesOf(got))
	}
}

func TestConcurrentQueries(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(37))

	points := randomPoints(rng, 300)
	idx, err := New(points, euclidean)
	require.NoError(t, err)
	require.NoError(t, idx.Rebuild(ctx))

	queries := randomPoints(rng, 40)
	want := make([][]float64, len(queries))
	for i, q := range queries {
		results, err := idx.KNearest(ctx, q, 5)
		require.NoError(t, err)
		want[i] = distancesOf(results)
	}

	// Read-only queries against a built index need no external
	// synchronization.
	done := make(chan error, len(queries))
	for i, q := range queries {
		go func(i int, q point) {
			results, err := idx.KNearest(ctx, q, 5)
			if err == nil {
				for j, r := range results {
					if r.Distance != want[i][j] {
						err = assert.AnError
						break
					}
				}
			}
			done <- err
		}(i, q)
	}
	for range queries {
		require.NoError(t, <-done)
	}
}
