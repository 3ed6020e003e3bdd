package vptree

import (
	"math/rand"
	"sync"

	"golang.org/x/sync/semaphore"
)

// spawnCutoff is the minimum subtree size worth handing to a build worker.
// Below this the goroutine handoff costs more than the partitioning work.
const spawnCutoff = 1024

// buildFrame describes one pending partitioning step: the working range
// ids[lo:hi] and the pre-order slot dst its subtree root is written to.
type buildFrame struct {
	lo, hi int
	dst    int
}

// builder performs one full partitioning pass over the item set, producing
// the pre-order node array that queries traverse. A builder is used for a
// single run and then discarded.
type builder[T any] struct {
	items    []T
	distance DistanceFunc[T]
	seed     int64
	nodes    []node

	// workers limits the number of extra goroutines partitioning
	// independent subtrees. nil means sequential build.
	workers *semaphore.Weighted

	wg  sync.WaitGroup
	mu  sync.Mutex
	err error
}

// run builds the complete node array. On error the partial array is
// discarded; the caller keeps whatever array it had before.
func (b *builder[T]) run() ([]node, error) {
	n := len(b.items)
	b.nodes = make([]node, n)
	if n == 0 {
		return b.nodes, nil
	}

	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	// Distance scratch aligned with ids: dists[i] is the distance from the
	// current vantage point to items[ids[i]]. Subtrees operate on disjoint
	// ranges, so workers can share both slices without synchronization.
	dists := make([]float64, n)

	b.buildSubtree(ids, dists, buildFrame{lo: 0, hi: n, dst: 0})
	b.wg.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	return b.nodes, nil
}

// buildSubtree partitions the subtree rooted at root iteratively with an
// explicit stack, keeping memory bounded regardless of item count. Right
// subtrees large enough to be worth it are handed to a worker goroutine
// when one is available; otherwise they stay on the local stack.
func (b *builder[T]) buildSubtree(ids []uint32, dists []float64, root buildFrame) {
	stack := make([]buildFrame, 0, 64)
	stack = append(stack, root)

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if b.failed() {
			return
		}

		left, right, err := b.step(ids, dists, f)
		if err != nil {
			b.fail(err)
			return
		}

		if right.hi > right.lo {
			if b.workers != nil && right.hi-right.lo >= spawnCutoff && b.workers.TryAcquire(1) {
				b.wg.Add(1)
				go func(fr buildFrame) {
					defer b.wg.Done()
					defer b.workers.Release(1)
					b.buildSubtree(ids, dists, fr)
				}(right)
			} else {
				stack = append(stack, right)
			}
		}
		if left.hi > left.lo {
			stack = append(stack, left)
		}
	}
}

// step emits the node for ids[f.lo:f.hi] at slot f.dst and returns the two
// child ranges. The vantage point is the first item of the range; the
// threshold is the median distance from it to the remaining items. Items
// at exactly the median distance go to the left (near) subtree.
func (b *builder[T]) step(ids []uint32, dists []float64, f buildFrame) (left, right buildFrame, err error) {
	count := f.hi - f.lo
	vantage := ids[f.lo]

	if count == 1 {
		b.nodes[f.dst] = node{item: vantage, size: 1}
		return buildFrame{}, buildFrame{}, nil
	}

	for i := f.lo + 1; i < f.hi; i++ {
		d, derr := b.distance(b.items[vantage], b.items[ids[i]])
		if derr != nil {
			return buildFrame{}, buildFrame{}, &MetricError{cause: derr}
		}
		dists[i] = d
	}

	// Pivot choices are derived from the seed and the frame's pre-order
	// slot alone, never from which goroutine processes the frame, so a
	// rebuild of the same item set reproduces the same tree regardless of
	// how many build workers run.
	rng := rand.New(rand.NewSource(b.seed ^ int64(f.dst)<<17))

	rest := count - 1
	restIDs := ids[f.lo+1 : f.hi]
	restDists := dists[f.lo+1 : f.hi]

	threshold := selectNth(rng, restIDs, restDists, (rest-1)/2)
	split := partitionNear(restIDs, restDists, threshold)

	b.nodes[f.dst] = node{
		item:      vantage,
		left:      uint32(split),
		size:      uint32(count),
		threshold: threshold,
	}

	left = buildFrame{lo: f.lo + 1, hi: f.lo + 1 + split, dst: f.dst + 1}
	right = buildFrame{lo: f.lo + 1 + split, hi: f.hi, dst: f.dst + 1 + split}
	return left, right, nil
}

func (b *builder[T]) fail(err error) {
	b.mu.Lock()
	if b.err == nil {
		b.err = err
	}
	b.mu.Unlock()
}

func (b *builder[T]) failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err != nil
}

// selectNth reorders ids/dists in tandem so that the kth smallest distance
// ends up at position k, and returns that distance. Randomized Hoare
// selection, expected linear time in len(dists).
func selectNth(rng *rand.Rand, ids []uint32, dists []float64, k int) float64 {
	lo, hi := 0, len(dists)-1
	for lo < hi {
		p := pivotPartition(ids, dists, lo, hi, lo+rng.Intn(hi-lo+1))
		switch {
		case p == k:
			return dists[k]
		case p < k:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
	return dists[k]
}

// pivotPartition partitions dists[lo:hi+1] around the pivot at index p and
// returns the pivot's final position.
func pivotPartition(ids []uint32, dists []float64, lo, hi, p int) int {
	pivot := dists[p]
	swapPair(ids, dists, p, hi)
	store := lo
	for i := lo; i < hi; i++ {
		if dists[i] < pivot {
			swapPair(ids, dists, i, store)
			store++
		}
	}
	swapPair(ids, dists, store, hi)
	return store
}

// partitionNear moves every entry with distance <= threshold to the front
// and returns the near-group size. At least one entry qualifies because
// the threshold is itself an achieved distance.
func partitionNear(ids []uint32, dists []float64, threshold float64) int {
	store := 0
	for i := range dists {
		if dists[i] <= threshold {
			swapPair(ids, dists, i, store)
			store++
		}
	}
	return store
}

func swapPair(ids []uint32, dists []float64, i, j int) {
	ids[i], ids[j] = ids[j], ids[i]
	dists[i], dists[j] = dists[j], dists[i]
}
