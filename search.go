package vptree

import (
	"math"

	"github.com/hupe1980/vptree/internal/queue"
)

// searchFrame is one pending subtree visit: the node index and a lower
// bound on the distance from the query to any item inside that subtree,
// derived from the triangle inequality at the parent.
type searchFrame struct {
	idx   uint32
	bound float64
}

// collector accumulates candidates for one query and exposes the current
// search radius: the distance beyond which no candidate can improve the
// result. All three query types share the same traversal and differ only
// in their collector.
type collector interface {
	// consider offers one candidate item and its distance to the query.
	consider(ref uint32, d float64)

	// radius returns the current search radius.
	radius() float64
}

// traverse walks the node array with an explicit stack, pruning subtrees
// whose lower bound exceeds the collector's radius. Bounds are checked at
// pop time, so a subtree pushed before the radius shrank is still pruned
// correctly when it surfaces.
func (idx *Index[T]) traverse(q T, c collector) error {
	if len(idx.nodes) == 0 {
		return nil
	}

	stack := make([]searchFrame, 0, 64)
	stack = append(stack, searchFrame{idx: 0})

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.bound > c.radius() {
			continue
		}

		n := &idx.nodes[f.idx]
		d, err := idx.metric(q, idx.items[n.item])
		if err != nil {
			return &MetricError{cause: err}
		}
		c.consider(n.item, d)

		if n.size == 1 {
			continue
		}

		leftIdx := f.idx + 1
		rightIdx := f.idx + 1 + n.left

		// Items at exactly the threshold live in the left subtree, so the
		// query belongs to the near side when d <= threshold. The far side
		// is pushed first with its boundary distance and revisited only if
		// the radius still reaches across when it pops.
		if d <= n.threshold {
			if n.right() > 0 {
				stack = append(stack, searchFrame{idx: rightIdx, bound: n.threshold - d})
			}
			if n.left > 0 {
				stack = append(stack, searchFrame{idx: leftIdx})
			}
		} else {
			if n.left > 0 {
				stack = append(stack, searchFrame{idx: leftIdx, bound: d - n.threshold})
			}
			if n.right() > 0 {
				stack = append(stack, searchFrame{idx: rightIdx})
			}
		}
	}

	return nil
}

// nearestCollector tracks the single closest item seen so far. The search
// radius shrinks to the best distance, tightening pruning as the
// traversal proceeds.
type nearestCollector struct {
	ref   uint32
	best  float64
	found bool
}

func newNearestCollector() *nearestCollector {
	return &nearestCollector{best: math.Inf(1)}
}

func (c *nearestCollector) consider(ref uint32, d float64) {
	if d < c.best || !c.found {
		c.ref = ref
		c.best = d
		c.found = true
	}
}

func (c *nearestCollector) radius() float64 {
	return c.best
}

// knnCollector keeps the k closest items in a bounded max-heap. Until the
// heap fills, the radius stays infinite; afterwards it is the distance of
// the current worst member, which each admission tightens.
type knnCollector struct {
	k    int
	heap *queue.Max
}

func newKNNCollector(k int) *knnCollector {
	return &knnCollector{k: k, heap: queue.NewMax(k)}
}

func (c *knnCollector) consider(ref uint32, d float64) {
	if c.heap.Len() < c.k {
		c.heap.Push(queue.Item{Ref: ref, Distance: d})
		return
	}
	if top, ok := c.heap.Top(); ok && d < top.Distance {
		c.heap.Pop()
		c.heap.Push(queue.Item{Ref: ref, Distance: d})
	}
}

func (c *knnCollector) radius() float64 {
	if c.heap.Len() < c.k {
		return math.Inf(1)
	}
	top, _ := c.heap.Top()
	return top.Distance
}

// results drains the heap into an ascending-by-distance slice.
func (c *knnCollector) results() []queue.Item {
	out := make([]queue.Item, c.heap.Len())
	for i := c.heap.Len() - 1; i >= 0; i-- {
		item, _ := c.heap.Pop()
		out[i] = item
	}
	return out
}

// radiusCollector gathers every item within a fixed radius. The radius
// never shrinks, so the traversal visits every subtree the query ball
// touches.
type radiusCollector struct {
	r     float64
	items []queue.Item
}

func newRadiusCollector(r float64) *radiusCollector {
	return &radiusCollector{r: r}
}

func (c *radiusCollector) consider(ref uint32, d float64) {
	if d <= c.r {
		c.items = append(c.items, queue.Item{Ref: ref, Distance: d})
	}
}

func (c *radiusCollector) radius() float64 {
	return c.r
}
