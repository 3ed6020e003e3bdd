package vptree

// node is one entry of the flat, pre-order tree array.
//
// No child pointers are stored. Because median splits do not produce a
// perfect binary tree, heap-style 2i+1/2i+2 arithmetic cannot locate
// children; instead every node records how many items its left subtree
// holds. The left child of node i (if any) sits at i+1, the right child
// at i+1+left.
type node struct {
	item      uint32  // offset of the vantage point in Index.items
	left      uint32  // item count of the left (near) subtree
	size      uint32  // total items in this subtree: 1 + left + right
	threshold float64 // median distance from the vantage point
}

// right returns the item count of the right (far) subtree.
func (n *node) right() uint32 {
	return n.size - 1 - n.left
}
