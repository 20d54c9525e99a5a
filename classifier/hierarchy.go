package classifier

import "fmt"

// Hierarchy corrects activations over a tree-shaped label space so every
// node carries the probability of its whole path from the root.
type Hierarchy struct {
	parents []int
	leaf    []bool
}

// NewHierarchy validates parents and builds a Hierarchy. parents[i] is -1
// for a root and must otherwise be smaller than i.
func NewHierarchy(parents []int) (*Hierarchy, error) {
	leaf := make([]bool, len(parents))
	for i := range leaf {
		leaf[i] = true
	}
	for i, p := range parents {
		if p < -1 || p >= i {
			return nil, fmt.Errorf("node %d has parent %d", i, p)
		}
		if p >= 0 {
			leaf[p] = false
		}
	}
	return &Hierarchy{parents: parents, leaf: leaf}, nil
}

// Len returns the number of nodes.
func (h *Hierarchy) Len() int {
	return len(h.parents)
}

// Apply multiplies each node's conditional probability by its parent's
// already corrected probability, in place. With onlyLeaves, internal nodes
// are zeroed afterwards.
func (h *Hierarchy) Apply(predictions []float32, onlyLeaves bool) {
	n := min(len(predictions), len(h.parents))
	for j := 0; j < n; j++ {
		if p := h.parents[j]; p >= 0 {
			predictions[j] *= predictions[p]
		}
	}
	if onlyLeaves {
		for j := 0; j < n; j++ {
			if !h.leaf[j] {
				predictions[j] = 0
			}
		}
	}
}
