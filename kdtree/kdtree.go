package kdtree

import (
	"math"
	"math/rand"

	"r3trace/aabox"
)

// trialsPerAxis is the number of candidate cuts sampled per axis when refining a
// node.
const trialsPerAxis = 5

type KDElement struct {
	// A handle back into some other storage array.
	Ref int

	// The bounds of this element.
	Bounds aabox.AABox
}

type KDNode struct {
	Bounds aabox.AABox

	Elements []KDElement

	LoChild *KDNode
	HiChild *KDNode
}

func boundsOf(elements []KDElement) aabox.AABox {
	box := aabox.AccumZeroAABox()
	for _, element := range elements {
		box = aabox.MinContainingAABox(box, element.Bounds)
	}
	return box
}

// refineViaSurfaceAreaHeuristic splits cur in two if some sampled cut lowers the
// expected cost of a ray query.  It reports whether a split happened.
func (cur *KDNode) refineViaSurfaceAreaHeuristic(splitCost, terminationThreshold float64, rng *rand.Rand) bool {
	parentArea := cur.Bounds.SurfaceArea()
	if parentArea <= 0 {
		parentArea = 1
	}

	bestObjective := math.Inf(1)
	var bestPreceding, bestSucceeding []KDElement

	for axis := 0; axis < 3; axis++ {
		for i := 0; i < trialsPerAxis; i++ {
			cutSpan := cur.Elements[rng.Intn(len(cur.Elements))].Bounds.Axis(axis)
			trialCut := (cutSpan.Lo + cutSpan.Hi) / 2

			preceding := []KDElement{}
			succeeding := []KDElement{}
			for _, element := range cur.Elements {
				span := element.Bounds.Axis(axis)
				if (span.Lo+span.Hi)/2 < trialCut {
					preceding = append(preceding, element)
				} else {
					succeeding = append(succeeding, element)
				}
			}
			if len(preceding) == 0 || len(succeeding) == 0 {
				continue
			}

			objective := splitCost +
				(float64(len(preceding))*boundsOf(preceding).SurfaceArea()+
					float64(len(succeeding))*boundsOf(succeeding).SurfaceArea())/parentArea

			if objective < bestObjective {
				bestObjective = objective
				bestPreceding = preceding
				bestSucceeding = succeeding
			}
		}
	}

	// Now we have a pretty good split, but we need to check that it's a
	// good-enough improvement over just not splitting.
	if bestPreceding == nil || bestObjective >= terminationThreshold*float64(len(cur.Elements)) {
		return false
	}

	cur.LoChild = &KDNode{
		Bounds:   boundsOf(bestPreceding),
		Elements: bestPreceding,
	}
	cur.HiChild = &KDNode{
		Bounds:   boundsOf(bestSucceeding),
		Elements: bestSucceeding,
	}

	// All of cur's elements have been divided among its children.
	cur.Elements = nil
	return true
}

type KDTree struct {
	Root *KDNode
}

func NewKDTree(elements []KDElement) *KDTree {
	return &KDTree{
		Root: &KDNode{
			Bounds:   boundsOf(elements),
			Elements: elements,
		},
	}
}

// RefineViaSurfaceAreaHeuristic recursively splits nodes while the sampled
// surface area heuristic says a split pays for itself.  Sampling uses a fixed
// seed, so the same elements always produce the same tree.
func (t *KDTree) RefineViaSurfaceAreaHeuristic(splitCost, threshold float64) {
	rng := rand.New(rand.NewSource(12345))

	workStack := []*KDNode{t.Root}
	for len(workStack) != 0 {
		cur := workStack[len(workStack)-1]
		workStack = workStack[:len(workStack)-1]

		if len(cur.Elements) < 2 {
			continue
		}

		if cur.refineViaSurfaceAreaHeuristic(splitCost, threshold, rng) {
			workStack = append(workStack, cur.LoChild, cur.HiChild)
		}
	}
}

// Depth returns the number of levels in the tree.
func (t *KDTree) Depth() int {
	var depth func(n *KDNode) int
	depth = func(n *KDNode) int {
		if n == nil {
			return 0
		}
		lo, hi := depth(n.LoChild), depth(n.HiChild)
		if hi > lo {
			lo = hi
		}
		return lo + 1
	}
	return depth(t.Root)
}

type KDSelector func(b aabox.AABox) bool

// KDVisitor is called with each candidate element reference.  Returning false
// ends the query.
type KDVisitor func(ref int) bool

// Query visits the references of every element whose enclosing node bounds
// pass selector.  The selector is re-evaluated as nodes are popped, so a
// visitor that narrows the selector prunes the rest of the walk.
func (t *KDTree) Query(selector KDSelector, visitor KDVisitor) {
	workStack := []*KDNode{t.Root}
	for len(workStack) != 0 {
		cur := workStack[len(workStack)-1]
		workStack = workStack[:len(workStack)-1]

		if !selector(cur.Bounds) {
			continue
		}

		for i := range cur.Elements {
			if !selector(cur.Elements[i].Bounds) {
				continue
			}
			if !visitor(cur.Elements[i].Ref) {
				return
			}
		}

		if cur.LoChild != nil {
			workStack = append(workStack, cur.LoChild)
		}
		if cur.HiChild != nil {
			workStack = append(workStack, cur.HiChild)
		}
	}
}
