package kdtree

import (
	"sort"
	"testing"

	"r3trace/aabox"
	"r3trace/vmath/vec3"

	"github.com/google/go-cmp/cmp"
)

func gridElements(n int) []KDElement {
	elements := []KDElement{}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lo := vec3.T{float64(i) * 2, float64(j) * 2, 0}
			hi := vec3.AddVV(lo, vec3.T{1, 1, 1})
			elements = append(elements, KDElement{
				Ref:    len(elements),
				Bounds: aabox.FromCorners(lo, hi),
			})
		}
	}
	return elements
}

func queryRefs(tree *KDTree, selector KDSelector) []int {
	refs := []int{}
	tree.Query(selector, func(ref int) bool {
		refs = append(refs, ref)
		return true
	})
	sort.Ints(refs)
	return refs
}

func TestRefineSplitsLargeSets(t *testing.T) {
	tree := NewKDTree(gridElements(10))
	tree.RefineViaSurfaceAreaHeuristic(1.0, 0.9)

	if tree.Depth() < 3 {
		t.Errorf("Expected a refined tree over 100 scattered boxes, got depth %d", tree.Depth())
	}
}

func TestQueryMatchesBruteForce(t *testing.T) {
	elements := gridElements(8)
	tree := NewKDTree(elements)
	tree.RefineViaSurfaceAreaHeuristic(1.0, 0.9)

	query := aabox.FromCorners(vec3.T{3, 3, 0}, vec3.T{7.5, 5, 1})
	overlaps := func(b aabox.AABox) bool {
		return !(b.X.Lo > query.X.Hi || b.X.Hi < query.X.Lo ||
			b.Y.Lo > query.Y.Hi || b.Y.Hi < query.Y.Lo ||
			b.Z.Lo > query.Z.Hi || b.Z.Hi < query.Z.Lo)
	}

	want := []int{}
	for _, e := range elements {
		if overlaps(e.Bounds) {
			want = append(want, e.Ref)
		}
	}

	if diff := cmp.Diff(queryRefs(tree, overlaps), want); diff != "" {
		t.Errorf("Tree query disagrees with brute force; diff (-got +want)\n%s", diff)
	}
}

func TestQueryStopsEarly(t *testing.T) {
	tree := NewKDTree(gridElements(4))
	tree.RefineViaSurfaceAreaHeuristic(1.0, 0.9)

	visits := 0
	tree.Query(func(aabox.AABox) bool { return true }, func(int) bool {
		visits++
		return false
	})
	if visits != 1 {
		t.Errorf("Visitor returning false should end the query; got %d visits", visits)
	}
}

func TestRefineIsDeterministic(t *testing.T) {
	a := NewKDTree(gridElements(6))
	a.RefineViaSurfaceAreaHeuristic(1.0, 0.9)
	b := NewKDTree(gridElements(6))
	b.RefineViaSurfaceAreaHeuristic(1.0, 0.9)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Two refinements of the same input differ; diff (-a +b)\n%s", diff)
	}
}
