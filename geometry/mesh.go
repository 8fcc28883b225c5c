package geometry

import (
	"math"

	"r3trace/aabox"
	"r3trace/contact"
	"r3trace/kdtree"
	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// Triangle is a single flat face.  Its outward normal follows the
// counter-clockwise winding of V.  When HasUV is false, surface coordinates
// fall back to the barycentric coordinates of the hit.
type Triangle struct {
	V     [3]vec3.T
	UV    [3]vec2.T
	HasUV bool
}

func (tri *Triangle) GetAABox() aabox.AABox {
	box := aabox.FromCorners(tri.V[0], tri.V[1])
	return aabox.GrowAABoxToPoint(box, tri.V[2])
}

func (tri *Triangle) Normal() vec3.T {
	return vec3.Normalize(vec3.CProd(vec3.SubVV(tri.V[1], tri.V[0]), vec3.SubVV(tri.V[2], tri.V[0])))
}

func (tri *Triangle) RayInto(query ray.RaySegment) contact.UpdateInfo {
	e1 := vec3.SubVV(tri.V[1], tri.V[0])
	e2 := vec3.SubVV(tri.V[2], tri.V[0])

	pvec := vec3.CProd(query.TheRay.Slope, e2)
	det := vec3.IProd(e1, pvec)
	if math.Abs(det) < 1e-12 {
		return contact.Miss()
	}
	invDet := 1 / det

	tvec := vec3.SubVV(query.TheRay.Point, tri.V[0])
	u := vec3.IProd(tvec, pvec) * invDet
	if u < 0 || u > 1 {
		return contact.Miss()
	}

	qvec := vec3.CProd(tvec, e1)
	v := vec3.IProd(query.TheRay.Slope, qvec) * invDet
	if v < 0 || u+v > 1 {
		return contact.Miss()
	}

	t := vec3.IProd(e2, qvec) * invDet
	if !query.TheSegment.Contains(t) {
		return contact.Miss()
	}

	mtl2 := vec2.T{u, v}
	if tri.HasUV {
		w := 1 - u - v
		mtl2 = vec2.T{
			w*tri.UV[0][0] + u*tri.UV[1][0] + v*tri.UV[2][0],
			w*tri.UV[0][1] + u*tri.UV[1][1] + v*tri.UV[2][1],
		}
	}

	return contact.UpdateInfo{
		T:        t,
		Position: query.TheRay.Eval(t),
		Normal:   tri.Normal(),
		Mtl2:     mtl2,
	}
}

// Mesh is a triangle soup indexed by its own kd-tree.
type Mesh struct {
	Triangles []Triangle

	bounds aabox.AABox
	tree   *kdtree.KDTree
}

// NewMesh takes ownership of tris and builds the acceleration structure.
func NewMesh(tris []Triangle) *Mesh {
	elements := make([]kdtree.KDElement, len(tris))
	bounds := aabox.AccumZeroAABox()
	for i := range tris {
		b := tris[i].GetAABox()
		elements[i] = kdtree.KDElement{Ref: i, Bounds: b}
		bounds = aabox.MinContainingAABox(bounds, b)
	}

	tree := kdtree.NewKDTree(elements)
	tree.RefineViaSurfaceAreaHeuristic(1.0, 0.9)

	return &Mesh{
		Triangles: tris,
		bounds:    bounds,
		tree:      tree,
	}
}

func (m *Mesh) GetAABox() aabox.AABox {
	return m.bounds
}

func (m *Mesh) RayInto(query ray.RaySegment) contact.UpdateInfo {
	best := contact.Miss()

	// Every hit shortens the query, so nodes beyond it are skipped.
	selector := func(b aabox.AABox) bool {
		return aabox.RayHitsAABox(query, b)
	}
	visitor := func(ref int) bool {
		info := m.Triangles[ref].RayInto(query)
		if !info.IsMiss() {
			best = info
			query.TheSegment.Hi = info.T
		}
		return true
	}
	m.tree.Query(selector, visitor)

	return best
}
