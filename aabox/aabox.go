package aabox

import (
	"math"

	"r3trace/affinetransform"
	"r3trace/ray"
	"r3trace/vmath/vec3"
)

type AABox struct {
	X, Y, Z ray.Span
}

// AccumZeroAABox is the empty box: growing it by anything yields that thing.
func AccumZeroAABox() AABox {
	return AABox{
		X: ray.Span{math.Inf(1), math.Inf(-1)},
		Y: ray.Span{math.Inf(1), math.Inf(-1)},
		Z: ray.Span{math.Inf(1), math.Inf(-1)},
	}
}

func FromCorners(a, b vec3.T) AABox {
	return GrowAABoxToPoint(GrowAABoxToPoint(AccumZeroAABox(), a), b)
}

func MinContainingAABox(a, b AABox) AABox {
	return AABox{
		X: ray.MinContainingSpan(a.X, b.X),
		Y: ray.MinContainingSpan(a.Y, b.Y),
		Z: ray.MinContainingSpan(a.Z, b.Z),
	}
}

func GrowAABoxToPoint(a AABox, b vec3.T) AABox {
	return MinContainingAABox(a, AABox{
		X: ray.Span{b[0], b[0]},
		Y: ray.Span{b[1], b[1]},
		Z: ray.Span{b[2], b[2]},
	})
}

func (a AABox) Axis(i int) ray.Span {
	switch i {
	case 0:
		return a.X
	case 1:
		return a.Y
	}
	return a.Z
}

func (a AABox) IsEmpty() bool {
	return a.X.Lo > a.X.Hi || a.Y.Lo > a.Y.Hi || a.Z.Lo > a.Z.Hi
}

func (a AABox) IsFinite() bool {
	return a.X.IsFinite() && a.Y.IsFinite() && a.Z.IsFinite()
}

func (a AABox) Center() vec3.T {
	return vec3.T{
		(a.X.Lo + a.X.Hi) / 2,
		(a.Y.Lo + a.Y.Hi) / 2,
		(a.Z.Lo + a.Z.Hi) / 2,
	}
}

func (a AABox) Diagonal() float64 {
	return vec3.T{a.X.Hi - a.X.Lo, a.Y.Hi - a.Y.Lo, a.Z.Hi - a.Z.Lo}.Norm()
}

func (a AABox) SurfaceArea() float64 {
	if a.IsEmpty() {
		return 0
	}
	xLen := a.X.Hi - a.X.Lo
	yLen := a.Y.Hi - a.Y.Lo
	zLen := a.Z.Hi - a.Z.Lo
	return 2 * (xLen*yLen + xLen*zLen + yLen*zLen)
}

func (a AABox) Transform(t affinetransform.AffineTransform) AABox {
	result := AccumZeroAABox()
	for _, x := range []float64{a.X.Lo, a.X.Hi} {
		for _, y := range []float64{a.Y.Lo, a.Y.Hi} {
			for _, z := range []float64{a.Z.Lo, a.Z.Hi} {
				result = GrowAABoxToPoint(result, affinetransform.TransformPoint(t, vec3.T{x, y, z}))
			}
		}
	}
	return result
}

// RayTestAABox clips the ray against the box slabs and returns the span of ray
// parameters inside the box, or a NaN span if the ray misses it.  The query's
// own segment is not considered.
func RayTestAABox(r ray.RaySegment, b AABox) ray.Span {
	cover := ray.Span{math.Inf(-1), math.Inf(1)}

	for i := 0; i < 3; i++ {
		slab := b.Axis(i)
		cur := ray.Span{
			(slab.Lo - r.TheRay.Point[i]) / r.TheRay.Slope[i],
			(slab.Hi - r.TheRay.Point[i]) / r.TheRay.Slope[i],
		}
		if cur.IsNaN() {
			// Ray parallel to the slab and lying exactly on a face.
			continue
		}
		if cur.Hi < cur.Lo {
			cur.Lo, cur.Hi = cur.Hi, cur.Lo
		}
		if cur.Lo > cover.Lo {
			cover.Lo = cur.Lo
		}
		if cur.Hi < cover.Hi {
			cover.Hi = cur.Hi
		}
		if cover.Lo > cover.Hi {
			return ray.NaNSpan()
		}
	}

	return cover
}

// RayHitsAABox reports whether any part of the query segment is inside b.
func RayHitsAABox(r ray.RaySegment, b AABox) bool {
	cover := RayTestAABox(r, b)
	if cover.IsNaN() {
		return false
	}
	return cover.Lo <= r.TheSegment.Hi && cover.Hi >= r.TheSegment.Lo
}
