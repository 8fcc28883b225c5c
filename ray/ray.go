package ray

import (
	"math"

	"r3trace/affinetransform"
	"r3trace/vmath/mat33"
	"r3trace/vmath/vec3"
)

// Epsilon offsets secondary and shadow rays off the surface that spawned them.
const Epsilon = 1e-4

type Span struct {
	Lo, Hi float64
}

func NaNSpan() Span {
	return Span{math.NaN(), math.NaN()}
}

// Forward is the span covering everything in front of a ray's origin.
func Forward() Span {
	return Span{Epsilon, math.Inf(1)}
}

func SpanOverlaps(a, b Span) bool {
	return !(a.Lo > b.Hi || a.Hi <= b.Lo)
}

func MinContainingSpan(a, b Span) Span {
	min := a.Lo
	if b.Lo < a.Lo {
		min = b.Lo
	}

	max := a.Hi
	if b.Hi > a.Hi {
		max = b.Hi
	}

	return Span{min, max}
}

func (s Span) Contains(t float64) bool {
	return s.Lo <= t && t < s.Hi
}

func (s Span) IsFinite() bool {
	return !math.IsInf(s.Lo, 0) && !math.IsInf(s.Hi, 0)
}

func (s Span) IsNaN() bool {
	return math.IsNaN(s.Lo) || math.IsNaN(s.Hi)
}

// Ray is a half-line.  Slope is kept at unit length so that ray parameters are
// distances.
type Ray struct {
	Point vec3.T
	Slope vec3.T
}

func (r *Ray) Eval(t float64) vec3.T {
	return vec3.T{
		r.Point[0] + t*r.Slope[0],
		r.Point[1] + t*r.Slope[1],
		r.Point[2] + t*r.Slope[2],
	}
}

type RaySegment struct {
	TheRay     Ray
	TheSegment Span
}

// Between returns the segment from a to b, shortened by Epsilon at both ends.
func Between(a, b vec3.T) RaySegment {
	d := vec3.SubVV(b, a)
	l := d.Norm()
	return RaySegment{
		TheRay:     Ray{Point: a, Slope: vec3.DivVS(d, l)},
		TheSegment: Span{Epsilon, l - Epsilon},
	}
}

// Transform carries the segment into the space of a.  The slope is
// renormalized, so the segment bounds are scaled to keep describing the same
// points.
func (b *RaySegment) Transform(a affinetransform.AffineTransform) RaySegment {
	result := RaySegment{}
	result.TheRay.Point = vec3.AddVV(mat33.MulMV(a.Linear, b.TheRay.Point), a.Offset)
	result.TheRay.Slope = mat33.MulMV(a.Linear, b.TheRay.Slope)
	scaleFactor := result.TheRay.Slope.Norm()
	result.TheRay.Slope = vec3.DivVS(result.TheRay.Slope, scaleFactor)
	result.TheSegment.Lo = scaleFactor * b.TheSegment.Lo
	result.TheSegment.Hi = scaleFactor * b.TheSegment.Hi
	return result
}
