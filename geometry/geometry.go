package geometry

import (
	"math"

	"r3trace/aabox"
	"r3trace/contact"
	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// Shape is a surface described in the coordinates of the scene node that owns
// it.
type Shape interface {
	GetAABox() aabox.AABox

	// RayInto returns the closest contact with Lo <= T < Hi, or contact.Miss().
	// The contact normal points out of the shape.
	RayInto(query ray.RaySegment) contact.UpdateInfo
}

// closest picks the first root of a quadratic that lies within the query span.
func closest(span ray.Span, roots ...float64) (float64, bool) {
	best := math.Inf(1)
	for _, t := range roots {
		if span.Contains(t) && t < best {
			best = t
		}
	}
	return best, !math.IsInf(best, 1)
}

// Sphere is a Geometry that represents a sphere.
type Sphere struct {
	Center vec3.T
	Radius float64
}

func (s *Sphere) GetAABox() aabox.AABox {
	r := vec3.T{s.Radius, s.Radius, s.Radius}
	return aabox.FromCorners(vec3.SubVV(s.Center, r), vec3.AddVV(s.Center, r))
}

func (s *Sphere) RayInto(query ray.RaySegment) contact.UpdateInfo {
	oc := vec3.SubVV(query.TheRay.Point, s.Center)
	b := vec3.IProd(query.TheRay.Slope, oc)
	c := vec3.IProd(oc, oc) - s.Radius*s.Radius

	disc := b*b - c
	if disc < 0 {
		return contact.Miss()
	}
	sq := math.Sqrt(disc)

	t, ok := closest(query.TheSegment, -b-sq, -b+sq)
	if !ok {
		return contact.Miss()
	}

	p := query.TheRay.Eval(t)
	n := vec3.DivVS(vec3.SubVV(p, s.Center), s.Radius)

	return contact.UpdateInfo{
		T:        t,
		Position: p,
		Normal:   n,
		Mtl2: vec2.T{
			0.5 + math.Atan2(n[0], n[2])/(2*math.Pi),
			math.Acos(math.Max(-1, math.Min(1, n[1]))) / math.Pi,
		},
	}
}

// Box is an axis-aligned box given by two opposite corners.
type Box struct {
	Min, Max vec3.T
}

func (b *Box) GetAABox() aabox.AABox {
	return aabox.FromCorners(b.Min, b.Max)
}

func (b *Box) RayInto(query ray.RaySegment) contact.UpdateInfo {
	entry := ray.Span{math.Inf(-1), math.Inf(1)}
	entryAxis, exitAxis := -1, -1

	for i := 0; i < 3; i++ {
		lo := (b.Min[i] - query.TheRay.Point[i]) / query.TheRay.Slope[i]
		hi := (b.Max[i] - query.TheRay.Point[i]) / query.TheRay.Slope[i]
		if math.IsNaN(lo) || math.IsNaN(hi) {
			continue
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		if lo > entry.Lo {
			entry.Lo = lo
			entryAxis = i
		}
		if hi < entry.Hi {
			entry.Hi = hi
			exitAxis = i
		}
		if entry.Lo > entry.Hi {
			return contact.Miss()
		}
	}

	t, axis, sign := entry.Lo, entryAxis, -1.0
	if !query.TheSegment.Contains(t) {
		// Starting inside the box: the ray leaves through the far face.
		t, axis, sign = entry.Hi, exitAxis, 1.0
		if !query.TheSegment.Contains(t) {
			return contact.Miss()
		}
	}
	if axis == -1 {
		return contact.Miss()
	}

	n := vec3.T{}
	if query.TheRay.Slope[axis] > 0 {
		n[axis] = sign
	} else {
		n[axis] = -sign
	}

	p := query.TheRay.Eval(t)
	u, v := (axis+1)%3, (axis+2)%3
	return contact.UpdateInfo{
		T:        t,
		Position: p,
		Normal:   n,
		Mtl2: vec2.T{
			(p[u] - b.Min[u]) / (b.Max[u] - b.Min[u]),
			(p[v] - b.Min[v]) / (b.Max[v] - b.Min[v]),
		},
	}
}
