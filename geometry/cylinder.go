package geometry

import (
	"math"

	"r3trace/aabox"
	"r3trace/contact"
	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// capContact intersects the query with the horizontal disk of the given radius
// centered on c.  up selects which way the cap faces.
func capContact(query ray.RaySegment, c vec3.T, radius float64, up bool) contact.UpdateInfo {
	dy := query.TheRay.Slope[1]
	if dy == 0 {
		return contact.Miss()
	}
	t := (c[1] - query.TheRay.Point[1]) / dy
	if !query.TheSegment.Contains(t) {
		return contact.Miss()
	}
	p := query.TheRay.Eval(t)
	dx, dz := p[0]-c[0], p[2]-c[2]
	if dx*dx+dz*dz > radius*radius {
		return contact.Miss()
	}
	n := vec3.T{0, -1, 0}
	if up {
		n = vec3.T{0, 1, 0}
	}
	return contact.UpdateInfo{
		T:        t,
		Position: p,
		Normal:   n,
		Mtl2:     vec2.T{0.5 + dx/(2*radius), 0.5 + dz/(2*radius)},
	}
}

func nearer(a, b contact.UpdateInfo) contact.UpdateInfo {
	if a.IsMiss() {
		return b
	}
	if b.IsMiss() || a.T <= b.T {
		return a
	}
	return b
}

// Cylinder is a capped cylinder whose axis is parallel to +Y.  It spans
// Center.y - Height/2 to Center.y + Height/2.
type Cylinder struct {
	Center vec3.T
	Radius float64
	Height float64
}

func (c *Cylinder) GetAABox() aabox.AABox {
	ext := vec3.T{c.Radius, c.Height / 2, c.Radius}
	return aabox.FromCorners(vec3.SubVV(c.Center, ext), vec3.AddVV(c.Center, ext))
}

func (c *Cylinder) RayInto(query ray.RaySegment) contact.UpdateInfo {
	yLo := c.Center[1] - c.Height/2
	yHi := c.Center[1] + c.Height/2

	best := nearer(
		capContact(query, vec3.T{c.Center[0], yHi, c.Center[2]}, c.Radius, true),
		capContact(query, vec3.T{c.Center[0], yLo, c.Center[2]}, c.Radius, false),
	)

	p, d := query.TheRay.Point, query.TheRay.Slope
	ox, oz := p[0]-c.Center[0], p[2]-c.Center[2]
	a := d[0]*d[0] + d[2]*d[2]
	b := 2 * (ox*d[0] + oz*d[2])
	cc := ox*ox + oz*oz - c.Radius*c.Radius
	disc := b*b - 4*a*cc
	if a == 0 || disc < 0 {
		return best
	}

	sq := math.Sqrt(disc)
	for _, t := range []float64{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
		if !query.TheSegment.Contains(t) {
			continue
		}
		hit := query.TheRay.Eval(t)
		if hit[1] < yLo || hit[1] > yHi {
			continue
		}
		nx, nz := (hit[0]-c.Center[0])/c.Radius, (hit[2]-c.Center[2])/c.Radius
		best = nearer(best, contact.UpdateInfo{
			T:        t,
			Position: hit,
			Normal:   vec3.T{nx, 0, nz},
			Mtl2:     vec2.T{0.5 + math.Atan2(nx, nz)/(2*math.Pi), (hit[1] - yLo) / c.Height},
		})
	}

	return best
}
