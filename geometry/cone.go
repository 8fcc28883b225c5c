package geometry

import (
	"math"

	"r3trace/aabox"
	"r3trace/contact"
	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// Cone has its base disk at Center.y - Height/2 and its apex at
// Center.y + Height/2, with the axis parallel to +Y.
type Cone struct {
	Center vec3.T
	Radius float64
	Height float64
}

func (c *Cone) GetAABox() aabox.AABox {
	ext := vec3.T{c.Radius, c.Height / 2, c.Radius}
	return aabox.FromCorners(vec3.SubVV(c.Center, ext), vec3.AddVV(c.Center, ext))
}

func (c *Cone) RayInto(query ray.RaySegment) contact.UpdateInfo {
	yBase := c.Center[1] - c.Height/2
	yApex := c.Center[1] + c.Height/2

	best := capContact(query, vec3.T{c.Center[0], yBase, c.Center[2]}, c.Radius, false)

	// Side surface: (x-cx)^2 + (z-cz)^2 = k^2 (y-yApex)^2 for y in [yBase, yApex].
	k2 := (c.Radius / c.Height) * (c.Radius / c.Height)
	p, d := query.TheRay.Point, query.TheRay.Slope
	ox, oy, oz := p[0]-c.Center[0], p[1]-yApex, p[2]-c.Center[2]

	a := d[0]*d[0] + d[2]*d[2] - k2*d[1]*d[1]
	b := 2 * (ox*d[0] + oz*d[2] - k2*oy*d[1])
	cc := ox*ox + oz*oz - k2*oy*oy

	var roots []float64
	if math.Abs(a) < 1e-12 {
		if b != 0 {
			roots = append(roots, -cc/b)
		}
	} else {
		disc := b*b - 4*a*cc
		if disc >= 0 {
			sq := math.Sqrt(disc)
			roots = append(roots, (-b-sq)/(2*a), (-b+sq)/(2*a))
		}
	}

	for _, t := range roots {
		if !query.TheSegment.Contains(t) {
			continue
		}
		hit := query.TheRay.Eval(t)
		if hit[1] < yBase || hit[1] > yApex {
			continue
		}
		rx, rz := hit[0]-c.Center[0], hit[2]-c.Center[2]
		n := vec3.T{rx, -k2 * (hit[1] - yApex), rz}
		if n.IsZero() {
			n = vec3.T{0, 1, 0}
		}
		best = nearer(best, contact.UpdateInfo{
			T:        t,
			Position: hit,
			Normal:   vec3.Normalize(n),
			Mtl2:     vec2.T{0.5 + math.Atan2(rx, rz)/(2*math.Pi), (hit[1] - yBase) / c.Height},
		})
	}

	return best
}
