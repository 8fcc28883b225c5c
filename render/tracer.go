package render

import (
	"math"
	"math/rand"

	"r3trace/light"
	"r3trace/material"
	"r3trace/ray"
	"r3trace/scene"
	"r3trace/vmath/rgb"
	"r3trace/vmath/vec3"
)

// rayTracer is the per-row shading state.  It is not safe for concurrent use.
type rayTracer struct {
	scene *scene.Scene
	opts  *Options
	rng   *rand.Rand
}

// trace returns the radiance arriving along r.  depth counts the bounces taken
// to reach r.
func (rt *rayTracer) trace(r ray.Ray, depth int) rgb.T {
	hit := rt.scene.Intersect(ray.RaySegment{TheRay: r, TheSegment: ray.Forward()})
	if !hit.Hit {
		return rt.scene.Background
	}
	return rt.shade(r, &hit, depth)
}

func (rt *rayTracer) shade(r ray.Ray, hit *scene.Intersection, depth int) rgb.T {
	m := hit.Material
	if m == nil {
		m = material.Default()
	}

	p := hit.Info.Position
	n := hit.Info.Normal

	// Shade the side of the surface the ray arrived from.
	entering := vec3.IProd(r.Slope, n) < 0
	if !entering {
		n = vec3.Neg(n)
	}
	view := vec3.Neg(r.Slope)

	kd := m.Diffuse(material.MaterialCoords{Mtl2: hit.Info.Mtl2, Mtl3: hit.Local})

	color := rgb.Add(m.Emission, rgb.Mul(rt.scene.Ambient, m.Ka))
	for _, l := range rt.scene.Lights {
		color = rgb.Add(color, rt.direct(l, p, n, view, kd, m))
	}

	if depth >= rt.opts.MaxDepth {
		return color
	}

	if m.IsReflective() {
		reflected := ray.Ray{Point: p, Slope: vec3.Reflect(r.Slope, n)}
		color = rgb.Add(color, rgb.Mul(m.Ks, rt.trace(reflected, depth+1)))
	}

	if m.IsTransmissive() {
		ior := m.IndexOfRefraction
		if ior <= 0 {
			ior = 1
		}
		eta := ior
		if entering {
			eta = 1 / ior
		}
		dir, ok := vec3.Refract(r.Slope, n, eta)
		if !ok {
			dir = vec3.Reflect(r.Slope, n)
		}
		color = rgb.Add(color, rgb.Mul(m.Kt, rt.trace(ray.Ray{Point: p, Slope: dir}, depth+1)))
	}

	return color
}

// direct is the Phong contribution of one light at p, with shadowing.
func (rt *rayTracer) direct(l light.Light, p, n, view vec3.T, kd rgb.T, m *material.Material) rgb.T {
	total := rgb.T{}
	for _, s := range l.Sample(p, rt.opts.NumDistributedRaysPerIntersection, rt.rng) {
		if s.Radiance.IsBlack() {
			continue
		}
		nDotL := vec3.IProd(n, s.Direction)
		if nDotL <= 0 {
			continue
		}

		shadow := ray.RaySegment{
			TheRay:     ray.Ray{Point: p, Slope: s.Direction},
			TheSegment: ray.Span{Lo: ray.Epsilon, Hi: s.Distance - ray.Epsilon},
		}
		if rt.scene.Occluded(shadow) {
			continue
		}

		brdf := rgb.Scale(kd, nDotL)
		// Checked before Pow, which gives 1 for a zero base and exponent.
		reflected := vec3.Reflect(vec3.Neg(s.Direction), n)
		if vDotR := vec3.IProd(view, reflected); vDotR > 0 {
			brdf = rgb.Add(brdf, rgb.Scale(m.Ks, math.Pow(vDotR, m.Shininess)))
		}
		total = rgb.Add(total, rgb.Mul(s.Radiance, brdf))
	}
	return total
}
