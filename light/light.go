// Package light holds the scene's light sources.  Every light answers the same
// question: from a surface point, which directions lead to light, how far away
// is it, and how much arrives.
package light

import (
	"math"
	"math/rand"

	"r3trace/vmath/rgb"
	"r3trace/vmath/vec3"
)

type Sample struct {
	// Unit vector from the shaded point toward the light.
	Direction vec3.T

	// Distance to the sampled point on the light.  +Inf for lights at
	// infinity.
	Distance float64

	// Radiance arriving at the shaded point, before shadowing.
	Radiance rgb.T
}

type Light interface {
	// Sample returns light samples for the surface point p.  Area lights return
	// n samples whose radiances sum to the light's total contribution; other
	// lights return exactly one.
	Sample(p vec3.T, n int, rng *rand.Rand) []Sample
}

// Attenuation is the falloff Constant + Linear*d + Quadratic*d^2.
type Attenuation struct {
	Constant, Linear, Quadratic float64
}

func (a Attenuation) At(d float64) float64 {
	denom := a.Constant + a.Linear*d + a.Quadratic*d*d
	if denom == 0 {
		return 1
	}
	return denom
}

// Directional is a light at infinity.  Direction is the way the light travels.
type Directional struct {
	Color     rgb.T
	Direction vec3.T
}

func (l *Directional) Sample(p vec3.T, n int, rng *rand.Rand) []Sample {
	return []Sample{{
		Direction: vec3.Normalize(vec3.Neg(l.Direction)),
		Distance:  math.Inf(1),
		Radiance:  l.Color,
	}}
}

type Point struct {
	Color    rgb.T
	Position vec3.T
	Attenuation
}

func towards(p, q vec3.T) (vec3.T, float64) {
	d := vec3.SubVV(q, p)
	dist := d.Norm()
	return vec3.DivVS(d, dist), dist
}

func (l *Point) Sample(p vec3.T, n int, rng *rand.Rand) []Sample {
	dir, dist := towards(p, l.Position)
	return []Sample{{
		Direction: dir,
		Distance:  dist,
		Radiance:  rgb.Scale(l.Color, 1/l.At(dist)),
	}}
}

// Spot is a point light restricted to a cone around Direction.
type Spot struct {
	Color     rgb.T
	Position  vec3.T
	Direction vec3.T
	Attenuation

	// Half-angle of the cone, in radians.
	CutoffAngle float64
	// Exponent applied to the cosine of the angle off the axis.
	DropoffRate float64
}

func (l *Spot) Sample(p vec3.T, n int, rng *rand.Rand) []Sample {
	dir, dist := towards(p, l.Position)
	s := Sample{Direction: dir, Distance: dist}

	cosTheta := -vec3.IProd(dir, vec3.Normalize(l.Direction))
	if cosTheta < math.Cos(l.CutoffAngle) {
		return []Sample{s}
	}

	s.Radiance = rgb.Scale(l.Color, math.Pow(cosTheta, l.DropoffRate)/l.At(dist))
	return []Sample{s}
}

// Area is a one-sided disk emitter facing Direction.
type Area struct {
	Color     rgb.T
	Position  vec3.T
	Direction vec3.T
	Radius    float64
	Attenuation
}

func (l *Area) Sample(p vec3.T, n int, rng *rand.Rand) []Sample {
	if n < 1 {
		n = 1
	}
	facing := vec3.Normalize(l.Direction)

	samples := make([]Sample, n)
	for i := range samples {
		q := vec3.UniformDisk(l.Position, facing, l.Radius, rng)
		dir, dist := towards(p, q)
		samples[i] = Sample{Direction: dir, Distance: dist}

		cosEmit := -vec3.IProd(dir, facing)
		if cosEmit <= 0 {
			continue
		}
		samples[i].Radiance = rgb.Scale(l.Color, cosEmit/(l.At(dist)*float64(n)))
	}
	return samples
}
