package material

import (
	"image"
	"math"

	"r3trace/vmath/rgb"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

type MaterialCoords struct {
	// Surface coordinates in [0, 1]^2.
	Mtl2 vec2.T
	// Position in the coordinates of the shape.
	Mtl3 vec3.T
}

type MaterialMap func(MaterialCoords) rgb.T

func Constant(c rgb.T) MaterialMap {
	return func(coords MaterialCoords) rgb.T {
		return c
	}
}

func parity(x, period float64) int {
	q := x / period
	if q-math.Floor(q) > 0.5 {
		return 1
	}
	return 0
}

// CheckerboardSurface alternates between a and b in squares of side period
// across the surface coordinates.
func CheckerboardSurface(period float64, a, b rgb.T) MaterialMap {
	return func(coords MaterialCoords) rgb.T {
		if parity(coords.Mtl2[0], period)^parity(coords.Mtl2[1], period) == 1 {
			return b
		}
		return a
	}
}

// CheckerboardVolume is the solid version of CheckerboardSurface, using the
// object-space coordinates.
func CheckerboardVolume(period float64, a, b rgb.T) MaterialMap {
	return func(coords MaterialCoords) rgb.T {
		p := parity(coords.Mtl3[0], period) ^ parity(coords.Mtl3[1], period) ^ parity(coords.Mtl3[2], period)
		if p == 1 {
			return b
		}
		return a
	}
}

// BullseyeSurface draws rings of width period/2 around the surface coordinate
// origin.
func BullseyeSurface(period float64, a, b rgb.T) MaterialMap {
	return func(coords MaterialCoords) rgb.T {
		d := coords.Mtl2.Norm() / period
		if _, frac := math.Modf(d); frac < 0.5 {
			return a
		}
		return b
	}
}

func toRGB(c interface{ RGBA() (r, g, b, a uint32) }) rgb.T {
	r, g, b, _ := c.RGBA()
	return rgb.T{float64(r) / 0xffff, float64(g) / 0xffff, float64(b) / 0xffff}
}

// Image looks up img with bilinear filtering.  The surface coordinate v runs
// from the bottom row of the image (v=0) to the top (v=1).  Coordinates
// outside [0, 1] wrap.
func Image(img image.Image) MaterialMap {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	texel := func(x, y int) rgb.T {
		x = ((x % w) + w) % w
		y = ((y % h) + h) % h
		return toRGB(img.At(bounds.Min.X+x, bounds.Min.Y+y))
	}

	return func(coords MaterialCoords) rgb.T {
		uv := vec2.Wrap01(coords.Mtl2)
		x := uv[0]*float64(w) - 0.5
		y := (1-uv[1])*float64(h) - 0.5

		x0, y0 := math.Floor(x), math.Floor(y)
		fx, fy := x-x0, y-y0
		ix, iy := int(x0), int(y0)

		top := rgb.Add(rgb.Scale(texel(ix, iy), 1-fx), rgb.Scale(texel(ix+1, iy), fx))
		bot := rgb.Add(rgb.Scale(texel(ix, iy+1), 1-fx), rgb.Scale(texel(ix+1, iy+1), fx))
		return rgb.Add(rgb.Scale(top, 1-fy), rgb.Scale(bot, fy))
	}
}

// Material holds the Phong coefficients of a surface.
type Material struct {
	Ka       rgb.T
	Kd       rgb.T
	Ks       rgb.T
	Kt       rgb.T
	Emission rgb.T

	Shininess         float64
	IndexOfRefraction float64

	// Optional.  Modulates Kd.
	Texture MaterialMap
}

// Default is the material used by nodes that never name one.
func Default() *Material {
	return &Material{
		Ka:                rgb.Gray(0.2),
		Kd:                rgb.Gray(0.5),
		Ks:                rgb.Gray(0.5),
		Shininess:         10,
		IndexOfRefraction: 1,
	}
}

func (m *Material) Diffuse(coords MaterialCoords) rgb.T {
	if m.Texture == nil {
		return m.Kd
	}
	return rgb.Mul(m.Kd, m.Texture(coords))
}

func (m *Material) IsReflective() bool {
	return !m.Ks.IsBlack()
}

func (m *Material) IsTransmissive() bool {
	return !m.Kt.IsBlack()
}
