// Package rgb holds linear RGB radiance values.
package rgb

import "math"

type T [3]float64

func Gray(v float64) T {
	return T{v, v, v}
}

func Add(a, b T) T {
	return T{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// Mul is the component-wise product, used to filter light through a surface.
func Mul(a, b T) T {
	return T{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func Scale(a T, s float64) T {
	return T{a[0] * s, a[1] * s, a[2] * s}
}

func (c T) IsBlack() bool {
	return c[0] == 0 && c[1] == 0 && c[2] == 0
}

func Clamp(c T, lo, hi float64) T {
	out := c
	for i := range out {
		out[i] = math.Max(lo, math.Min(hi, out[i]))
	}
	return out
}

// Luminance uses the Rec. 709 weights.
func (c T) Luminance() float64 {
	return 0.2126*c[0] + 0.7152*c[1] + 0.0722*c[2]
}
