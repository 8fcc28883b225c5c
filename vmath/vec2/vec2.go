package vec2

import "math"

type T [2]float64

func (v T) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1])
}

// Wrap01 wraps both coordinates into [0, 1).
func Wrap01(v T) T {
	return T{
		v[0] - math.Floor(v[0]),
		v[1] - math.Floor(v[1]),
	}
}
