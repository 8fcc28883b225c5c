package mat33

import (
	"math"

	"r3trace/vmath/vec3"
)

// T is a row-major 3x3 matrix.
type T [9]float64

func Identity() T {
	return T{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func FromColumns(a, b, c vec3.T) T {
	return T{
		a[0], b[0], c[0],
		a[1], b[1], c[1],
		a[2], b[2], c[2],
	}
}

func MulMM(a, b T) T {
	result := T{}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				result[i*3+j] += a[i*3+k] * b[k*3+j]
			}
		}
	}
	return result
}

func MulMV(a T, b vec3.T) vec3.T {
	return vec3.T{
		a[0]*b[0] + a[1]*b[1] + a[2]*b[2],
		a[3]*b[0] + a[4]*b[1] + a[5]*b[2],
		a[6]*b[0] + a[7]*b[1] + a[8]*b[2],
	}
}

func Transpose(m T) T {
	transpose := T{}
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			transpose[c*3+r] = m[r*3+c]
		}
	}
	return transpose
}

func Determinant(m T) float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// SolveInplace reduces m to the identity with Gauss-Jordan elimination and
// partial pivoting, mirroring every row operation into a.  If a starts as the
// identity it ends as the inverse of m.
func SolveInplace(m, a *T) {
	for k := 0; k < 3; k++ {
		// Select the row at or below row k with the best pivot.
		maxRow := k
		for i := k; i < 3; i++ {
			if math.Abs(m[i*3+k]) > math.Abs(m[maxRow*3+k]) {
				maxRow = i
			}
		}

		for i := 0; i < 3; i++ {
			m[k*3+i], m[maxRow*3+i] = m[maxRow*3+i], m[k*3+i]
			a[k*3+i], a[maxRow*3+i] = a[maxRow*3+i], a[k*3+i]
		}

		pivot := m[k*3+k]
		for c := 0; c < 3; c++ {
			m[k*3+c] /= pivot
			a[k*3+c] /= pivot
		}

		for r := 0; r < 3; r++ {
			if r == k {
				continue
			}
			scale := m[r*3+k]
			for c := 0; c < 3; c++ {
				m[r*3+c] -= m[k*3+c] * scale
				a[r*3+c] -= a[k*3+c] * scale
			}
		}
	}
}

func Inverse(m T) T {
	a := Identity()
	SolveInplace(&m, &a)
	return a
}
