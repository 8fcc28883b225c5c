package mat44

import "math"

// T is a row-major 4x4 matrix, the form transforms take in scene files.
type T [16]float64

func Identity() T {
	return T{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}
}

func MulMM(a, b T) T {
	result := T{}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				result[i*4+j] += a[i*4+k] * b[k*4+j]
			}
		}
	}
	return result
}

// IsAffine reports whether the bottom row is (0, 0, 0, 1).
func (m T) IsAffine() bool {
	return m[12] == 0 && m[13] == 0 && m[14] == 0 && m[15] == 1
}

func rowEchelonInplace(m, a *T) {
	for k := 0; k < 4; k++ {
		// Select the row below row k with the best pivot.
		maxRow := k
		for i := k; i < 4; i++ {
			if math.Abs(m[i*4+k]) > math.Abs(m[maxRow*4+k]) {
				maxRow = i
			}
		}

		// Swap selected row to current row.
		for i := 0; i < 4; i++ {
			m[k*4+i], m[maxRow*4+i] = m[maxRow*4+i], m[k*4+i]
			a[k*4+i], a[maxRow*4+i] = a[maxRow*4+i], a[k*4+i]
		}

		// Now the pivot element is at m[k, k].
		pivot := m[k*4+k]
		for r := k + 1; r < 4; r++ {
			scale := m[r*4+k] / pivot
			for c := k + 1; c < 4; c++ {
				m[r*4+c] -= m[k*4+c] * scale
			}
			for c := 0; c < 4; c++ {
				a[r*4+c] -= a[k*4+c] * scale
			}
			m[r*4+k] = 0.0
		}
	}
}

func backsubInplace(m, a *T) {
	for k := 4 - 1; k > 0; k-- {
		// Nullify all entries above the pivot element m[k, k].
		for r := 0; r < k; r++ {
			scale := m[r*4+k] / m[k*4+k]

			m[r*4+k] = 0
			for c := k + 1; c < 4; c++ {
				m[r*4+c] -= m[k*4+c] * scale
			}
			for c := 0; c < 4; c++ {
				a[r*4+c] -= a[k*4+c] * scale
			}
		}
	}

	for k := 0; k < 4; k++ {
		for c := k + 1; c < 4; c++ {
			m[k*4+c] /= m[k*4+k]
		}
		for c := 0; c < 4; c++ {
			a[k*4+c] /= m[k*4+k]
		}
		m[k*4+k] = 1
	}
}

func Inverse(m T) T {
	a := Identity()
	rowEchelonInplace(&m, &a)
	backsubInplace(&m, &a)
	return a
}
