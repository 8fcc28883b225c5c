package vec3

import (
	"math"
	"math/rand"
)

type T [3]float64

func (v T) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func (v T) IsZero() bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

func Normalize(v T) T {
	l := v.Norm()
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

// MulVV is the component-wise product.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

func DivVS(a T, b float64) T {
	return T{
		a[0] / b,
		a[1] / b,
		a[2] / b,
	}
}

func Neg(a T) T {
	return T{-a[0], -a[1], -a[2]}
}

func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Reject returns the component of b that is orthogonal to a.
func Reject(a, b T) T {
	return SubVV(b, MulVS(Normalize(a), IProd(a, b)/a.Norm()))
}

// Reflect mirrors the direction a about the unit normal n.
func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}

// Refract bends the unit direction a through a surface with unit normal n, where
// n points against a and eta is the ratio of the incident to the transmitted
// index of refraction.  ok is false on total internal reflection.
func Refract(a, n T, eta float64) (out T, ok bool) {
	cosI := -IProd(a, n)
	sin2T := eta * eta * (1 - cosI*cosI)
	if sin2T > 1 {
		return T{}, false
	}
	cosT := math.Sqrt(1 - sin2T)
	return Normalize(AddVV(MulVS(a, eta), MulVS(n, eta*cosI-cosT))), true
}

// OrthonormalBasis returns two unit vectors that, together with the unit vector
// n, form a right-handed orthonormal basis.
func OrthonormalBasis(n T) (u, v T) {
	helper := T{1, 0, 0}
	if math.Abs(n[0]) > 0.9 {
		helper = T{0, 1, 0}
	}
	u = Normalize(CProd(helper, n))
	v = CProd(n, u)
	return u, v
}

// UniformDisk samples a point uniformly from the disk of the given radius that
// is centered on c and perpendicular to the unit normal n.
func UniformDisk(c, n T, radius float64, rng *rand.Rand) T {
	u, v := OrthonormalBasis(n)
	r := radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return AddVV(c, AddVV(MulVS(u, r*math.Cos(theta)), MulVS(v, r*math.Sin(theta))))
}

func UniformUnitDistribution(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		result[2] = 2 * (rng.Float64() - 0.5)
		normSquared := result[0]*result[0] + result[1]*result[1] + result[2]*result[2]
		if normSquared <= 1.0 && normSquared != 0.0 {
			break
		}
	}
	return Normalize(result)
}

func ApproxEqual(a, b T, tol float64) bool {
	return math.Abs(a[0]-b[0]) <= tol && math.Abs(a[1]-b[1]) <= tol && math.Abs(a[2]-b[2]) <= tol
}
