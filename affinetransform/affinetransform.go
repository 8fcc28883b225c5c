package affinetransform

import (
	"r3trace/vmath/mat33"
	"r3trace/vmath/mat44"
	"r3trace/vmath/vec3"
)

// AffineTransform maps x to Linear*x + Offset.
type AffineTransform struct {
	Linear mat33.T
	Offset vec3.T
}

func Identity() AffineTransform {
	return AffineTransform{
		Linear: mat33.Identity(),
		Offset: vec3.T{0.0, 0.0, 0.0},
	}
}

func Scale(s float64) AffineTransform {
	return AffineTransform{
		Linear: mat33.T{s, 0.0, 0.0, 0.0, s, 0.0, 0.0, 0.0, s},
		Offset: vec3.T{0.0, 0.0, 0.0},
	}
}

func Translate(x vec3.T) AffineTransform {
	result := Identity()
	result.Offset = x
	return result
}

// FromMat44 drops the projective row of a row-major 4x4 matrix.
func FromMat44(m mat44.T) AffineTransform {
	return AffineTransform{
		Linear: mat33.T{
			m[0], m[1], m[2],
			m[4], m[5], m[6],
			m[8], m[9], m[10],
		},
		Offset: vec3.T{m[3], m[7], m[11]},
	}
}

func (t AffineTransform) Mat44() mat44.T {
	return mat44.T{
		t.Linear[0], t.Linear[1], t.Linear[2], t.Offset[0],
		t.Linear[3], t.Linear[4], t.Linear[5], t.Offset[1],
		t.Linear[6], t.Linear[7], t.Linear[8], t.Offset[2],
		0, 0, 0, 1,
	}
}

// Compose returns the transform that applies b, then a.
func Compose(a, b AffineTransform) AffineTransform {
	return AffineTransform{
		Linear: mat33.MulMM(a.Linear, b.Linear),
		Offset: vec3.AddVV(a.Offset, mat33.MulMV(a.Linear, b.Offset)),
	}
}

func (t AffineTransform) Invert() AffineTransform {
	return FromMat44(mat44.Inverse(t.Mat44()))
}

// IsIdentity is used to skip transform work for untransformed nodes.
func (t AffineTransform) IsIdentity() bool {
	return t == Identity()
}

func (t AffineTransform) NormalTransformMat() mat33.T {
	return mat33.Transpose(mat33.Inverse(t.Linear))
}

func TransformPoint(a AffineTransform, b vec3.T) vec3.T {
	return vec3.AddVV(mat33.MulMV(a.Linear, b), a.Offset)
}

func TransformVector(a AffineTransform, b vec3.T) vec3.T {
	return mat33.MulMV(a.Linear, b)
}
