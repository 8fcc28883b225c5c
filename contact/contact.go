// Package contact describes where a ray meets a surface.
package contact

import (
	"math"

	"r3trace/affinetransform"
	"r3trace/vmath/mat33"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// UpdateInfo is the geometric result of a ray/surface intersection: the point
// of contact, the outward unit surface normal there, and the ray parameter T
// at which the ray reaches it.
type UpdateInfo struct {
	Position vec3.T
	Normal   vec3.T
	T        float64

	// Surface coordinates in [0, 1]^2, used for texture lookups.
	Mtl2 vec2.T
}

// Miss is the UpdateInfo of a ray that touches nothing.
func Miss() UpdateInfo {
	return UpdateInfo{
		T: math.NaN(),
	}
}

func (c UpdateInfo) IsMiss() bool {
	return math.IsNaN(c.T)
}

// Transform carries a contact found on a ray in one space into another space.
//
// nm is the transpose inverse of the linear part of the transform.  Taken as an
// argument rather than calculating it every time.  slope is the ray direction in
// the source space; it is needed to know how the transform changes the scale of
// the ray parameter.
func (c UpdateInfo) Transform(t affinetransform.AffineTransform, nm mat33.T, slope vec3.T) UpdateInfo {
	result := c
	result.T = c.T * mat33.MulMV(t.Linear, slope).Norm()
	result.Position = affinetransform.TransformPoint(t, c.Position)
	result.Normal = vec3.Normalize(mat33.MulMV(nm, c.Normal))
	return result
}
