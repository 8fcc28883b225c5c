package camera

import (
	"math"

	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

// Camera is a pinhole camera.  Towards and Up are kept unit length and
// perpendicular by SetTowards, SetUp and LookAt.
type Camera struct {
	Eye     vec3.T
	Towards vec3.T
	Up      vec3.T

	// Half of the horizontal field of view, in radians.
	XFov float64

	NearDist float64
	FarDist  float64
}

// LookAt builds a camera at eye pointed at target.
func LookAt(eye, target, up vec3.T, xfov float64) Camera {
	c := Camera{
		Eye:      eye,
		Up:       up,
		XFov:     xfov,
		NearDist: 0.01,
		FarDist:  math.Inf(1),
	}
	c.SetTowards(vec3.SubVV(target, eye))
	return c
}

func (c *Camera) Right() vec3.T {
	return vec3.CProd(c.Towards, c.Up)
}

func (c *Camera) SetTowards(towards vec3.T) {
	c.Towards = vec3.Normalize(towards)
	c.SetUp(c.Up)
}

func (c *Camera) SetUp(up vec3.T) {
	c.Up = vec3.Normalize(vec3.Reject(c.Towards, up))
}

// ImageToRay returns the ray through the point jitter (in [0,1)^2) of pixel
// (row, col).  Row 0 is the top of the image.
func (c *Camera) ImageToRay(row, rows, col, cols int, jitter vec2.T) ray.Ray {
	tanX := math.Tan(c.XFov)
	tanY := tanX * float64(rows) / float64(cols)

	x := (2*(float64(col)+jitter[0])/float64(cols) - 1) * tanX
	y := (1 - 2*(float64(row)+jitter[1])/float64(rows)) * tanY

	dir := vec3.AddVV(c.Towards, vec3.AddVV(vec3.MulVS(c.Right(), x), vec3.MulVS(c.Up, y)))
	return ray.Ray{
		Point: c.Eye,
		Slope: vec3.Normalize(dir),
	}
}
