package contact

import (
	"math"
	"testing"

	"r3trace/affinetransform"
	"r3trace/vmath/vec3"
)

func TestMiss(t *testing.T) {
	if !Miss().IsMiss() {
		t.Errorf("Miss().IsMiss() = false")
	}
	if (UpdateInfo{T: 1}).IsMiss() {
		t.Errorf("Contact at T=1 reported as a miss")
	}
}

func TestTransform(t *testing.T) {
	// Unit sphere hit at (0, 0, -1) by a ray travelling +Z from (0, 0, -3).
	c := UpdateInfo{
		Position: vec3.T{0, 0, -1},
		Normal:   vec3.T{0, 0, -1},
		T:        2,
	}

	xf := affinetransform.Compose(affinetransform.Translate(vec3.T{0, 0, 10}), affinetransform.Scale(3))
	got := c.Transform(xf, xf.NormalTransformMat(), vec3.T{0, 0, 1})

	if got.T != 6 {
		t.Errorf("Bad world T; got %v, want 6", got.T)
	}
	if want := (vec3.T{0, 0, 7}); got.Position != want {
		t.Errorf("Bad world position; got %v, want %v", got.Position, want)
	}
	if math.Abs(got.Normal.Norm()-1) > 1e-12 || got.Normal[2] >= 0 {
		t.Errorf("Bad world normal %v", got.Normal)
	}
}
