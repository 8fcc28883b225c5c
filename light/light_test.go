package light

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"r3trace/vmath/rgb"
	"r3trace/vmath/vec3"
)

func TestSingleSampleLights(t *testing.T) {
	origin := vec3.T{0, 0, 0}

	testCases := []struct {
		name  string
		light Light
		want  Sample
	}{
		{
			name:  "directional",
			light: &Directional{Color: rgb.Gray(1), Direction: vec3.T{0, -2, 0}},
			want:  Sample{Direction: vec3.T{0, 1, 0}, Distance: math.Inf(1), Radiance: rgb.Gray(1)},
		},
		{
			name: "point without attenuation",
			light: &Point{
				Color:    rgb.Gray(1),
				Position: vec3.T{0, 2, 0},
			},
			want: Sample{Direction: vec3.T{0, 1, 0}, Distance: 2, Radiance: rgb.Gray(1)},
		},
		{
			name: "point with quadratic attenuation",
			light: &Point{
				Color:       rgb.Gray(1),
				Position:    vec3.T{0, 2, 0},
				Attenuation: Attenuation{Quadratic: 1},
			},
			want: Sample{Direction: vec3.T{0, 1, 0}, Distance: 2, Radiance: rgb.Gray(0.25)},
		},
		{
			name: "spot on axis",
			light: &Spot{
				Color:       rgb.Gray(1),
				Position:    vec3.T{0, 2, 0},
				Direction:   vec3.T{0, -1, 0},
				Attenuation: Attenuation{Constant: 1},
				CutoffAngle: math.Pi / 4,
				DropoffRate: 2,
			},
			want: Sample{Direction: vec3.T{0, 1, 0}, Distance: 2, Radiance: rgb.Gray(1)},
		},
		{
			name: "spot outside cutoff",
			light: &Spot{
				Color:       rgb.Gray(1),
				Position:    vec3.T{0, 2, 0},
				Direction:   vec3.T{1, 0, 0},
				Attenuation: Attenuation{Constant: 1},
				CutoffAngle: math.Pi / 4,
				DropoffRate: 2,
			},
			want: Sample{Direction: vec3.T{0, 1, 0}, Distance: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.light.Sample(origin, 16, rand.New(rand.NewSource(1)))
			if len(got) != 1 {
				t.Fatalf("Got %d samples, want 1", len(got))
			}
			if diff := cmp.Diff(got[0], tc.want, cmpopts.EquateApprox(0, 1e-12), cmpopts.EquateNaNs()); diff != "" {
				t.Errorf("Bad sample; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestAreaLight(t *testing.T) {
	l := &Area{
		Color:       rgb.Gray(1),
		Position:    vec3.T{0, 1, 0},
		Direction:   vec3.T{0, -1, 0},
		Radius:      0.01,
		Attenuation: Attenuation{Constant: 1},
	}
	rng := rand.New(rand.NewSource(1))

	below := l.Sample(vec3.T{0, 0, 0}, 8, rng)
	if len(below) != 8 {
		t.Fatalf("Got %d samples, want 8", len(below))
	}
	total := rgb.T{}
	for _, s := range below {
		total = rgb.Add(total, s.Radiance)
	}
	if math.Abs(total[0]-1) > 1e-3 {
		t.Errorf("Total radiance under a small disk: got %v, want ~1", total[0])
	}

	for _, s := range l.Sample(vec3.T{0, 2, 0}, 8, rng) {
		if !s.Radiance.IsBlack() {
			t.Errorf("Point behind the disk got radiance %v", s.Radiance)
		}
	}

	if got := l.Sample(vec3.T{0, 0, 0}, 0, rng); len(got) != 1 {
		t.Errorf("Non-positive sample count: got %d samples, want 1", len(got))
	}
}
