package geometry

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"r3trace/contact"
	"r3trace/ray"
	"r3trace/vmath/vec2"
	"r3trace/vmath/vec3"
)

func forward(p, d vec3.T) ray.RaySegment {
	return ray.RaySegment{
		TheRay:     ray.Ray{Point: p, Slope: vec3.Normalize(d)},
		TheSegment: ray.Forward(),
	}
}

func TestShapeRayInto(t *testing.T) {
	sphere := &Sphere{Center: vec3.T{0, 0, 0}, Radius: 1}
	box := &Box{Min: vec3.T{-1, -1, -1}, Max: vec3.T{1, 1, 1}}
	cylinder := &Cylinder{Center: vec3.T{0, 0, 0}, Radius: 1, Height: 2}
	cone := &Cone{Center: vec3.T{0, 0, 0}, Radius: 1, Height: 2}

	testCases := []struct {
		name  string
		shape Shape
		query ray.RaySegment
		want  contact.UpdateInfo
		miss  bool
	}{
		{
			name:  "sphere front",
			shape: sphere,
			query: forward(vec3.T{0, 0, -5}, vec3.T{0, 0, 1}),
			want:  contact.UpdateInfo{T: 4, Position: vec3.T{0, 0, -1}, Normal: vec3.T{0, 0, -1}},
		},
		{
			name:  "sphere from inside",
			shape: sphere,
			query: forward(vec3.T{0, 0, 0}, vec3.T{0, 0, 1}),
			want:  contact.UpdateInfo{T: 1, Position: vec3.T{0, 0, 1}, Normal: vec3.T{0, 0, 1}},
		},
		{
			name:  "sphere behind origin",
			shape: sphere,
			query: forward(vec3.T{0, 0, 5}, vec3.T{0, 0, 1}),
			miss:  true,
		},
		{
			name:  "sphere beyond segment",
			shape: sphere,
			query: ray.RaySegment{
				TheRay:     ray.Ray{Point: vec3.T{0, 0, -5}, Slope: vec3.T{0, 0, 1}},
				TheSegment: ray.Span{ray.Epsilon, 3},
			},
			miss: true,
		},
		{
			name:  "box front",
			shape: box,
			query: forward(vec3.T{-5, 0.5, 0}, vec3.T{1, 0, 0}),
			want:  contact.UpdateInfo{T: 4, Position: vec3.T{-1, 0.5, 0}, Normal: vec3.T{-1, 0, 0}},
		},
		{
			name:  "box from inside",
			shape: box,
			query: forward(vec3.T{0, 0, 0}, vec3.T{0, -1, 0}),
			want:  contact.UpdateInfo{T: 1, Position: vec3.T{0, -1, 0}, Normal: vec3.T{0, -1, 0}},
		},
		{
			name:  "box miss",
			shape: box,
			query: forward(vec3.T{-5, 2, 0}, vec3.T{1, 0, 0}),
			miss:  true,
		},
		{
			name:  "cylinder side",
			shape: cylinder,
			query: forward(vec3.T{-5, 0, 0}, vec3.T{1, 0, 0}),
			want:  contact.UpdateInfo{T: 4, Position: vec3.T{-1, 0, 0}, Normal: vec3.T{-1, 0, 0}},
		},
		{
			name:  "cylinder top cap",
			shape: cylinder,
			query: forward(vec3.T{0.5, 5, 0}, vec3.T{0, -1, 0}),
			want:  contact.UpdateInfo{T: 4, Position: vec3.T{0.5, 1, 0}, Normal: vec3.T{0, 1, 0}},
		},
		{
			name:  "cylinder above",
			shape: cylinder,
			query: forward(vec3.T{-5, 1.5, 0}, vec3.T{1, 0, 0}),
			miss:  true,
		},
		{
			name:  "cone base",
			shape: cone,
			query: forward(vec3.T{0, -5, 0}, vec3.T{0, 1, 0}),
			want:  contact.UpdateInfo{T: 4, Position: vec3.T{0, -1, 0}, Normal: vec3.T{0, -1, 0}},
		},
		{
			name:  "cone side",
			shape: cone,
			query: forward(vec3.T{-5, 0, 0}, vec3.T{1, 0, 0}),
			want: contact.UpdateInfo{
				T:        4.5,
				Position: vec3.T{-0.5, 0, 0},
				Normal:   vec3.Normalize(vec3.T{-2, 1, 0}),
			},
		},
		{
			name:  "cone upper nappe",
			shape: cone,
			query: forward(vec3.T{-5, 2, 0}, vec3.T{1, 0, 0}),
			miss:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.shape.RayInto(tc.query)
			if tc.miss {
				if !got.IsMiss() {
					t.Errorf("Expected miss, got %+v", got)
				}
				return
			}
			if diff := cmp.Diff(got, tc.want, cmpopts.EquateApprox(0, 1e-9), cmpopts.IgnoreFields(contact.UpdateInfo{}, "Mtl2")); diff != "" {
				t.Errorf("Bad contact; diff (-got +want)\n%s", diff)
			}
			if got.Mtl2[0] < 0 || got.Mtl2[0] > 1 || got.Mtl2[1] < 0 || got.Mtl2[1] > 1 {
				t.Errorf("Surface coordinates out of range: %v", got.Mtl2)
			}
			box := tc.shape.GetAABox()
			for i := 0; i < 3; i++ {
				if got.Position[i] < box.Axis(i).Lo-1e-9 || got.Position[i] > box.Axis(i).Hi+1e-9 {
					t.Errorf("Contact %v outside bounds %v", got.Position, box)
				}
			}
		})
	}
}

func TestTriangleRayInto(t *testing.T) {
	tri := &Triangle{
		V:     [3]vec3.T{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		UV:    [3]vec2.T{{0, 0}, {1, 0}, {0, 1}},
		HasUV: true,
	}

	got := tri.RayInto(forward(vec3.T{0.25, 0.5, 5}, vec3.T{0, 0, -1}))
	want := contact.UpdateInfo{
		T:        5,
		Position: vec3.T{0.25, 0.5, 0},
		Normal:   vec3.T{0, 0, 1},
		Mtl2:     vec2.T{0.25, 0.5},
	}
	if diff := cmp.Diff(got, want, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Bad contact; diff (-got +want)\n%s", diff)
	}

	if got := tri.RayInto(forward(vec3.T{0.75, 0.75, 5}, vec3.T{0, 0, -1})); !got.IsMiss() {
		t.Errorf("Expected miss outside the hypotenuse, got %+v", got)
	}
	if got := tri.RayInto(forward(vec3.T{0, 0, 5}, vec3.T{1, 0, 0})); !got.IsMiss() {
		t.Errorf("Expected miss for parallel ray, got %+v", got)
	}
}

func randomTriangles(rng *rand.Rand, n int) []Triangle {
	tris := make([]Triangle, n)
	for i := range tris {
		c := vec3.T{rng.Float64()*20 - 10, rng.Float64()*20 - 10, rng.Float64()*20 - 10}
		for j := 0; j < 3; j++ {
			tris[i].V[j] = vec3.AddVV(c, vec3.T{rng.Float64() - 0.5, rng.Float64() - 0.5, rng.Float64() - 0.5})
		}
	}
	return tris
}

func TestMeshMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tris := randomTriangles(rng, 400)
	mesh := NewMesh(append([]Triangle(nil), tris...))

	hits := 0
	for i := 0; i < 2000; i++ {
		origin := vec3.MulVS(vec3.UniformUnitDistribution(rng), 20)
		target := vec3.T{rng.Float64()*16 - 8, rng.Float64()*16 - 8, rng.Float64()*16 - 8}
		query := forward(origin, vec3.SubVV(target, origin))

		want := contact.Miss()
		for j := range tris {
			info := tris[j].RayInto(query)
			if !info.IsMiss() && (want.IsMiss() || info.T < want.T) {
				want = info
			}
		}

		got := mesh.RayInto(query)
		if got.IsMiss() != want.IsMiss() {
			t.Fatalf("Ray %d: got miss=%v, want miss=%v", i, got.IsMiss(), want.IsMiss())
		}
		if want.IsMiss() {
			continue
		}
		hits++
		if math.Abs(got.T-want.T) > 1e-9 {
			t.Errorf("Ray %d: got T %v, want %v", i, got.T, want.T)
		}
	}

	if hits == 0 {
		t.Errorf("No ray hit the mesh; test is vacuous")
	}
}
