package vec3

import (
	"math"
	"math/rand"
	"testing"
)

func TestReflect(t *testing.T) {
	got := Reflect(T{1, -1, 0}, T{0, 1, 0})
	if want := (T{1, 1, 0}); !ApproxEqual(got, want, 1e-12) {
		t.Errorf("Bad reflection; got %v, want %v", got, want)
	}
}

func TestRefractStraightThrough(t *testing.T) {
	got, ok := Refract(T{0, -1, 0}, T{0, 1, 0}, 1/1.5)
	if !ok {
		t.Fatalf("Unexpected total internal reflection at normal incidence")
	}
	if want := (T{0, -1, 0}); !ApproxEqual(got, want, 1e-12) {
		t.Errorf("Bad refraction; got %v, want %v", got, want)
	}
}

func TestRefractSnell(t *testing.T) {
	thetaI := math.Pi / 6
	in := T{math.Sin(thetaI), -math.Cos(thetaI), 0}
	eta := 1 / 1.5

	got, ok := Refract(in, T{0, 1, 0}, eta)
	if !ok {
		t.Fatalf("Unexpected total internal reflection")
	}

	sinT := got[0]
	if want := eta * math.Sin(thetaI); math.Abs(sinT-want) > 1e-12 {
		t.Errorf("Refracted ray violates Snell's law; got sin=%v, want %v", sinT, want)
	}
	if math.Abs(got.Norm()-1) > 1e-12 {
		t.Errorf("Refracted ray not unit length: %v", got.Norm())
	}
}

func TestRefractTotalInternalReflection(t *testing.T) {
	thetaI := 1.2
	in := T{math.Sin(thetaI), -math.Cos(thetaI), 0}
	if _, ok := Refract(in, T{0, 1, 0}, 1.5); ok {
		t.Errorf("Expected total internal reflection leaving glass at %v radians", thetaI)
	}
}

func TestOrthonormalBasis(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		n := UniformUnitDistribution(rng)
		u, v := OrthonormalBasis(n)
		if math.Abs(IProd(u, n)) > 1e-9 || math.Abs(IProd(v, n)) > 1e-9 || math.Abs(IProd(u, v)) > 1e-9 {
			t.Fatalf("Basis for %v not orthogonal: u=%v v=%v", n, u, v)
		}
		if !ApproxEqual(CProd(u, v), n, 1e-9) {
			t.Fatalf("Basis for %v not right-handed: u=%v v=%v", n, u, v)
		}
	}
}

func TestUniformDiskStaysOnDisk(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	c := T{1, 2, 3}
	n := Normalize(T{1, 1, 0})
	for i := 0; i < 1000; i++ {
		p := UniformDisk(c, n, 0.5, rng)
		d := SubVV(p, c)
		if math.Abs(IProd(d, n)) > 1e-9 {
			t.Fatalf("Sample %v is off the disk plane", p)
		}
		if d.Norm() > 0.5+1e-9 {
			t.Fatalf("Sample %v is outside the disk radius", p)
		}
	}
}
