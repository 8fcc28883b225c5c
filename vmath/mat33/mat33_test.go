package mat33

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestInverse(t *testing.T) {
	testCases := []T{
		Identity(),
		{2, 0, 0, 0, 3, 0, 0, 0, 4},
		{0, 1, 0, 1, 0, 0, 0, 0, 1},
		{1, 2, 3, 0, 1, 4, 5, 6, 0},
	}

	for _, m := range testCases {
		got := MulMM(m, Inverse(m))
		if diff := cmp.Diff(got, Identity(), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("m * Inverse(m) is not the identity for %v; diff (-got +want)\n%s", m, diff)
		}
	}
}

func TestDeterminant(t *testing.T) {
	if got := Determinant(T{1, 2, 3, 0, 1, 4, 5, 6, 0}); got != 1 {
		t.Errorf("Bad determinant; got %v, want 1", got)
	}
}
