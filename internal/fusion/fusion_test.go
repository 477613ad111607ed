package fusion

import (
	"math"
	"testing"
)

func TestNew_VariantSelection(t *testing.T) {
	f, err := New(VariantMahony)
	if err != nil {
		t.Fatalf("New(mahony) error: %v", err)
	}
	if _, ok := f.(*Mahony); !ok {
		t.Fatalf("got %T want *Mahony", f)
	}

	f, err = New(VariantMadgwick)
	if err != nil {
		t.Fatalf("New(madgwick) error: %v", err)
	}
	if _, ok := f.(*Madgwick); !ok {
		t.Fatalf("got %T want *Madgwick", f)
	}

	// Empty variant falls back to the default filter.
	f, err = New("")
	if err != nil {
		t.Fatalf("New(\"\") error: %v", err)
	}
	if _, ok := f.(*Mahony); !ok {
		t.Fatalf("got %T want *Mahony", f)
	}

	if _, err := New("kalman"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

// estimatedGravity projects the filter's gravity direction estimate from its
// quaternion.
func estimatedGravity(f Filter) (x, y, z float64) {
	q0, q1, q2, q3 := f.Quaternion()
	x = 2.0 * (q1*q3 - q0*q2)
	y = 2.0 * (q0*q1 + q2*q3)
	z = q0*q0 - q1*q1 - q2*q2 + q3*q3
	return x, y, z
}

func TestFilters_ConvergeTowardMeasuredGravity(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    Filter
	}{
		{"Mahony", NewMahony()},
		{"Madgwick", NewMadgwick()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Device at rest with gravity along +X (resting on its side).
			for i := 0; i < 5000; i++ {
				tc.f.Update(0, 0, 0, 1, 0, 0, 0.01)
			}
			gx, gy, gz := estimatedGravity(tc.f)
			if math.Abs(gx-1) > 0.02 || math.Abs(gy) > 0.02 || math.Abs(gz) > 0.02 {
				t.Fatalf("gravity=(%.3f %.3f %.3f) want ~(1 0 0)", gx, gy, gz)
			}
		})
	}
}

func TestFilters_StayUnitNorm(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    Filter
	}{
		{"Mahony", NewMahony()},
		{"Madgwick", NewMadgwick()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 200; i++ {
				tc.f.Update(0.3, -0.2, 0.5, 0.1, -0.9, 0.4, 0.01)
			}
			q0, q1, q2, q3 := tc.f.Quaternion()
			n := math.Sqrt(q0*q0 + q1*q1 + q2*q2 + q3*q3)
			if math.Abs(n-1) > 1e-9 {
				t.Fatalf("norm=%v want 1", n)
			}
		})
	}
}

func TestFilters_ZeroAccelIntegratesGyroOnly(t *testing.T) {
	for _, tc := range []struct {
		name string
		f    Filter
	}{
		{"Mahony", NewMahony()},
		{"Madgwick", NewMadgwick()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// Quarter turn about Z at pi/2 rad/s for one second.
			for i := 0; i < 1000; i++ {
				tc.f.Update(0, 0, math.Pi/2, 0, 0, 0, 0.001)
			}
			q0, q1, q2, q3 := tc.f.Quaternion()
			want := math.Sqrt(2) / 2
			if math.Abs(q0-want) > 1e-3 || math.Abs(q3-want) > 1e-3 {
				t.Fatalf("q=(%.4f %.4f %.4f %.4f) want (%.4f 0 0 %.4f)", q0, q1, q2, q3, want, want)
			}
			if math.Abs(q1) > 1e-6 || math.Abs(q2) > 1e-6 {
				t.Fatalf("q1=%v q2=%v want 0", q1, q2)
			}
		})
	}
}

func TestMadgwick_EquilibriumIsStable(t *testing.T) {
	f := NewMadgwick()
	// Identity orientation with gravity straight down has a zero gradient;
	// must not produce NaN.
	f.Update(0, 0, 0, 0, 0, 1, 0.01)
	q0, q1, q2, q3 := f.Quaternion()
	if math.IsNaN(q0) || math.IsNaN(q1) || math.IsNaN(q2) || math.IsNaN(q3) {
		t.Fatalf("q=(%v %v %v %v) contains NaN", q0, q1, q2, q3)
	}
	if math.Abs(q0-1) > 1e-9 {
		t.Fatalf("q0=%v want 1", q0)
	}
}
