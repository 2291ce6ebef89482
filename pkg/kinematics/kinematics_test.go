package kinematics

import (
	"errors"
	"math"
	"testing"
)

func TestInverse_WorkedExample(t *testing.T) {
	g := DefaultGeometry()

	got, err := g.Inverse(CartesianPose{X: 10, Y: 0, Z: 10})
	if err != nil {
		t.Fatalf("Inverse returned error: %v", err)
	}

	tests := []struct {
		name     string
		got      float64
		expected float64
	}{
		{"base", got.Base, 0},
		{"shoulder", got.Shoulder, 77.153},
		{"elbow", got.Elbow, 41.548},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.expected) > 0.01 {
			t.Errorf("%s = %f, want %f", tt.name, tt.got, tt.expected)
		}
	}
}

func TestInverse_Unreachable(t *testing.T) {
	g := DefaultGeometry()

	targets := []CartesianPose{
		{X: 100, Y: 0, Z: 10},
		{X: 0, Y: 0, Z: 40},
		{X: -20, Y: 20, Z: 0},
	}
	for _, p := range targets {
		_, err := g.Inverse(p)
		if !errors.Is(err, ErrUnreachable) {
			t.Errorf("Inverse(%v) error = %v, want ErrUnreachable", p, err)
		}
	}
}

func TestInverse_FullExtensionRoundOff(t *testing.T) {
	g := DefaultGeometry()

	// Exactly at full reach: either a valid straight-arm solution or
	// ErrUnreachable from the acos domain check, never NaN angles.
	j, err := g.Inverse(CartesianPose{X: g.Reach(), Y: 0, Z: g.L1})
	if err != nil {
		if !errors.Is(err, ErrUnreachable) {
			t.Fatalf("unexpected error kind: %v", err)
		}
		return
	}
	if math.IsNaN(j.Shoulder) || math.IsNaN(j.Elbow) {
		t.Fatalf("got NaN angles: %+v", j)
	}
	if math.Abs(j.Elbow-180) > 0.01 {
		t.Errorf("elbow = %f, want 180 at full extension", j.Elbow)
	}
}

func TestInverse_ShoulderPivotIsUnreachable(t *testing.T) {
	g := DefaultGeometry()

	// d = 0 puts the beta acos argument at infinity.
	_, err := g.Inverse(CartesianPose{X: 0, Y: 0, Z: g.L1})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}

func TestInverseForward_RoundTrip(t *testing.T) {
	g := DefaultGeometry()

	for x := -25.0; x <= 25; x += 2.5 {
		for y := -25.0; y <= 25; y += 2.5 {
			for z := -5.0; z <= 30; z += 2.5 {
				if x == 0 && y == 0 {
					continue
				}
				p := CartesianPose{X: x, Y: y, Z: z}
				j, err := g.Inverse(p)
				if err != nil {
					if !errors.Is(err, ErrUnreachable) {
						t.Fatalf("Inverse(%v): unexpected error %v", p, err)
					}
					continue
				}
				back := g.Forward(j)
				if math.Abs(back.X-x) > 1e-6 || math.Abs(back.Y-y) > 1e-6 || math.Abs(back.Z-z) > 1e-6 {
					t.Errorf("round trip %v -> %+v -> %v", p, j, back)
				}
			}
		}
	}
}

func TestInverse_OutsideReachAlwaysFails(t *testing.T) {
	g := DefaultGeometry()

	for _, scale := range []float64{1.001, 1.5, 3, 10} {
		for deg := 0.0; deg < 360; deg += 30 {
			reach := g.Reach() * scale
			p := CartesianPose{
				X: reach * math.Cos(Radians(deg)),
				Y: reach * math.Sin(Radians(deg)),
				Z: g.L1,
			}
			if _, err := g.Inverse(p); !errors.Is(err, ErrUnreachable) {
				t.Errorf("Inverse(%v) error = %v, want ErrUnreachable", p, err)
			}
		}
	}
}

func TestCylindrical_RoundTrip(t *testing.T) {
	c := CylindricalPose{Radius: 20, Azimuth: Radians(30), Height: 7}

	p := c.Cartesian()
	if math.Abs(p.X-17.3205) > 1e-3 || math.Abs(p.Y-10) > 1e-9 || p.Z != 7 {
		t.Fatalf("Cartesian() = %v", p)
	}

	back := p.Cylindrical()
	if math.Abs(back.Radius-c.Radius) > 1e-9 || math.Abs(back.Azimuth-c.Azimuth) > 1e-9 || back.Height != c.Height {
		t.Errorf("Cylindrical() = %+v, want %+v", back, c)
	}
}
