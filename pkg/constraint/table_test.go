package constraint

import (
	"errors"
	"testing"
)

func TestDefault_Verify(t *testing.T) {
	if err := Default().Verify(); err != nil {
		t.Fatalf("Default().Verify() = %v", err)
	}
}

func TestDefault_ExactlyOneBandPerShoulder(t *testing.T) {
	table := Default()

	for s := 0.0; s < 90; s += 0.25 {
		matches := 0
		for _, r := range table.Rows {
			if r.Contains(s) {
				matches++
			}
		}
		if matches != 1 {
			t.Fatalf("shoulder %.2f matched %d bands, want 1", s, matches)
		}

		row, ok := table.Find(s)
		if !ok || !row.Contains(s) {
			t.Fatalf("Find(%.2f) = %v, %v", s, row, ok)
		}
	}
}

func TestTable_Valid(t *testing.T) {
	table := Default()

	tests := []struct {
		name     string
		shoulder float64
		elbow    float64
		want     bool
	}{
		{"band 60-65 upper edge", 62, 80, true},
		{"band 60-65 above range", 62, 85, false},
		{"band 0-5 too low", 0, 50, false},
		{"band 0-5 lower edge", 0, 55, true},
		{"band edge belongs to upper band", 5, 40, true},
		{"band 20-25", 21.49, 19.02, false},
		{"shoulder negative", -0.1, 60, false},
		{"shoulder above range", 90.1, 30, false},
		{"elbow negative", 50, -1, false},
		{"elbow above range", 50, 91, false},
		{"shoulder at top edge", 90, 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := table.Valid(tt.shoulder, tt.elbow); got != tt.want {
				t.Errorf("Valid(%g, %g) = %v, want %v", tt.shoulder, tt.elbow, got, tt.want)
			}
		})
	}
}

func TestTable_Check(t *testing.T) {
	table := Default()

	if err := table.Check(62, 80); err != nil {
		t.Errorf("Check(62, 80) = %v, want nil", err)
	}

	err := table.Check(62, 85)
	if !errors.Is(err, ErrViolation) {
		t.Fatalf("Check(62, 85) = %v, want ErrViolation", err)
	}

	err = table.Check(95, 10)
	if !errors.Is(err, ErrViolation) {
		t.Fatalf("Check(95, 10) = %v, want ErrViolation", err)
	}
}

func TestTable_VerifyRejectsBrokenTables(t *testing.T) {
	base := Range{Min: 0, Max: 90}

	tests := []struct {
		name string
		rows []Row
	}{
		{"empty", nil},
		{"gap", []Row{{0, 40, 0, 90}, {45, 90, 0, 90}}},
		{"overlap", []Row{{0, 50, 0, 90}, {45, 90, 0, 90}}},
		{"short", []Row{{0, 45, 0, 90}, {45, 85, 0, 90}}},
		{"late start", []Row{{5, 90, 0, 90}}},
		{"empty band", []Row{{0, 0, 0, 90}, {0, 90, 0, 90}}},
		{"empty elbow", []Row{{0, 90, 60, 50}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Table{Shoulder: base, Elbow: base, Rows: tt.rows}
			if err := table.Verify(); !errors.Is(err, ErrInvalidTable) {
				t.Errorf("Verify() = %v, want ErrInvalidTable", err)
			}
		})
	}
}

func TestTable_ValidDoesNotAllocate(t *testing.T) {
	table := Default()

	allocs := testing.AllocsPerRun(100, func() {
		table.Valid(62, 85)
	})
	if allocs != 0 {
		t.Errorf("Valid allocated %.0f times per call", allocs)
	}
}
