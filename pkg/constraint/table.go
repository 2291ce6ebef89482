// Package constraint validates mechanically-coupled shoulder/elbow limits.
//
// The table is plain data: an ordered list of shoulder bands, each allowing
// an inclusive elbow range. Angles are servo-space degrees.
package constraint

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrViolation is returned when servo angles fail the absolute bounds or
	// the elbow range of their shoulder band.
	ErrViolation = errors.New("constraint violated")

	// ErrInvalidTable is returned by Verify when the bands do not partition
	// the shoulder range.
	ErrInvalidTable = errors.New("invalid constraint table")
)

// Row allows elbow angles in [ElbowLow, ElbowHigh] while the shoulder is in
// [ShoulderLow, ShoulderHigh).
type Row struct {
	ShoulderLow  float64 `json:"shoulder_low"`
	ShoulderHigh float64 `json:"shoulder_high"`
	ElbowLow     float64 `json:"elbow_low"`
	ElbowHigh    float64 `json:"elbow_high"`
}

// Contains reports whether shoulder falls in the row's half-open band.
func (r Row) Contains(shoulder float64) bool {
	return r.ShoulderLow <= shoulder && shoulder < r.ShoulderHigh
}

// Allows reports whether elbow is inside the row's inclusive range.
func (r Row) Allows(elbow float64) bool {
	return r.ElbowLow <= elbow && elbow <= r.ElbowHigh
}

func (r Row) String() string {
	return fmt.Sprintf("shoulder [%g, %g) requires elbow [%g, %g]", r.ShoulderLow, r.ShoulderHigh, r.ElbowLow, r.ElbowHigh)
}

// Range is an inclusive interval.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in [Min, Max].
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// Table holds the absolute shoulder/elbow bounds and the sorted bands.
type Table struct {
	Shoulder Range `json:"shoulder"`
	Elbow    Range `json:"elbow"`
	Rows     []Row `json:"rows"`
}

// Default returns the limits measured on the HarveStar arm.
func Default() Table {
	return Table{
		Shoulder: Range{Min: 0, Max: 90},
		Elbow:    Range{Min: 0, Max: 90},
		Rows: []Row{
			{0, 5, 55, 90},
			{5, 10, 40, 90},
			{10, 15, 40, 90},
			{15, 20, 35, 90},
			{20, 25, 25, 90},
			{25, 30, 20, 90},
			{30, 35, 15, 90},
			{35, 40, 10, 90},
			{40, 45, 5, 90},
			{45, 50, 5, 90},
			{50, 55, 0, 90},
			{55, 60, 0, 90},
			{60, 65, 0, 80},
			{65, 70, 0, 80},
			{70, 75, 0, 70},
			{75, 80, 0, 65},
			{80, 85, 0, 60},
			{85, 90, 0, 60},
		},
	}
}

// Find returns the band containing shoulder. Rows must be sorted by
// ShoulderLow, which Verify guarantees.
func (t Table) Find(shoulder float64) (Row, bool) {
	// First row whose upper edge is above shoulder.
	i := sort.Search(len(t.Rows), func(i int) bool {
		return t.Rows[i].ShoulderHigh > shoulder
	})
	if i < len(t.Rows) && t.Rows[i].Contains(shoulder) {
		return t.Rows[i], true
	}
	return Row{}, false
}

// Valid reports whether the angle pair is allowed. It never allocates.
func (t Table) Valid(shoulder, elbow float64) bool {
	if !t.Shoulder.Contains(shoulder) || !t.Elbow.Contains(elbow) {
		return false
	}
	row, ok := t.Find(shoulder)
	if !ok {
		// The top edge of the shoulder range is not covered by any
		// half-open band; only the absolute bounds apply there.
		return true
	}
	return row.Allows(elbow)
}

// Check is Valid with a descriptive error for logging.
func (t Table) Check(shoulder, elbow float64) error {
	if t.Valid(shoulder, elbow) {
		return nil
	}
	if !t.Shoulder.Contains(shoulder) {
		return fmt.Errorf("%w: shoulder %.2f° outside [%g, %g]", ErrViolation, shoulder, t.Shoulder.Min, t.Shoulder.Max)
	}
	if !t.Elbow.Contains(elbow) {
		return fmt.Errorf("%w: elbow %.2f° outside [%g, %g]", ErrViolation, elbow, t.Elbow.Min, t.Elbow.Max)
	}
	row, _ := t.Find(shoulder)
	return fmt.Errorf("%w: %s, got shoulder %.2f°, elbow %.2f°", ErrViolation, row, shoulder, elbow)
}

// Verify checks that the rows partition [Shoulder.Min, Shoulder.Max) into
// contiguous, non-overlapping bands with non-empty elbow ranges.
func (t Table) Verify() error {
	if len(t.Rows) == 0 {
		return fmt.Errorf("%w: no rows", ErrInvalidTable)
	}
	if t.Shoulder.Min >= t.Shoulder.Max || t.Elbow.Min > t.Elbow.Max {
		return fmt.Errorf("%w: empty absolute bounds", ErrInvalidTable)
	}

	edge := t.Shoulder.Min
	for i, r := range t.Rows {
		if r.ShoulderLow != edge {
			return fmt.Errorf("%w: row %d starts at %g, want %g", ErrInvalidTable, i, r.ShoulderLow, edge)
		}
		if r.ShoulderHigh <= r.ShoulderLow {
			return fmt.Errorf("%w: row %d has empty band [%g, %g)", ErrInvalidTable, i, r.ShoulderLow, r.ShoulderHigh)
		}
		if r.ElbowLow > r.ElbowHigh {
			return fmt.Errorf("%w: row %d has empty elbow range", ErrInvalidTable, i)
		}
		edge = r.ShoulderHigh
	}
	if edge != t.Shoulder.Max {
		return fmt.Errorf("%w: bands end at %g, want %g", ErrInvalidTable, edge, t.Shoulder.Max)
	}
	return nil
}
