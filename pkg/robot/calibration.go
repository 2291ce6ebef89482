package robot

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"
)

// ServoCalibration holds calibration data for a single joint servo.
//
// Servo-space angles run from 0 to ActuationRange. On a hobby PWM servo the
// angle maps linearly onto [MinPulse, MaxPulse] microseconds; on a bus servo
// it maps onto the raw position ticks [RangeMin, RangeMax]. A joint mounted in
// reverse has RangeMin above RangeMax, so 0° lands on the higher tick.
type ServoCalibration struct {
	ID             int     `json:"id"`
	MinPulse       int     `json:"min_pulse_us"`
	MaxPulse       int     `json:"max_pulse_us"`
	ActuationRange float64 `json:"actuation_range"`
	RangeMin       int     `json:"range_min"`
	RangeMax       int     `json:"range_max"`
	StartAngle     float64 `json:"start_angle"`
}

// Calibration holds calibration data for all joints, keyed by joint name.
type Calibration map[Joint]ServoCalibration

// DefaultCalibration returns the servo setup of the HarveStar arm.
// Bus tick ranges assume a 4096-step servo centred on its travel.
func DefaultCalibration() Calibration {
	return Calibration{
		Base:     {ID: 1, MinPulse: 500, MaxPulse: 2500, ActuationRange: 180, RangeMin: 0, RangeMax: 2048, StartAngle: 90},
		Shoulder: {ID: 2, MinPulse: 500, MaxPulse: 1500, ActuationRange: 90, RangeMin: 1024, RangeMax: 2048, StartAngle: 0},
		Elbow:    {ID: 3, MinPulse: 500, MaxPulse: 1500, ActuationRange: 90, RangeMin: 1024, RangeMax: 2048, StartAngle: 60},
		Gripper:  {ID: 4, MinPulse: 850, MaxPulse: 2000, ActuationRange: 90, RangeMin: 1024, RangeMax: 2048, StartAngle: 90},
	}
}

// LoadCalibration loads calibration data from a JSON file.
func LoadCalibration(path string) (Calibration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calibration file: %w", err)
	}

	// Parse into a map with string keys first
	var raw map[string]ServoCalibration
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse calibration JSON: %w", err)
	}

	cal := make(Calibration, len(raw))
	for name, sc := range raw {
		cal[Joint(name)] = sc
	}

	return cal, nil
}

// Clamp limits a servo-space angle to [0, ActuationRange].
func (c ServoCalibration) Clamp(deg float64) float64 {
	return math.Max(0, math.Min(c.ActuationRange, deg))
}

// InRange reports whether deg is a valid servo-space angle.
func (c ServoCalibration) InRange(deg float64) bool {
	return deg >= 0 && deg <= c.ActuationRange
}

// Raw converts a servo-space angle to a raw bus position.
func (c ServoCalibration) Raw(deg float64) int {
	if c.ActuationRange == 0 {
		return c.RangeMin
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(math.Round(c.Clamp(deg)/c.ActuationRange*rangeSize)) + c.RangeMin
}

// Angle converts a raw bus position to a servo-space angle.
func (c ServoCalibration) Angle(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return float64(raw-c.RangeMin) / rangeSize * c.ActuationRange
}

// PulseWidth returns the PWM pulse that holds a hobby servo at deg.
func (c ServoCalibration) PulseWidth(deg float64) time.Duration {
	if c.ActuationRange == 0 {
		return time.Duration(c.MinPulse) * time.Microsecond
	}
	span := float64(c.MaxPulse - c.MinPulse)
	us := float64(c.MinPulse) + c.Clamp(deg)/c.ActuationRange*span
	return time.Duration(math.Round(us)) * time.Microsecond
}

// ServoIDs returns the servo IDs for all joints in the calibration.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, name := range AllJoints() {
		if sc, ok := c[name]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns joint name and calibration for a given servo ID.
func (c Calibration) ByID(id int) (Joint, ServoCalibration, bool) {
	for name, sc := range c {
		if sc.ID == id {
			return name, sc, true
		}
	}
	return "", ServoCalibration{}, false
}

// StartAngles returns the power-on angles of the arm joints.
func (c Calibration) StartAngles() ServoAngles {
	return ServoAngles{
		Base:     c[Base].StartAngle,
		Shoulder: c[Shoulder].StartAngle,
		Elbow:    c[Elbow].StartAngle,
	}
}

// Validate checks that every joint is calibrated with a usable range.
func (c Calibration) Validate() error {
	seen := make(map[int]Joint, len(c))
	for _, name := range AllJoints() {
		sc, ok := c[name]
		if !ok {
			return fmt.Errorf("joint %s not calibrated", name)
		}
		if sc.ActuationRange <= 0 {
			return fmt.Errorf("joint %s: actuation range must be positive", name)
		}
		if sc.RangeMin == sc.RangeMax {
			return fmt.Errorf("joint %s: empty tick range at %d", name, sc.RangeMin)
		}
		if sc.MaxPulse < sc.MinPulse {
			return fmt.Errorf("joint %s: pulse range inverted", name)
		}
		if !sc.InRange(sc.StartAngle) {
			return fmt.Errorf("joint %s: start angle %g outside [0, %g]", name, sc.StartAngle, sc.ActuationRange)
		}
		if other, dup := seen[sc.ID]; dup {
			return fmt.Errorf("joints %s and %s share servo ID %d", other, name, sc.ID)
		}
		seen[sc.ID] = name
	}
	return nil
}

// TickRange is the span of raw positions recorded for a joint while it was
// moved by hand.
type TickRange struct {
	Min, Max int
	Reversed bool // joint angle grows as the tick count falls
}

// WithRanges returns a copy of c with the recorded ranges applied. Joints with
// no recording, or one that never moved, keep their current range.
func (c Calibration) WithRanges(recorded map[Joint]TickRange) Calibration {
	out := make(Calibration, len(c))
	for name, sc := range c {
		if r, ok := recorded[name]; ok && r.Max > r.Min {
			sc.RangeMin, sc.RangeMax = r.Min, r.Max
			if r.Reversed {
				sc.RangeMin, sc.RangeMax = r.Max, r.Min
			}
		}
		out[name] = sc
	}
	return out
}
