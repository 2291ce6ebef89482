package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/harvestar/pkg/constraint"
	"github.com/gwillem/harvestar/pkg/kinematics"
)

const DefaultConfigFile = "harvestar.json"

// Duration is a time.Duration that reads and writes JSON as "20ms".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Bare numbers are milliseconds.
		var ms float64
		if err2 := json.Unmarshal(b, &ms); err2 != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(ms * float64(time.Millisecond))
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config holds the robot configuration
type Config struct {
	Arm         ArmConfig           `json:"arm"`
	Link        LinkConfig          `json:"link"`
	Geometry    kinematics.Geometry `json:"geometry"`
	Mapping     MappingConfig       `json:"mapping"`
	Constraints constraint.Table    `json:"constraints"`
	Motion      MotionConfig        `json:"motion"`
	Gripper     GripperConfig       `json:"gripper"`
	Teleop      TeleopConfig        `json:"teleop"`
	Sequence    []SequenceStep      `json:"sequence"`
}

// ArmConfig holds the servo bus and per-joint calibration.
type ArmConfig struct {
	Port        string      `json:"port"`
	BaudRate    int         `json:"baud_rate"`
	Calibration Calibration `json:"calibration,omitempty"`
}

// IsCalibrated returns true if the arm has calibration data
func (a *ArmConfig) IsCalibrated() bool {
	return len(a.Calibration) > 0
}

// LinkConfig is the serial line carrying teleoperation commands.
type LinkConfig struct {
	Port     string `json:"port"`
	BaudRate int    `json:"baud_rate"`
}

// MappingConfig converts kinematic angles to servo space and corrects for
// the gripper tip sitting ahead of the wrist axis.
type MappingConfig struct {
	BaseScale      float64 `json:"base_scale"`
	BaseOffset     float64 `json:"base_offset"`
	ShoulderOffset float64 `json:"shoulder_offset"`
	WristOffset    float64 `json:"wrist_offset"`
	WristLift      float64 `json:"wrist_lift"`
}

// MotionConfig controls joint interpolation.
type MotionConfig struct {
	StepSize  float64  `json:"step_size"`
	StepDelay Duration `json:"step_delay"`
}

// GripperConfig is the range the gripper is clamped to.
type GripperConfig struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// TeleopConfig holds the teleoperation start pose and loop timing.
type TeleopConfig struct {
	Start        kinematics.CartesianPose `json:"start"`
	StartGripper float64                  `json:"start_gripper"`
	PollInterval Duration                 `json:"poll_interval"`
	Settle       Duration                 `json:"settle"`
	Cooldown     Duration                 `json:"cooldown"`
}

// SequenceStep is one entry of a scripted run. Azimuth is in degrees here
// since the file is edited by hand.
type SequenceStep struct {
	Radius     float64  `json:"radius"`
	AzimuthDeg float64  `json:"azimuth_deg"`
	Height     float64  `json:"height"`
	Gripper    *float64 `json:"gripper,omitempty"`
	Pause      Duration `json:"pause"`
}

// Pose returns the step target.
func (s SequenceStep) Pose() kinematics.CylindricalPose {
	return kinematics.CylindricalPose{
		Radius:  s.Radius,
		Azimuth: kinematics.Radians(s.AzimuthDeg),
		Height:  s.Height,
	}
}

// DefaultConfig returns a configuration for the HarveStar arm with the
// pick-and-place demo sequence. Ports are left empty.
func DefaultConfig() *Config {
	open, closed := 80.0, 15.0
	return &Config{
		Arm: ArmConfig{
			BaudRate:    1_000_000,
			Calibration: DefaultCalibration(),
		},
		Link:        LinkConfig{BaudRate: 9600},
		Geometry:    kinematics.DefaultGeometry(),
		Constraints: constraint.Default(),
		Mapping: MappingConfig{
			BaseScale:      1.5,
			BaseOffset:     90,
			ShoulderOffset: 110,
			WristOffset:    10.9,
			WristLift:      1.8,
		},
		Motion: MotionConfig{
			StepSize:  1,
			StepDelay: Duration(time.Millisecond),
		},
		Gripper: GripperConfig{Min: 15, Max: 85},
		Teleop: TeleopConfig{
			Start:        kinematics.CartesianPose{X: 18, Y: 20, Z: 5},
			StartGripper: 90,
			PollInterval: Duration(20 * time.Millisecond),
			Settle:       Duration(50 * time.Millisecond),
			Cooldown:     Duration(5 * time.Second),
		},
		Sequence: []SequenceStep{
			{Radius: 25, AzimuthDeg: 0, Height: 15, Gripper: &open, Pause: Duration(2 * time.Second)},
			{Radius: 30, AzimuthDeg: 0, Height: 8, Pause: Duration(2 * time.Second)},
			{Radius: 30, AzimuthDeg: 0, Height: 8, Gripper: &closed, Pause: Duration(2 * time.Second)},
			{Radius: 30, AzimuthDeg: 0, Height: 25, Pause: Duration(2 * time.Second)},
			{Radius: 30, AzimuthDeg: 40, Height: 20, Pause: Duration(2 * time.Second)},
			{Radius: 30, AzimuthDeg: 40, Height: 20, Gripper: &open, Pause: Duration(time.Second)},
		},
	}
}

// Validate checks the parts of the configuration the controllers rely on.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Arm.Calibration.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("calibration: %w", err))
	}
	if err := c.Constraints.Verify(); err != nil {
		errs = append(errs, err)
	}
	if c.Geometry.L2 <= 0 || c.Geometry.L3 <= 0 {
		errs = append(errs, errors.New("geometry: link lengths must be positive"))
	}
	if c.Motion.StepSize <= 0 {
		errs = append(errs, errors.New("motion: step_size must be positive"))
	}
	if c.Gripper.Min > c.Gripper.Max {
		errs = append(errs, errors.New("gripper: min above max"))
	}
	return errors.Join(errs...)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their DefaultConfig values.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	cfg := DefaultConfig()
	// json reuses existing slice elements, so decode lists into empty slices.
	cfg.Sequence = nil
	cfg.Constraints.Rows = nil
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Sequence == nil {
		cfg.Sequence = defaults.Sequence
	}
	if cfg.Constraints.Rows == nil {
		cfg.Constraints.Rows = defaults.Constraints.Rows
	}
	return cfg, nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

