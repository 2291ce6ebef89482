package robot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvestar.json")

	cfg := DefaultConfig()
	cfg.Arm.Port = "/dev/ttyUSB0"
	cfg.Link.Port = "/dev/ttyACM0"
	cfg.Motion.StepDelay = Duration(3 * time.Millisecond)

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}

	if loaded.Arm.Port != "/dev/ttyUSB0" || loaded.Link.Port != "/dev/ttyACM0" {
		t.Errorf("ports not preserved: %+v %+v", loaded.Arm, loaded.Link)
	}
	if loaded.Motion.StepDelay.D() != 3*time.Millisecond {
		t.Errorf("step delay = %v, want 3ms", loaded.Motion.StepDelay.D())
	}
	if len(loaded.Sequence) != len(cfg.Sequence) {
		t.Fatalf("sequence has %d steps, want %d", len(loaded.Sequence), len(cfg.Sequence))
	}
	if loaded.Sequence[1].Gripper != nil {
		t.Errorf("step 1 gripper = %v, want nil", *loaded.Sequence[1].Gripper)
	}
	if g := loaded.Sequence[2].Gripper; g == nil || *g != 15 {
		t.Errorf("step 2 gripper = %v, want 15", g)
	}
	if !loaded.Arm.IsCalibrated() {
		t.Error("calibration lost in round trip")
	}
}

func TestLoadConfigFrom_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvestar.json")
	data := `{
		"link": {"port": "/dev/ttyACM1"},
		"motion": {"step_delay": 5},
		"sequence": [{"radius": 20, "azimuth_deg": 10, "height": 12, "pause": "500ms"}]
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFrom(path)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}

	if cfg.Link.Port != "/dev/ttyACM1" {
		t.Errorf("link port = %q", cfg.Link.Port)
	}
	if cfg.Motion.StepDelay.D() != 5*time.Millisecond {
		t.Errorf("bare number should be milliseconds, got %v", cfg.Motion.StepDelay.D())
	}
	if cfg.Geometry.L2 != 13.225 {
		t.Errorf("geometry default lost: %+v", cfg.Geometry)
	}
	if len(cfg.Constraints.Rows) != 18 {
		t.Errorf("constraint rows = %d, want 18", len(cfg.Constraints.Rows))
	}
	if len(cfg.Sequence) != 1 {
		t.Fatalf("sequence has %d steps, want 1", len(cfg.Sequence))
	}
	step := cfg.Sequence[0]
	if step.Gripper != nil || step.Pause.D() != 500*time.Millisecond {
		t.Errorf("unexpected step: %+v", step)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestConfig_ValidateCollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Motion.StepSize = 0
	cfg.Gripper = GripperConfig{Min: 50, Max: 10}
	cfg.Constraints.Rows = cfg.Constraints.Rows[1:]

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
