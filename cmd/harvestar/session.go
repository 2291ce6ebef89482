package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/motion"
	"github.com/gwillem/harvestar/pkg/robot"
	"github.com/gwillem/harvestar/pkg/supervisor"
)

// ArmOptions are shared by the commands that drive the arm.
type ArmOptions struct {
	DryRun      bool   `long:"dry-run" description:"Log servo commands instead of driving the bus"`
	Calibration string `long:"calibration" description:"Calibration file overriding the one in the configuration"`
}

func loadConfig(calibration string) (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no configuration at %s, run 'harvestar setup' first", opts.Config)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", opts.Config, err)
	}

	if calibration != "" {
		cal, err := robot.LoadCalibration(calibration)
		if err != nil {
			return nil, err
		}
		cfg.Arm.Calibration = cal
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// openActuator returns the servo bus, or a simulator in dry-run mode, and a
// function releasing it.
func openActuator(ctx context.Context, cfg *robot.Config, dryRun bool) (robot.Actuator, func(), error) {
	if dryRun {
		sim := robot.NewSimActuator(cfg.Arm.Calibration, log.With("component", "sim"))
		return sim, func() {}, nil
	}
	if cfg.Arm.Port == "" || !cfg.Arm.IsCalibrated() {
		return nil, nil, errors.New("servo bus not set up, run 'harvestar setup' first")
	}

	arm, err := robot.NewArm(cfg.Arm)
	if err != nil {
		return nil, nil, err
	}
	if err := arm.Enable(ctx); err != nil {
		arm.Close()
		return nil, nil, fmt.Errorf("enable torque: %w", err)
	}
	log.Debug("servo bus open", "port", cfg.Arm.Port, "ids", cfg.Arm.Calibration.ServoIDs())

	release := func() {
		// Release torque even when the session was cancelled.
		dctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := arm.Disable(dctx); err != nil {
			log.Warn("disable torque", "err", err)
		}
		arm.Close()
	}
	return arm, release, nil
}

func newMotion(cfg *robot.Config, act robot.Actuator) *motion.Controller {
	mc := motion.ConfigFrom(cfg)
	mc.Logger = log.With("component", "motion")
	return motion.NewController(act, mc)
}

func newSupervisor(cfg *robot.Config, maxReboots int) *supervisor.Supervisor {
	sup := supervisor.New()
	if d := cfg.Teleop.Cooldown.D(); d > 0 {
		sup.Cooldown = d
	}
	sup.MaxReboots = maxReboots
	sup.Logger = log.With("component", "supervisor")
	return sup
}
