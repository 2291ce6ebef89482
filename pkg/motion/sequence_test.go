package motion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/constraint"
	"github.com/gwillem/harvestar/pkg/robot"
)

func newTestPlayer(steps []robot.SequenceStep) (*Player, *Controller, *robot.SimActuator, *[]time.Duration) {
	cfg := testConfig()
	sim := robot.NewSimActuator(cfg.Calibration, nil)
	ctrl := NewController(sim, cfg)

	p := NewPlayer(ctrl, steps)
	p.SetLogger(log.Discard())
	var pauses []time.Duration
	p.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return ctx.Err()
	}
	return p, ctrl, sim, &pauses
}

func TestPlayer_DefaultSequenceCompletes(t *testing.T) {
	steps := robot.DefaultConfig().Sequence
	p, ctrl, sim, pauses := newTestPlayer(steps)

	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(*pauses) != len(steps) {
		t.Errorf("paused %d times, want %d", len(*pauses), len(steps))
	}
	if got := ctrl.Stats().Moves; got != uint64(len(steps)) {
		t.Errorf("Moves = %d, want %d", got, len(steps))
	}

	last := steps[len(steps)-1]
	if ctrl.State().Pose != last.Pose() {
		t.Errorf("final pose = %v, want %v", ctrl.State().Pose, last.Pose())
	}
	if g, _ := sim.Angle(robot.Gripper); g != 80 {
		t.Errorf("final gripper = %f, want 80", g)
	}
}

func TestPlayer_AbortsOnFirstFailure(t *testing.T) {
	steps := []robot.SequenceStep{
		{Radius: 25, Height: 15, Pause: robot.Duration(time.Second)},
		{Radius: 100, Height: 15, Pause: robot.Duration(time.Second)},
		{Radius: 30, Height: 8, Pause: robot.Duration(time.Second)},
	}
	p, ctrl, _, pauses := newTestPlayer(steps)

	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !Recoverable(err) {
		t.Errorf("error should still carry its kind: %v", err)
	}
	if ctrl.Stats().Moves != 1 {
		t.Errorf("Moves = %d, want 1", ctrl.Stats().Moves)
	}
	if len(*pauses) != 1 {
		t.Errorf("paused %d times, want 1", len(*pauses))
	}
	if ctrl.State().Pose != steps[0].Pose() {
		t.Errorf("state should stay at the last good step, got %v", ctrl.State().Pose)
	}
}

func TestPlayer_ConstraintViolationAborts(t *testing.T) {
	steps := []robot.SequenceStep{
		{Radius: 20.5, AzimuthDeg: 2, Height: 10},
	}
	p, _, sim, _ := newTestPlayer(steps)

	err := p.Run(context.Background())
	if !errors.Is(err, constraint.ErrViolation) {
		t.Fatalf("error = %v, want ErrViolation", err)
	}
	if len(sim.Commands()) != 0 {
		t.Errorf("violating step commanded the arm")
	}
}

func TestPlayer_StopsWhenCancelled(t *testing.T) {
	steps := robot.DefaultConfig().Sequence
	p, ctrl, _, _ := newTestPlayer(steps)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	// The first move still completes before the pause notices.
	if ctrl.Stats().Moves != 1 {
		t.Errorf("Moves = %d, want 1", ctrl.Stats().Moves)
	}
}
