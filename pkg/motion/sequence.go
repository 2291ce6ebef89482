package motion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/robot"
)

// Player runs a scripted list of steps for an unattended pick-and-place run.
type Player struct {
	ctrl   *Controller
	steps  []robot.SequenceStep
	logger *slog.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewPlayer creates a player for steps.
func NewPlayer(ctrl *Controller, steps []robot.SequenceStep) *Player {
	return &Player{
		ctrl:   ctrl,
		steps:  steps,
		logger: log.L(),
		sleep:  sleepCtx,
	}
}

// SetLogger replaces the logger.
func (p *Player) SetLogger(l *slog.Logger) {
	p.logger = l
}

// Run executes every step in order: move, then pause. The first failure of
// any kind aborts the run; there is no resume.
func (p *Player) Run(ctx context.Context) error {
	p.logger.Info("sequence started", "steps", len(p.steps))

	for i, step := range p.steps {
		target := step.Pose()
		p.logger.Info("step", "index", i, "target", target, "gripper", step.Gripper)

		if err := p.ctrl.MoveCylindrical(ctx, target, step.Gripper); err != nil {
			return fmt.Errorf("step %d to %v: %w", i, target, err)
		}
		if err := p.sleep(ctx, step.Pause.D()); err != nil {
			return fmt.Errorf("step %d pause: %w", i, err)
		}
	}

	p.logger.Info("sequence done")
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
