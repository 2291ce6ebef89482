// Package teleop provides teleoperation control for the arm: it reads
// incremental commands from a host over a line-oriented link and turns them
// into validated moves.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/kinematics"
	"github.com/gwillem/harvestar/pkg/motion"
	"github.com/gwillem/harvestar/pkg/robot"
)

// State is a snapshot published after every handled line.
type State struct {
	Arm       motion.ArmState
	Servo     robot.ServoAngles
	Stats     motion.Stats
	Line      string
	Accepted  bool
	Timestamp time.Time
	Error     error
}

// Controller runs the teleoperation loop.
type Controller struct {
	source       LineSource
	motion       *motion.Controller
	start        kinematics.CartesianPose
	startGripper float64
	poll         time.Duration
	settle       time.Duration
	logger       *slog.Logger

	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the controller.
type Config struct {
	Source       LineSource
	Motion       *motion.Controller
	Start        kinematics.CartesianPose
	StartGripper float64
	PollInterval time.Duration // idle wait between polls
	Settle       time.Duration // pause after a handled line
	Logger       *slog.Logger
}

// NewController creates a new teleoperation controller.
func NewController(cfg Config) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = log.L()
	}

	return &Controller{
		source:       cfg.Source,
		motion:       cfg.Motion,
		start:        cfg.Start,
		startGripper: cfg.StartGripper,
		poll:         cfg.PollInterval,
		settle:       cfg.Settle,
		logger:       cfg.Logger,
		stateCh:      make(chan State, 1),
		logCh:        make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

func (c *Controller) log(format string, args ...any) {
	text := fmt.Sprintf(format, args...)
	c.logger.Info(text)

	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), text)
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start moves to the start pose, discards stale input and runs the command
// loop until ctx is cancelled or a fatal error occurs. Unattainable targets
// are not fatal; actuator and link failures are.
func (c *Controller) Start(ctx context.Context) error {
	grip := c.startGripper
	if err := c.motion.MoveTo(ctx, c.start, &grip); err != nil {
		return fmt.Errorf("move to start pose %v: %w", c.start, err)
	}
	c.log("At start pose %s", c.motion.State())

	if err := c.source.Drain(); err != nil {
		return err
	}
	c.publish("", true, nil)
	c.log("Teleoperation started")

	for {
		if err := ctx.Err(); err != nil {
			c.log("Teleoperation stopped")
			return err
		}

		line, ok, err := c.source.Poll()
		if err != nil {
			c.publish("", false, err)
			return err
		}
		if !ok {
			// Cancellation is picked up at the top of the loop.
			_ = sleep(ctx, c.poll)
			continue
		}

		if err := c.handle(ctx, line); err != nil {
			c.publish(line, false, err)
			return err
		}
		_ = sleep(ctx, c.settle)
	}
}

// handle applies one line. Only fatal errors are returned.
func (c *Controller) handle(ctx context.Context, line string) error {
	delta, err := ParseLine(line)
	if err != nil {
		c.log("Ignored: %v", err)
	}
	if delta.Tokens == 0 {
		return nil
	}

	committed := c.motion.State()
	accepted := true

	if candidate := delta.Apply(committed.Pose); delta.MovesArm() && candidate != committed.Pose {
		err := c.motion.MoveCylindrical(ctx, candidate, nil)
		if err != nil {
			if !motion.Recoverable(err) {
				return err
			}
			accepted = false
			c.log("Rejected %s: %v", candidate, err)

			// Re-issue the committed pose so the servos track the state.
			if err := c.motion.MoveCylindrical(ctx, committed.Pose, nil); err != nil {
				if !motion.Recoverable(err) {
					return err
				}
				c.log("Committed pose no longer valid: %v", err)
			}
		}
	}

	if delta.Gripper != 0 {
		if _, err := c.motion.SetGripper(ctx, committed.Gripper+delta.Gripper); err != nil {
			return err
		}
	}

	c.publish(line, accepted, nil)
	return nil
}

func (c *Controller) publish(line string, accepted bool, err error) {
	c.sendState(State{
		Arm:       c.motion.State(),
		Servo:     c.motion.Servo(),
		Stats:     c.motion.Stats(),
		Line:      line,
		Accepted:  accepted,
		Timestamp: time.Now(),
		Error:     err,
	})
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// IsStopped reports whether err only means the loop was asked to stop.
func IsStopped(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
