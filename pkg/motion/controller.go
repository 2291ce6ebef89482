package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/constraint"
	"github.com/gwillem/harvestar/pkg/kinematics"
	"github.com/gwillem/harvestar/pkg/robot"
)

// Recoverable reports whether err means the target was simply not
// attainable. Such moves commanded no arm joint; anything else came from the
// actuators and is fatal.
func Recoverable(err error) bool {
	return errors.Is(err, kinematics.ErrUnreachable) || errors.Is(err, constraint.ErrViolation)
}

// Config holds the dependencies and tuning of a Controller.
type Config struct {
	Mapper      *robot.Mapper
	Constraints constraint.Table
	Calibration robot.Calibration
	Motion      robot.MotionConfig
	Gripper     robot.GripperConfig

	// Initial is the state assumed before the first move.
	Initial ArmState

	Logger *slog.Logger
	// Sleep replaces time.Sleep between interpolation steps.
	Sleep func(time.Duration)
}

// ConfigFrom builds a controller config from the robot configuration.
func ConfigFrom(rc *robot.Config) Config {
	return Config{
		Mapper:      robot.NewMapper(rc.Geometry, rc.Mapping),
		Constraints: rc.Constraints,
		Calibration: rc.Arm.Calibration,
		Motion:      rc.Motion,
		Gripper:     rc.Gripper,
		Initial: ArmState{
			Gripper: rc.Arm.Calibration[robot.Gripper].StartAngle,
		},
	}
}

// Controller validates targets against the constraint table and moves the
// joints one after another in fixed-size steps.
type Controller struct {
	actuator robot.Actuator
	mapper   *robot.Mapper
	table    constraint.Table
	cal      robot.Calibration
	step     float64
	delay    time.Duration
	gripper  robot.GripperConfig
	logger   *slog.Logger
	sleep    func(time.Duration)

	state ArmState
	servo robot.ServoAngles // last commanded
	stats Stats
}

// NewController creates a controller driving act. The joints are assumed to
// sit at their calibrated start angles.
func NewController(act robot.Actuator, cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = log.L()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = time.Sleep
	}
	step := cfg.Motion.StepSize
	if step <= 0 {
		step = 1
	}

	return &Controller{
		actuator: act,
		mapper:   cfg.Mapper,
		table:    cfg.Constraints,
		cal:      cfg.Calibration,
		step:     step,
		delay:    cfg.Motion.StepDelay.D(),
		gripper:  cfg.Gripper,
		logger:   cfg.Logger,
		sleep:    cfg.Sleep,
		state:    cfg.Initial,
		servo:    cfg.Calibration.StartAngles(),
	}
}

// State returns a copy of the arm state.
func (c *Controller) State() ArmState {
	return c.state
}

// Servo returns the last commanded servo angles.
func (c *Controller) Servo() robot.ServoAngles {
	return c.servo
}

// Stats returns the outcome counters.
func (c *Controller) Stats() Stats {
	return c.stats
}

// Home commands every arm joint straight to its calibrated start angle. The
// gripper start angle goes through the same clamp as SetGripper.
func (c *Controller) Home(ctx context.Context) error {
	start := c.cal.StartAngles()
	for _, j := range robot.ArmJoints() {
		deg, _ := start.Get(j)
		if err := c.command(ctx, j, deg); err != nil {
			return fmt.Errorf("home %s: %w", j, err)
		}
	}

	grip, err := c.SetGripper(ctx, c.cal[robot.Gripper].StartAngle)
	if err != nil {
		return fmt.Errorf("home: %w", err)
	}

	c.logger.Info("arm homed", "base", start.Base, "shoulder", start.Shoulder, "elbow", start.Elbow, "gripper", grip)
	return nil
}

// Plan solves and validates a target without moving anything.
func (c *Controller) Plan(target kinematics.CartesianPose) (robot.ServoAngles, error) {
	servo, _, err := c.mapper.Solve(target)
	if err != nil {
		return robot.ServoAngles{}, fmt.Errorf("solve %v: %w", target, err)
	}
	if !c.cal[robot.Base].InRange(servo.Base) {
		return servo, fmt.Errorf("%w: base %.2f° outside [0, %g]", constraint.ErrViolation, servo.Base, c.cal[robot.Base].ActuationRange)
	}
	if err := c.table.Check(servo.Shoulder, servo.Elbow); err != nil {
		return servo, err
	}
	return servo, nil
}

// MoveTo moves the gripper tip to target. See MoveCylindrical.
func (c *Controller) MoveTo(ctx context.Context, target kinematics.CartesianPose, gripper *float64) error {
	return c.move(ctx, target, target.Cylindrical(), gripper)
}

// MoveCylindrical moves the gripper tip to target.
//
// An unattainable target returns an error for which Recoverable is true;
// no arm joint is commanded and the arm state is unchanged. A gripper angle,
// if given, is clamped and commanded whether or not the arm moved.
func (c *Controller) MoveCylindrical(ctx context.Context, target kinematics.CylindricalPose, gripper *float64) error {
	return c.move(ctx, target.Cartesian(), target, gripper)
}

func (c *Controller) move(ctx context.Context, cart kinematics.CartesianPose, cyl kinematics.CylindricalPose, gripper *float64) error {
	// In-flight motion runs to completion.
	ctx = context.WithoutCancel(ctx)

	err := c.moveArm(ctx, cart, cyl)
	if gripper != nil {
		if _, gerr := c.SetGripper(ctx, *gripper); gerr != nil {
			return errors.Join(err, gerr)
		}
	}
	return err
}

func (c *Controller) moveArm(ctx context.Context, cart kinematics.CartesianPose, cyl kinematics.CylindricalPose) error {
	target, err := c.Plan(cart)
	if err != nil {
		c.stats.Rejected++
		c.logger.Debug("move rejected", "target", cyl, "err", err)
		return err
	}

	for _, j := range robot.ArmJoints() {
		from, _ := c.servo.Get(j)
		to, _ := target.Get(j)
		if err := c.sweep(ctx, j, from, to); err != nil {
			return fmt.Errorf("drive %s: %w", j, err)
		}
	}

	c.state.Pose = cyl
	c.stats.Moves++
	c.logger.Debug("moved", "target", cyl, "base", target.Base, "shoulder", target.Shoulder, "elbow", target.Elbow)
	return nil
}

// sweep steps joint from one angle toward another, then snaps to the exact
// target. Every intermediate angle lies strictly between from and to.
func (c *Controller) sweep(ctx context.Context, j robot.Joint, from, to float64) error {
	dir := 1.0
	if to < from {
		dir = -1
	}
	steps := int(math.Ceil(math.Abs(to-from)/c.step)) - 1

	for k := 1; k <= steps; k++ {
		if err := c.command(ctx, j, from+dir*float64(k)*c.step); err != nil {
			return err
		}
		if c.delay > 0 {
			c.sleep(c.delay)
		}
	}
	return c.command(ctx, j, to)
}

func (c *Controller) command(ctx context.Context, j robot.Joint, deg float64) error {
	if err := c.actuator.SetAngle(ctx, j, deg); err != nil {
		return err
	}
	c.servo = c.servo.Set(j, deg)
	c.stats.Commands++
	return nil
}

// SetGripper clamps deg to the gripper range and commands it. It returns the
// angle actually commanded.
func (c *Controller) SetGripper(ctx context.Context, deg float64) (float64, error) {
	clamped := math.Max(c.gripper.Min, math.Min(c.gripper.Max, deg))
	if sc, ok := c.cal[robot.Gripper]; ok {
		clamped = sc.Clamp(clamped)
	}

	if err := c.actuator.SetAngle(ctx, robot.Gripper, clamped); err != nil {
		return c.state.Gripper, fmt.Errorf("drive gripper: %w", err)
	}
	c.stats.Commands++
	c.state.Gripper = clamped
	return clamped, nil
}
