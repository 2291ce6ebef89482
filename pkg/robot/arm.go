package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm drives the joint servos over a Feetech STS bus.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

var _ Actuator = (*Arm)(nil)

// NewArm opens the servo bus and creates the servo group.
func NewArm(cfg ArmConfig) (*Arm, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = 1_000_000
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	// Create servo group from calibration IDs
	group := feetech.NewServoGroupByIDs(bus, cfg.Calibration.ServoIDs()...)

	return &Arm{
		bus:         bus,
		group:       group,
		calibration: cfg.Calibration,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// SetAngle writes the bus position for a servo-space angle.
func (a *Arm) SetAngle(ctx context.Context, joint Joint, deg float64) error {
	cal, ok := a.calibration[joint]
	if !ok {
		return fmt.Errorf("joint %s not calibrated", joint)
	}

	pos := feetech.PositionMap{cal.ID: cal.Raw(deg)}
	if err := a.group.SetPositions(ctx, pos); err != nil {
		return fmt.Errorf("write %s: %w", joint, err)
	}
	return nil
}

// ReadAngles reads the current servo-space angle of every joint.
func (a *Arm) ReadAngles(ctx context.Context) (map[Joint]float64, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	angles := make(map[Joint]float64, len(rawPositions))
	for id, raw := range rawPositions {
		name, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		angles[name] = cal.Angle(raw)
	}

	return angles, nil
}
