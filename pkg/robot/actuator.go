package robot

import (
	"context"
	"log/slog"
	"sync"
)

// Actuator moves a single joint to a servo-space angle.
// Calls are synchronous; no mechanical settling is awaited.
type Actuator interface {
	SetAngle(ctx context.Context, joint Joint, deg float64) error
}

// Command is one SetAngle call recorded by SimActuator.
type Command struct {
	Joint Joint
	Angle float64
}

// SimActuator is a dry-run actuator. It records every command and logs the
// PWM pulse a hobby servo would receive.
type SimActuator struct {
	calibration Calibration
	logger      *slog.Logger

	mu       sync.Mutex
	commands []Command
	angles   map[Joint]float64
}

// NewSimActuator creates a dry-run actuator. A nil logger disables logging.
func NewSimActuator(cal Calibration, logger *slog.Logger) *SimActuator {
	return &SimActuator{
		calibration: cal,
		logger:      logger,
		angles:      make(map[Joint]float64),
	}
}

// SetAngle records the command.
func (s *SimActuator) SetAngle(ctx context.Context, joint Joint, deg float64) error {
	s.mu.Lock()
	s.commands = append(s.commands, Command{Joint: joint, Angle: deg})
	s.angles[joint] = deg
	s.mu.Unlock()

	if s.logger != nil {
		if sc, ok := s.calibration[joint]; ok {
			s.logger.Debug("servo", "joint", joint, "angle", deg, "pulse", sc.PulseWidth(deg))
		}
	}
	return nil
}

// Commands returns a copy of all recorded commands.
func (s *SimActuator) Commands() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Angle returns the last angle commanded to joint.
func (s *SimActuator) Angle(joint Joint) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deg, ok := s.angles[joint]
	return deg, ok
}

// Reset clears the recorded commands.
func (s *SimActuator) Reset() {
	s.mu.Lock()
	s.commands = nil
	s.mu.Unlock()
}
