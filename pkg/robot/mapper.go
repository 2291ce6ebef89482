package robot

import (
	"math"

	"github.com/gwillem/harvestar/pkg/kinematics"
)

// Mapper turns a gripper target into servo angles: it moves the target back
// to the wrist axis, solves inverse kinematics and maps the solution into
// servo space.
type Mapper struct {
	geometry kinematics.Geometry
	cfg      MappingConfig
}

// NewMapper creates a mapper for the given geometry and mapping.
func NewMapper(g kinematics.Geometry, cfg MappingConfig) *Mapper {
	return &Mapper{geometry: g, cfg: cfg}
}

// Geometry returns the link lengths used for solving.
func (m *Mapper) Geometry() kinematics.Geometry {
	return m.geometry
}

// Correct shifts a gripper-tip target to the wrist axis: back along the
// base heading by the wrist offset, and up by the wrist lift.
func (m *Mapper) Correct(p kinematics.CartesianPose) kinematics.CartesianPose {
	heading := math.Atan2(p.Y, p.X)
	return kinematics.CartesianPose{
		X: p.X - m.cfg.WristOffset*math.Cos(heading),
		Y: p.Y - m.cfg.WristOffset*math.Sin(heading),
		Z: p.Z + m.cfg.WristLift,
	}
}

// Map converts raw kinematic angles to servo space. The elbow servo is
// measured relative to the upper arm, so it depends on the shoulder result.
func (m *Mapper) Map(j kinematics.JointAngles) ServoAngles {
	shoulder := m.cfg.ShoulderOffset - j.Shoulder
	return ServoAngles{
		Base:     j.Base*m.cfg.BaseScale + m.cfg.BaseOffset,
		Shoulder: shoulder,
		Elbow:    j.Elbow - shoulder,
	}
}

// Solve corrects p, solves it and maps the result. Errors wrap
// kinematics.ErrUnreachable.
func (m *Mapper) Solve(p kinematics.CartesianPose) (ServoAngles, kinematics.JointAngles, error) {
	j, err := m.geometry.Inverse(m.Correct(p))
	if err != nil {
		return ServoAngles{}, kinematics.JointAngles{}, err
	}
	return m.Map(j), j, nil
}
