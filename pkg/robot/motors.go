// Package robot provides the HarveStar arm hardware: joints, calibration,
// configuration, actuators and the mapping from kinematic to servo angles.
package robot

// Joint identifies an actuator on the arm.
type Joint string

// Joints of the HarveStar arm.
const (
	Base     Joint = "base"
	Shoulder Joint = "shoulder"
	Elbow    Joint = "elbow"
	Gripper  Joint = "gripper"
)

// AllJoints returns all joints in order (matching servo IDs 1-4).
func AllJoints() []Joint {
	return []Joint{
		Base,
		Shoulder,
		Elbow,
		Gripper,
	}
}

// ArmJoints returns the joints positioned by inverse kinematics, in the
// order they are moved.
func ArmJoints() []Joint {
	return []Joint{Base, Shoulder, Elbow}
}

// ServoAngles holds calibrated servo-space angles for the arm joints, in degrees.
type ServoAngles struct {
	Base     float64 `json:"base"`
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
}

// Get returns the angle of an arm joint. The gripper is not part of
// ServoAngles and yields 0, false.
func (s ServoAngles) Get(j Joint) (float64, bool) {
	switch j {
	case Base:
		return s.Base, true
	case Shoulder:
		return s.Shoulder, true
	case Elbow:
		return s.Elbow, true
	}
	return 0, false
}

// Set returns a copy with the angle of an arm joint replaced.
func (s ServoAngles) Set(j Joint, deg float64) ServoAngles {
	switch j {
	case Base:
		s.Base = deg
	case Shoulder:
		s.Shoulder = deg
	case Elbow:
		s.Elbow = deg
	}
	return s
}
