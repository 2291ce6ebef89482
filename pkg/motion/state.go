// Package motion validates arm targets and drives the joints there with
// bounded-step interpolation.
package motion

import (
	"fmt"

	"github.com/gwillem/harvestar/pkg/kinematics"
)

// ArmState is where the arm believes it is. The Controller is its only
// writer; everyone else reads copies.
type ArmState struct {
	Pose    kinematics.CylindricalPose
	Gripper float64
}

func (s ArmState) String() string {
	return fmt.Sprintf("%s gripper=%.0f°", s.Pose, s.Gripper)
}

// Stats counts controller outcomes.
type Stats struct {
	Moves    uint64 // committed arm moves
	Rejected uint64 // unreachable or constraint violations
	Commands uint64 // actuator writes
}
