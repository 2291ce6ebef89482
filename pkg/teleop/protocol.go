package teleop

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gwillem/harvestar/pkg/kinematics"
)

// ErrMalformed is returned for lines containing unknown tokens. It is never
// fatal; the recognized tokens of the line still apply.
var ErrMalformed = errors.New("malformed command")

// Step sizes applied per token.
const (
	RadiusStep  = 0.5
	AzimuthStep = 2.0 // degrees
	HeightStep  = 0.5
	GripperStep = 5.0
)

// Tokens of the wire protocol.
const (
	TokenForward  = "w"
	TokenBackward = "s"
	TokenLeft     = "a"
	TokenRight    = "d"
	TokenUp       = "up"
	TokenDown     = "down"
	TokenClose    = "q"
	TokenOpen     = "e"
)

// ControlKeys lists every token in the order the host sender emits them.
var ControlKeys = []string{
	TokenForward, TokenBackward, TokenLeft, TokenRight,
	TokenUp, TokenDown, TokenClose, TokenOpen,
}

// Delta is the pose change requested by one line. Azimuth is in radians.
type Delta struct {
	Radius  float64
	Azimuth float64
	Height  float64
	Gripper float64

	Tokens  int // recognized tokens
	Unknown []string
}

// ParseLine folds the comma-separated tokens of line into a Delta. Repeated
// tokens apply repeatedly; order does not matter. Unknown tokens are skipped
// and reported through an ErrMalformed error alongside the usable Delta.
func ParseLine(line string) (Delta, error) {
	var d Delta
	step := kinematics.Radians(AzimuthStep)

	for _, field := range strings.Split(line, ",") {
		tok := strings.TrimSpace(field)
		switch tok {
		case "":
			continue
		case TokenForward:
			d.Radius += RadiusStep
		case TokenBackward:
			d.Radius -= RadiusStep
		case TokenLeft:
			d.Azimuth -= step
		case TokenRight:
			d.Azimuth += step
		case TokenUp:
			d.Height += HeightStep
		case TokenDown:
			d.Height -= HeightStep
		case TokenClose:
			d.Gripper -= GripperStep
		case TokenOpen:
			d.Gripper += GripperStep
		default:
			d.Unknown = append(d.Unknown, tok)
			continue
		}
		d.Tokens++
	}

	if len(d.Unknown) > 0 {
		return d, fmt.Errorf("%w: unknown tokens %q", ErrMalformed, d.Unknown)
	}
	return d, nil
}

// MovesArm reports whether the delta changes the arm pose.
func (d Delta) MovesArm() bool {
	return d.Radius != 0 || d.Azimuth != 0 || d.Height != 0
}

// Apply returns pose shifted by the delta. The radius stops at 0.
func (d Delta) Apply(pose kinematics.CylindricalPose) kinematics.CylindricalPose {
	return kinematics.CylindricalPose{
		Radius:  math.Max(0, pose.Radius+d.Radius),
		Azimuth: pose.Azimuth + d.Azimuth,
		Height:  pose.Height + d.Height,
	}
}
