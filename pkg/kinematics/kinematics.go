// Package kinematics solves the inverse kinematics of the three-joint arm.
//
// The arm is a base rotation followed by a planar two-link chain: the
// shoulder pivot sits L1 above the base, the upper arm is L2 long and the
// forearm L3. All joint angles are in degrees.
package kinematics

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnreachable is returned when a target lies outside the two-link
// workspace, including acos domain violations caused by round-off at full
// extension.
var ErrUnreachable = errors.New("target out of reach")

// CartesianPose is a position in the arm's base frame.
type CartesianPose struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CylindricalPose is the teleoperation representation of a position.
// Azimuth is in radians.
type CylindricalPose struct {
	Radius  float64 `json:"radius"`
	Azimuth float64 `json:"azimuth"`
	Height  float64 `json:"height"`
}

// Cartesian converts the pose to base-frame coordinates.
func (c CylindricalPose) Cartesian() CartesianPose {
	return CartesianPose{
		X: c.Radius * math.Cos(c.Azimuth),
		Y: c.Radius * math.Sin(c.Azimuth),
		Z: c.Height,
	}
}

// Cylindrical converts the pose to radius/azimuth/height.
func (p CartesianPose) Cylindrical() CylindricalPose {
	return CylindricalPose{
		Radius:  math.Hypot(p.X, p.Y),
		Azimuth: math.Atan2(p.Y, p.X),
		Height:  p.Z,
	}
}

func (p CartesianPose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

func (c CylindricalPose) String() string {
	return fmt.Sprintf("(r=%.2f, φ=%.1f°, z=%.2f)", c.Radius, Degrees(c.Azimuth), c.Height)
}

// JointAngles is a raw kinematic solution in degrees, before any servo mapping.
type JointAngles struct {
	Base     float64
	Shoulder float64
	Elbow    float64
}

// Geometry holds the link lengths of the arm.
type Geometry struct {
	L1 float64 `json:"l1"` // shoulder pivot height above the base
	L2 float64 `json:"l2"` // upper arm
	L3 float64 `json:"l3"` // forearm
}

// DefaultGeometry returns the link lengths of the HarveStar arm in centimetres.
func DefaultGeometry() Geometry {
	return Geometry{L1: 10, L2: 13.225, L3: 14.7}
}

// Reach returns the maximum distance from the shoulder pivot to a target.
func (g Geometry) Reach() float64 {
	return g.L2 + g.L3
}

// Inverse computes the joint angles that place the end of the forearm at p.
//
// At x=y=0 the base angle is atan2(0, 0), which Go defines as 0; the
// singularity is not otherwise handled.
func (g Geometry) Inverse(p CartesianPose) (JointAngles, error) {
	r := math.Hypot(p.X, p.Y)
	dz := p.Z - g.L1
	d := math.Sqrt(r*r + dz*dz)

	if d > g.Reach() {
		return JointAngles{}, fmt.Errorf("%w: distance %.3f exceeds reach %.3f", ErrUnreachable, d, g.Reach())
	}

	elbow, err := acosDegrees((g.L2*g.L2 + g.L3*g.L3 - d*d) / (2 * g.L2 * g.L3))
	if err != nil {
		return JointAngles{}, err
	}
	beta, err := acosDegrees((g.L2*g.L2 + d*d - g.L3*g.L3) / (2 * g.L2 * d))
	if err != nil {
		return JointAngles{}, err
	}
	alpha := Degrees(math.Atan2(dz, r))

	return JointAngles{
		Base:     Degrees(math.Atan2(p.Y, p.X)),
		Shoulder: alpha + beta,
		Elbow:    elbow,
	}, nil
}

// Forward computes the position reached by the given joint angles. It is a
// diagnostic inverse of Inverse and is never used to close a control loop.
func (g Geometry) Forward(j JointAngles) CartesianPose {
	upper := Radians(j.Shoulder)
	// Elbow is the interior angle between the links.
	fore := Radians(j.Shoulder - (180 - j.Elbow))

	planar := g.L2*math.Cos(upper) + g.L3*math.Cos(fore)
	base := Radians(j.Base)

	return CartesianPose{
		X: planar * math.Cos(base),
		Y: planar * math.Sin(base),
		Z: g.L1 + g.L2*math.Sin(upper) + g.L3*math.Sin(fore),
	}
}

func acosDegrees(v float64) (float64, error) {
	// NaN fails both comparisons, so check it explicitly.
	if math.IsNaN(v) || v < -1 || v > 1 {
		return 0, fmt.Errorf("%w: acos argument %.6f outside [-1, 1]", ErrUnreachable, v)
	}
	return Degrees(math.Acos(v)), nil
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180
}
