// Package harvestar controls the HarveStar harvesting arm: a three-joint
// arm with a gripper, driven by bus servos.
//
// Targets are gripper-tip positions in centimetres. They are solved by
// inverse kinematics, mapped to servo angles, checked against a table of
// mechanically safe shoulder/elbow combinations and then approached one
// joint at a time in small steps.
//
// # Installation
//
//	go install github.com/gwillem/harvestar/cmd/harvestar@latest
//
// # Usage
//
// Detect the servo bus and command link and record the joint ranges:
//
//	harvestar setup
//
// Drive the arm from a host over the command link, with the host running
// the key sender:
//
//	harvestar teleoperate
//	harvestar remote --port /dev/ttyUSB1
//
// Or play the pick-and-place sequence from the configuration:
//
//	harvestar sequence
//
// # Packages
//
//   - cmd/harvestar: CLI with setup, teleoperate, sequence, remote, solve and status commands
//   - pkg/kinematics: inverse and forward kinematics
//   - pkg/constraint: shoulder/elbow safety table
//   - pkg/robot: joints, calibration, configuration, servo bus and mapping
//   - pkg/motion: stepped motion controller and sequence player
//   - pkg/teleop: wire protocol, command interpreter and key sender
//   - pkg/supervisor: reboot-on-failure loop
package harvestar
