package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/kinematics"
	"github.com/gwillem/harvestar/pkg/motion"
	"github.com/gwillem/harvestar/pkg/robot"
)

type SolveCommand struct {
	Cylindrical bool `long:"cylindrical" description:"Read the target as radius, azimuth (degrees), height"`
	Args        struct {
		A float64 `positional-arg-name:"x|radius"`
		B float64 `positional-arg-name:"y|azimuth"`
		C float64 `positional-arg-name:"z|height"`
	} `positional-args:"yes" required:"yes"`
}

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cellStyle  = lipgloss.NewStyle().Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func (c *SolveCommand) Execute(args []string) error {
	log.Init(opts.LogLevel, os.Stderr)

	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		cfg = robot.DefaultConfig()
	} else if err != nil {
		return err
	}

	target := kinematics.CartesianPose{X: c.Args.A, Y: c.Args.B, Z: c.Args.C}
	if c.Cylindrical {
		target = kinematics.CylindricalPose{
			Radius:  c.Args.A,
			Azimuth: kinematics.Radians(c.Args.B),
			Height:  c.Args.C,
		}.Cartesian()
	}

	mapper := robot.NewMapper(cfg.Geometry, cfg.Mapping)
	mc := motion.ConfigFrom(cfg)
	mc.Mapper = mapper
	mc.Logger = log.Discard()
	ctrl := motion.NewController(robot.NewSimActuator(cfg.Arm.Calibration, nil), mc)

	rows := [][]string{
		{"target", target.String()},
		{"cylindrical", target.Cylindrical().String()},
	}

	corrected := mapper.Correct(target)
	rows = append(rows, []string{"wrist", corrected.String()})

	servo, joints, solveErr := mapper.Solve(target)
	if solveErr == nil {
		fk := cfg.Geometry.Forward(joints)
		rows = append(rows,
			[]string{"joints", fmt.Sprintf("θ1 %.2f°  θ2 %.2f°  θ3 %.2f°", joints.Base, joints.Shoulder, joints.Elbow)},
			[]string{"forward", fk.String()},
			[]string{"servo", fmt.Sprintf("base %.2f°  shoulder %.2f°  elbow %.2f°", servo.Base, servo.Shoulder, servo.Elbow)},
		)
		if band, ok := cfg.Constraints.Find(servo.Shoulder); ok {
			rows = append(rows, []string{"band", band.String()})
		}
	}

	verdict := "reachable"
	if _, err := ctrl.Plan(target); err != nil {
		verdict = err.Error()
	}
	rows = append(rows, []string{"verdict", verdict})
	last := len(rows) - 1
	failed := verdict != "reachable"

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case col == 0:
				return labelStyle
			case row == last && failed:
				return badStyle
			case row == last:
				return okStyle
			default:
				return cellStyle
			}
		})

	fmt.Println(t.Render())
	return nil
}
