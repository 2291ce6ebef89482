package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/harvestar/pkg/robot"
)

type StatusCommand struct {
	Calibration string `long:"calibration" description:"Calibration file overriding the one in the configuration"`
}

// Execute reads every joint off the bus without enabling torque.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Calibration)
	if err != nil {
		return err
	}
	if cfg.Arm.Port == "" {
		return fmt.Errorf("servo bus port not configured, run 'harvestar setup' first")
	}

	arm, err := robot.NewArm(cfg.Arm)
	if err != nil {
		return err
	}
	defer arm.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	angles, err := arm.ReadAngles(ctx)
	if err != nil {
		return err
	}

	var rows [][]string
	for _, j := range robot.AllJoints() {
		sc := cfg.Arm.Calibration[j]
		reading := "no reply"
		if deg, ok := angles[j]; ok {
			reading = fmt.Sprintf("%.1f°", deg)
		}
		rows = append(rows, []string{
			string(j),
			fmt.Sprintf("%d", sc.ID),
			reading,
			fmt.Sprintf("%.0f°", sc.StartAngle),
			fmt.Sprintf("%d-%d", sc.RangeMin, sc.RangeMax),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "ID", "Angle", "Start", "Ticks").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 {
				return labelStyle
			}
			return cellStyle
		})

	fmt.Println(headerStyle.Render("HarveStar Status") + dimStyle.Render("  "+cfg.Arm.Port))
	fmt.Println(t.Render())
	return nil
}
