package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/harvestar/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

type SetupCommand struct {
	SkipCalibration bool `long:"skip-calibration" description:"Only detect ports, keep the default joint ranges"`
}

const noLink = "none"

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("HarveStar Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━"))
	fmt.Println()

	// Re-running setup keeps everything but ports and calibration.
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, os.ErrNotExist) {
		cfg = robot.DefaultConfig()
	} else if err != nil {
		return fmt.Errorf("load %s: %w", opts.Config, err)
	}

	ports, err := listPorts()
	if err != nil {
		return err
	}

	fmt.Println("Scanning for the servo bus...")
	found := findArms(ports, cfg.Arm.BaudRate)
	if len(found) == 0 {
		fmt.Println("No HarveStar arm found.")
		fmt.Println("Make sure the servo board is connected and powered on.")
		os.Exit(1)
	}

	arm := found[0]
	if len(found) > 1 {
		arm = pickArm(found)
	}
	for _, a := range found {
		if a.port != arm.port {
			a.bus.Close()
		}
	}
	cfg.Arm.Port = arm.port
	fmt.Printf("  Servo bus: %s\n\n", successStyle.Render(arm.port))

	cfg.Link.Port = pickLink(ports, arm.port, cfg.Link.Port)

	if c.SkipCalibration {
		arm.bus.Close()
	} else {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render("━━━ Recording Joint Ranges ━━━"))
		fmt.Println()
		cal, err := calibrateArm(arm, cfg.Arm.Calibration)
		arm.bus.Close()
		if err != nil {
			return err
		}
		cfg.Arm.Calibration = cal
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration not saved:\n%w", err)
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Try a target with:      " + headerStyle.Render("harvestar solve 18 20 5"))
	fmt.Println("Start teleoperation:    " + headerStyle.Render("harvestar teleoperate"))
	fmt.Println("Run the demo sequence:  " + headerStyle.Render("harvestar sequence"))
	return nil
}

func listPorts() ([]string, error) {
	all, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var ports []string
	for _, p := range all {
		// Bluetooth ports on macOS
		if strings.Contains(p, "Bluetooth") {
			continue
		}
		ports = append(ports, p)
	}
	return ports, nil
}

type armInfo struct {
	port   string
	servos []feetech.FoundServo
	bus    *feetech.Bus
}

func findArms(ports []string, baud int) []armInfo {
	if baud == 0 {
		baud = 1_000_000
	}
	ids := robot.DefaultCalibration().ServoIDs()

	var arms []armInfo
	for _, port := range ports {
		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: baud,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, ids[0], ids[len(ids)-1])
		cancel()

		if err != nil || !hasServos(servos, ids) {
			bus.Close()
			continue
		}
		fmt.Printf("  Found arm on %s\n", port)
		arms = append(arms, armInfo{port: port, servos: servos, bus: bus})
	}
	return arms
}

func hasServos(servos []feetech.FoundServo, ids []int) bool {
	seen := make(map[int]bool, len(servos))
	for _, s := range servos {
		seen[s.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			return false
		}
	}
	return true
}

// pickArm wiggles the base of every candidate until the user confirms one.
func pickArm(arms []armInfo) armInfo {
	for _, arm := range arms {
		wiggleBase(arm)

		var yes bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Did the arm on %s just move?", arm.port)).
					Affirmative("Yes, use it").
					Negative("No").
					Value(&yes),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Println()
			os.Exit(0)
		}
		if yes {
			return arm
		}
	}
	fmt.Println("No arm selected.")
	os.Exit(1)
	return armInfo{}
}

func wiggleBase(arm armInfo) {
	ctx := context.Background()
	id := robot.DefaultCalibration()[robot.Base].ID

	idx := slices.IndexFunc(arm.servos, func(s feetech.FoundServo) bool { return s.ID == id })
	if idx < 0 {
		return
	}
	servo := feetech.NewServo(arm.bus, id, arm.servos[idx].Model)

	pos, err := servo.Position(ctx)
	if err != nil {
		fmt.Printf("  Error reading position: %v\n", err)
		return
	}
	if err := servo.Enable(ctx); err != nil {
		fmt.Printf("  Error enabling servo: %v\n", err)
		return
	}
	defer servo.Disable(ctx)

	fmt.Printf("\n  Wiggling base on %s...\n", arm.port)
	const amount, moveMs = 30, 500
	for _, p := range []int{pos + amount, pos - amount, pos} {
		servo.SetPositionWithTime(ctx, p, moveMs)
		time.Sleep((moveMs + 100) * time.Millisecond)
	}
}

// pickLink asks which remaining port carries the teleoperation commands.
func pickLink(ports []string, busPort, current string) string {
	options := []huh.Option[string]{huh.NewOption("None (sequence mode only)", noLink)}
	for _, p := range ports {
		if p == busPort {
			continue
		}
		options = append(options, huh.NewOption(p, p))
	}

	choice := current
	if choice == "" {
		choice = noLink
	}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the command link?").
				Description("The serial line the host remote sends keys over").
				Options(options...).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	if choice == noLink {
		return ""
	}
	return choice
}

func calibrateArm(arm armInfo, base robot.Calibration) (robot.Calibration, error) {
	ctx := context.Background()

	servos := make(map[robot.Joint]*feetech.Servo)
	for _, j := range robot.AllJoints() {
		sc := base[j]
		idx := slices.IndexFunc(arm.servos, func(s feetech.FoundServo) bool { return s.ID == sc.ID })
		if idx < 0 {
			return nil, fmt.Errorf("servo %d (%s) not on bus", sc.ID, j)
		}
		servos[j] = feetech.NewServo(arm.bus, sc.ID, arm.servos[idx].Model)
	}

	// Limp servos so the joints can be moved by hand.
	for _, s := range servos {
		s.Disable(ctx)
	}

	fmt.Println("Move every joint from one end of its travel to the other.")
	fmt.Println("The lowest reading becomes 0°, unless the joint is marked as reversed.")
	fmt.Println()

	model := newCalibrationModel(servos)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return nil, fmt.Errorf("run calibration: %w", err)
	}
	cm := final.(calibrationModel)
	if cm.aborted {
		fmt.Println("Calibration aborted, keeping the previous ranges.")
		return base, nil
	}

	reversed := askReversed()

	recorded := make(map[robot.Joint]robot.TickRange)
	for _, j := range robot.AllJoints() {
		if !cm.seen[j] || cm.maxPositions[j] == cm.minPositions[j] {
			fmt.Printf("  %s: no movement recorded, keeping %d-%d\n", j, base[j].RangeMin, base[j].RangeMax)
			continue
		}
		recorded[j] = robot.TickRange{
			Min:      cm.minPositions[j],
			Max:      cm.maxPositions[j],
			Reversed: slices.Contains(reversed, j),
		}
	}
	fmt.Println("Joint ranges recorded.")
	return base.WithRanges(recorded), nil
}

// askReversed asks which joints are mounted so that their angle grows as the
// servo ticks fall.
func askReversed() []robot.Joint {
	var options []huh.Option[robot.Joint]
	for _, j := range robot.AllJoints() {
		options = append(options, huh.NewOption(string(j), j))
	}

	var reversed []robot.Joint
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[robot.Joint]().
				Title("Which joints are mounted in reverse?").
				Description("Pick none if 0° is at the lowest reading for every joint").
				Options(options...).
				Value(&reversed),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return reversed
}

type calibrationModel struct {
	servos       map[robot.Joint]*feetech.Servo
	curPositions map[robot.Joint]int
	minPositions map[robot.Joint]int
	maxPositions map[robot.Joint]int
	seen         map[robot.Joint]bool
	quitting     bool
	aborted      bool
}

type tickMsg time.Time

func newCalibrationModel(servos map[robot.Joint]*feetech.Servo) calibrationModel {
	return calibrationModel{
		servos:       servos,
		curPositions: make(map[robot.Joint]int),
		minPositions: make(map[robot.Joint]int),
		maxPositions: make(map[robot.Joint]int),
		seen:         make(map[robot.Joint]bool),
	}
}

func calibrationTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return calibrationTick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.quitting = true
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.quitting = true
			m.aborted = true
			return m, tea.Quit
		}

	case tickMsg:
		ctx := context.Background()
		for j, servo := range m.servos {
			pos, err := servo.Position(ctx)
			if err != nil {
				continue
			}
			m.curPositions[j] = pos
			if !m.seen[j] || pos < m.minPositions[j] {
				m.minPositions[j] = pos
			}
			if !m.seen[j] || pos > m.maxPositions[j] {
				m.maxPositions[j] = pos
			}
			m.seen[j] = true
		}
		return m, calibrationTick()
	}

	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableJointStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCurrentStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	tableRangeGoodStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	tableRangeLowStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	joints := robot.AllJoints()
	rows := make([][]string, 0, len(joints))
	ranges := make([]int, 0, len(joints))
	for _, j := range joints {
		span := m.maxPositions[j] - m.minPositions[j]
		ranges = append(ranges, span)
		rows = append(rows, []string{
			string(j),
			fmt.Sprintf("%d", m.curPositions[j]),
			fmt.Sprintf("%d", m.minPositions[j]),
			fmt.Sprintf("%d", m.maxPositions[j]),
			fmt.Sprintf("%d", span),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			switch col {
			case 0:
				return tableJointStyle
			case 1:
				return tableCurrentStyle
			case 4:
				// A 90° joint on a 4096-tick servo spans about 1024 ticks.
				if row >= 0 && row < len(ranges) && ranges[row] > 500 {
					return tableRangeGoodStyle
				}
				return tableRangeLowStyle
			default:
				return cellStyle
			}
		})

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")
	sb.WriteString(dimStyle.Render("Press Enter when done, Esc to keep the previous ranges"))
	return sb.String()
}
