package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/harvestar/internal/log"
	"github.com/gwillem/harvestar/pkg/robot"
	"github.com/gwillem/harvestar/pkg/teleop"
)

type TeleoperateCommand struct {
	ArmOptions
	MaxReboots int    `long:"max-reboots" default:"0" description:"Give up after this many reboots (0 = never)"`
	Link       string `long:"link" description:"Serial port of the command link (overrides the configuration)"`
	LogFile    string `long:"log-file" default:"harvestar.log" description:"Where to write logs while the monitor is running"`
}

const (
	headerHeight = 3 // title + status + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

var jointColors = map[robot.Joint]string{
	robot.Base:     "196", // red
	robot.Shoulder: "208", // orange
	robot.Elbow:    "226", // yellow
	robot.Gripper:  "201", // magenta
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	rejectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// monitor collects state and log lines from successive sessions, so the
// TUI survives reboots.
type monitor struct {
	states chan teleop.State
	logs   chan string
}

func newMonitor() *monitor {
	return &monitor{
		states: make(chan teleop.State, 1),
		logs:   make(chan string, 10),
	}
}

func (m *monitor) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case m.logs <- msg:
	default:
	}
}

// forward copies one controller's output until ctx is done.
func (m *monitor) forward(ctx context.Context, ctrl *teleop.Controller) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-ctrl.States():
			select {
			case m.states <- s:
			default:
				select {
				case <-m.states:
				default:
				}
				m.states <- s
			}
		case l := <-ctrl.Logs():
			select {
			case m.logs <- l:
			default:
			}
		}
	}
}

type teleopModel struct {
	mon      *monitor
	chart    *streamlinechart.Model
	width    int
	height   int
	logs     []string
	state    teleop.State
	hasState bool
	done     error
	quitting bool
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

type stateMsg teleop.State
type logMsg string
type doneMsg struct{ err error }

func waitForState(mon *monitor) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-mon.states)
	}
}

func waitForLog(mon *monitor) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-mon.logs)
	}
}

func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialTeleopModel(mon *monitor) teleopModel {
	// Servo-space angles never leave 0..180.
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 180),
	)
	for _, j := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(string(j), runes.ThinLineStyle, style)
	}

	return teleopModel{
		mon:   mon,
		chart: &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.mon),
		waitForLog(m.mon),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		state := teleop.State(msg)
		// Freeze the chart while idle.
		if !m.hasState || state.Servo != m.state.Servo || state.Arm.Gripper != m.state.Arm.Gripper {
			for _, j := range robot.ArmJoints() {
				deg, _ := state.Servo.Get(j)
				m.chart.PushDataSet(string(j), deg)
			}
			m.chart.PushDataSet(string(robot.Gripper), state.Arm.Gripper)
			m.chart.DrawAll()
		}
		m.state = state
		m.hasState = true
		return m, waitForState(m.mon)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.mon)

	case doneMsg:
		m.done = msg.err
		if msg.err == nil {
			m.addLog("Session finished")
		} else {
			m.addLog("Stopped: " + msg.err.Error())
		}
		return m, nil
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	sb.WriteString(titleStyle.Render("HarveStar Teleoperate"))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func (m teleopModel) renderStatus() string {
	if !m.hasState {
		return statusStyle.Render("Waiting for the arm...")
	}
	s := m.state
	status := fmt.Sprintf("pose %s  gripper %.0f°  moves %d  rejected %d",
		s.Arm.Pose, s.Arm.Gripper, s.Stats.Moves, s.Stats.Rejected)
	if s.Line != "" {
		line := fmt.Sprintf("  last %q", s.Line)
		if !s.Accepted {
			line = rejectedStyle.Render(line + " rejected")
		}
		status += line
	}
	return statusStyle.Render(status)
}

func renderLegend() string {
	var items []string
	for _, j := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+string(j))
	}
	return strings.Join(items, "  ")
}

func (c *TeleoperateCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.Calibration)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	port := c.Link
	if port == "" {
		port = cfg.Link.Port
	}
	if port == "" {
		fmt.Fprintln(os.Stderr, "Command link not configured. Run 'harvestar setup' or pass --link.")
		os.Exit(1)
	}

	// The alt screen owns the terminal.
	logFile, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	log.Init(opts.LogLevel, logFile)

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	mon := newMonitor()
	sup := newSupervisor(cfg, c.MaxReboots)
	sup.OnReboot = func(n int, cause error) {
		mon.log("Reboot %d after: %v", n, cause)
	}

	session := func(ctx context.Context) error {
		act, release, err := openActuator(ctx, cfg, c.DryRun)
		if err != nil {
			mon.log("Arm: %v", err)
			return err
		}
		defer release()

		link, err := teleop.OpenLink(port, cfg.Link.BaudRate)
		if err != nil {
			mon.log("Link: %v", err)
			return err
		}
		defer link.Close()

		mc := newMotion(cfg, act)
		if err := mc.Home(ctx); err != nil {
			return err
		}

		ctrl := teleop.NewController(teleop.Config{
			Source:       link,
			Motion:       mc,
			Start:        cfg.Teleop.Start,
			StartGripper: cfg.Teleop.StartGripper,
			PollInterval: cfg.Teleop.PollInterval.D(),
			Settle:       cfg.Teleop.Settle.D(),
			Logger:       log.With("component", "teleop"),
		})

		fctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go mon.forward(fctx, ctrl)

		return ctrl.Start(ctx)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(initialTeleopModel(mon), tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := sup.Run(ctx, session)
		if teleop.IsStopped(err) {
			err = nil
		}
		done <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run monitor: %w", err)
	}

	// Let in-flight motion finish and torque be released.
	cancel()
	err = <-done
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Teleoperation failed: %v\n", err)
		return err
	}
	return nil
}
