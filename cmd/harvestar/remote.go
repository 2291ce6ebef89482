package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/harvestar/pkg/robot"
	"github.com/gwillem/harvestar/pkg/teleop"
)

type RemoteCommand struct {
	Port string        `short:"p" long:"port" description:"Serial port of the command link (defaults to the configured link)"`
	Baud int           `long:"baud" default:"9600" description:"Link baud rate"`
	Hold time.Duration `long:"hold" default:"550ms" description:"How long a key counts as held after its last repeat"`
}

var (
	keyStyle  = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	heldStyle = keyStyle.BorderForeground(lipgloss.Color("10")).Foreground(lipgloss.Color("10")).Bold(true)
)

type remoteModel struct {
	sender   *teleop.Sender
	port     string
	sent     int
	lastLine string
	err      error
	quitting bool
}

type sendTickMsg time.Time

func sendTick() tea.Cmd {
	return tea.Tick(teleop.DefaultSendInterval, func(t time.Time) tea.Msg {
		return sendTickMsg(t)
	})
}

func (m remoteModel) Init() tea.Cmd {
	return sendTick()
}

func (m remoteModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		default:
			m.sender.Keys().Press(key, time.Now())
		}

	case sendTickMsg:
		line, err := m.sender.Tick(time.Time(msg))
		if err != nil {
			m.err = err
			return m, tea.Quit
		}
		if line != "" {
			m.sent++
			m.lastLine = strings.TrimSpace(line)
		}
		return m, sendTick()
	}

	return m, nil
}

func (m remoteModel) View() string {
	if m.quitting {
		return ""
	}

	held := make(map[string]bool)
	for _, k := range m.sender.Keys().Held(time.Now()) {
		held[k] = true
	}

	var keys []string
	for _, k := range teleop.ControlKeys {
		style := keyStyle
		if held[k] {
			style = heldStyle
		}
		keys = append(keys, style.Render(k))
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("HarveStar Remote"))
	sb.WriteString(statusStyle.Render("  " + m.port))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, keys...))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Sent %d lines", m.sent))
	if m.lastLine != "" {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  last %q", m.lastLine)))
	}
	sb.WriteString("\n\n")
	sb.WriteString(statusStyle.Render("w/s radius  a/d azimuth  ↑/↓ height  q/e gripper  esc to quit"))
	sb.WriteString("\n")
	return sb.String()
}

func (c *RemoteCommand) Execute(args []string) error {
	port := c.Port
	if port == "" {
		if cfg, err := robot.LoadConfigFrom(opts.Config); err == nil {
			port = cfg.Link.Port
		}
	}
	if port == "" {
		fmt.Fprintln(os.Stderr, "No link port. Pass --port or run 'harvestar setup'.")
		os.Exit(1)
	}

	link, err := teleop.OpenLink(port, c.Baud)
	if err != nil {
		return err
	}
	defer link.Close()

	model := remoteModel{
		sender: teleop.NewSender(link, teleop.NewKeySet(c.Hold)),
		port:   port,
	}
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return fmt.Errorf("run remote: %w", err)
	}
	if rm, ok := final.(remoteModel); ok && rm.err != nil {
		return fmt.Errorf("link: %w", rm.err)
	}
	return nil
}
