package main

// Live sensor dashboard built on bubbletea.

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/tturner/ipmiq/internal/ipmi/client"
)

func newWatchCmd(g *globalFlags) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Continuously display sensor readings",
		Long: `Poll every sensor on an interval and render a live dashboard.
Keys: q quits, r forces a refresh, c copies the current snapshot to the
clipboard.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			c, done, err := connect(ctx, g)
			if err != nil {
				return err
			}
			defer done()

			model := newWatchModel(c, interval)
			_, err = tea.NewProgram(model).Run()
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Poll interval")
	return cmd
}

type sensorsMsg struct {
	values []client.SensorValue
	errs   []error
	err    error
}

type tickMsg time.Time

type watchModel struct {
	client   *client.Client
	interval time.Duration

	values   []client.SensorValue
	errCount int
	lastPoll time.Time
	fatal    error
	status   string
}

func newWatchModel(c *client.Client, interval time.Duration) watchModel {
	return watchModel{client: c, interval: interval}
}

func (m watchModel) Init() tea.Cmd {
	return m.poll()
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.interval)
		defer cancel()
		values, errs, err := m.client.ReadAllSensors(ctx)
		return sensorsMsg{values: values, errs: errs, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.status = "refreshing"
			return m, m.poll()
		case "c":
			if err := clipboard.WriteAll(m.snapshot()); err != nil {
				m.status = fmt.Sprintf("copy failed: %v", err)
			} else {
				m.status = "snapshot copied"
			}
			return m, nil
		}

	case sensorsMsg:
		m.lastPoll = time.Now()
		m.fatal = msg.err
		m.values = msg.values
		m.errCount = len(msg.errs)
		m.status = ""
		return m, m.tick()

	case tickMsg:
		return m, m.poll()
	}
	return m, nil
}

func (m watchModel) snapshot() string {
	var b strings.Builder
	for _, v := range m.values {
		fmt.Fprintln(&b, v.String())
	}
	return b.String()
}

func (m watchModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("ipmiq watch - %d sensors", len(m.values))
	if !m.lastPoll.IsZero() {
		title += " - " + m.lastPoll.Format("15:04:05")
	}
	b.WriteString(headerStyle.Render(title) + "\n\n")

	if m.fatal != nil {
		b.WriteString(critStyle.Render(fmt.Sprintf("poll failed: %v", m.fatal)) + "\n")
	}

	for _, v := range m.values {
		line := fmt.Sprintf("%-20s ", v.Name)
		switch {
		case v.Unavailable:
			line += dimStyle.Render("unavailable")
		case v.Value != nil:
			line += fmt.Sprintf("%-12s %s",
				strings.TrimSpace(fmt.Sprintf("%.2f %s", *v.Value, v.Unit)),
				severityStyle(v.Severity).Render(v.Severity.String()))
		default:
			line += fmt.Sprintf("states 0x%04X", v.StateBits)
		}
		b.WriteString(line + "\n")
	}

	footer := "q quit · r refresh · c copy"
	if m.errCount > 0 {
		footer += fmt.Sprintf(" · %d sensor(s) skipped", m.errCount)
	}
	if m.status != "" {
		footer += " · " + m.status
	}
	b.WriteString("\n" + lipgloss.NewStyle().Faint(true).Render(footer) + "\n")
	return b.String()
}
