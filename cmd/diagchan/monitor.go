package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/diagchan/internal/scenario"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const refreshInterval = 500 * time.Millisecond

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the scenario with a live channel table",
	RunE:  runMonitor,
}

// statsSource is the part of the scenario runner the monitor drives.
type statsSource interface {
	Stats(ctx context.Context) (scenario.Stats, error)
	Emit(ctx context.Context, name string) error
	Snapshot(ctx context.Context) ([]byte, error)
}

type monitorModel struct {
	err    error
	source statsSource
	stats  scenario.Stats
	table  table.Model
	status string
}

type statsMsg struct {
	err   error
	stats scenario.Stats
}

type actionMsg struct {
	err    error
	status string
}

type tickMsg time.Time

func newMonitorModel(source statsSource) *monitorModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 5},
			{Title: "Channel", Width: 28},
			{Title: "Subs", Width: 6},
			{Title: "Linked", Width: 7},
			{Title: "Published", Width: 10},
			{Title: "Received", Width: 10},
			{Title: "Traced", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	return &monitorModel{source: source, table: t}
}

func (m *monitorModel) Init() tea.Cmd {
	return tea.Batch(m.fetch, tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *monitorModel) fetch() tea.Msg {
	s, err := m.source.Stats(context.Background())
	return statsMsg{stats: s, err: err}
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "e", "enter":
			if name := m.selected(); name != "" {
				return m, m.emit(name)
			}
			return m, nil

		case "s":
			return m, m.snapshot
		}

	case tickMsg:
		return m, tea.Batch(m.fetch, tick())

	case statsMsg:
		m.err = msg.err
		if msg.err == nil {
			m.stats = msg.stats
			m.table.SetRows(statsRows(msg.stats))
		}
		return m, nil

	case actionMsg:
		m.err = msg.err
		m.status = msg.status
		return m, m.fetch
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *monitorModel) selected() string {
	row := m.table.SelectedRow()
	if len(row) < 2 {
		return ""
	}
	return row[1]
}

func (m *monitorModel) emit(name string) tea.Cmd {
	return func() tea.Msg {
		if err := m.source.Emit(context.Background(), name); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "published on " + name}
	}
}

func (m *monitorModel) snapshot() tea.Msg {
	data, err := m.source.Snapshot(context.Background())
	if err != nil {
		return actionMsg{err: err}
	}
	return actionMsg{status: fmt.Sprintf("snapshot taken (%d bytes), links rebuilt", len(data))}
}

func statsRows(s scenario.Stats) []table.Row {
	rows := make([]table.Row, 0, len(s.Channels))
	for _, c := range s.Channels {
		linked := "no"
		if c.Linked {
			linked = "yes"
		}
		traced := "-"
		if c.Tracing {
			traced = strconv.FormatUint(c.Traced, 10)
		}
		rows = append(rows, table.Row{
			strconv.FormatUint(uint64(c.Index), 10),
			c.Name,
			strconv.FormatUint(uint64(c.Subscribers), 10),
			linked,
			strconv.FormatUint(c.Published, 10),
			strconv.FormatUint(c.Received, 10),
			traced,
		})
	}
	return rows
}

func (m *monitorModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("diagchan monitor"))
	b.WriteString(" realm ")
	b.WriteString(m.stats.RealmID)
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • e publish • s snapshot • q quit"))

	return b.String()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func runMonitor(_ *cobra.Command, _ []string) error {
	if !isTerminal(os.Stdout) {
		return fmt.Errorf("monitor needs a terminal; use `diagchan run` instead")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- a.Runner().Run(ctx) }()

	p := tea.NewProgram(newMonitorModel(a.Runner()), tea.WithAltScreen())
	_, err = p.Run()

	cancel()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	return err
}
