package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/1broseidon/glasslock/internal/ipc"
)

// Fetcher queries the running lock.
type Fetcher func() (*ipc.StatusData, error)

type statusMsg struct {
	status *ipc.StatusData
	err    error
}

type pollMsg struct{}

// WatchModel polls the lock and shows its latest status.
type WatchModel struct {
	fetch    Fetcher
	interval time.Duration
	spinner  spinner.Model

	status   *ipc.StatusData
	err      error
	fetching bool
	updated  time.Time
}

// NewWatchModel polls fetch every interval.
func NewWatchModel(fetch Fetcher, interval time.Duration) WatchModel {
	if interval <= 0 {
		interval = time.Second
	}
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	return WatchModel{fetch: fetch, interval: interval, spinner: s}
}

func (m WatchModel) fetchCmd() tea.Cmd {
	fetch := m.fetch
	return func() tea.Msg {
		st, err := fetch()
		return statusMsg{status: st, err: err}
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg { return pollMsg{} })
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			if !m.fetching {
				m.fetching = true
				return m, m.fetchCmd()
			}
		}
		return m, nil

	case pollMsg:
		if m.fetching {
			return m, nil
		}
		m.fetching = true
		return m, m.fetchCmd()

	case statusMsg:
		m.fetching = false
		m.updated = time.Now()
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return pollMsg{} })

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m WatchModel) View() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(errStyle.Render("no lock answering: " + m.err.Error()))
	case m.status != nil:
		b.WriteString(FormatStatus(m.status))
	default:
		b.WriteString(m.spinner.View() + " connecting…")
	}
	b.WriteString("\n\n")

	activity := " "
	if m.fetching {
		activity = m.spinner.View()
	}
	help := "q quit • r refresh"
	if !m.updated.IsZero() {
		help = fmt.Sprintf("updated %s • %s", m.updated.Format("15:04:05"), help)
	}
	b.WriteString(activity + " " + helpStyle.Render(help))
	b.WriteString("\n")
	return b.String()
}

// Watch runs the live status view until the user quits.
func Watch(fetch Fetcher, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("status --watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	_, err := tea.NewProgram(NewWatchModel(fetch, interval)).Run()
	return err
}
