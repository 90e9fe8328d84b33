// Package tui renders the lock's status for the terminal, once or as a
// live view.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/glasslock/internal/ipc"
)

var (
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle = lipgloss.NewStyle().Bold(true)
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// FormatStatus renders a status report as aligned label/value rows.
func FormatStatus(st *ipc.StatusData) string {
	var b strings.Builder

	state := okStyle.Render("locked")
	if !st.Locked {
		state = warnStyle.Render("unlocked")
	}
	b.WriteString(titleStyle.Render("glasslock: ") + state)
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("pid", fmt.Sprint(st.PID))
	row("display", st.Display)
	row("locked for", (time.Duration(st.LockedSeconds) * time.Second).String())
	row("render state", st.RenderState)
	if st.SurfaceReady {
		row("surface", fmt.Sprintf("%dx%d", st.Width, st.Height))
	} else {
		row("surface", warnStyle.Render("not ready"))
	}
	ack := fmt.Sprintf("last acked %d", st.LastAckedSerial)
	if st.AwaitingAck {
		ack += fmt.Sprintf(", awaiting %d", st.PendingSerial)
	}
	row("configure", ack)
	row("verifying", fmt.Sprint(st.Verifying))

	failed := fmt.Sprint(st.FailedAttempts)
	if st.FailedAttempts > 0 {
		failed = warnStyle.Render(failed)
	}
	row("failed attempts", failed)

	return strings.TrimRight(b.String(), "\n")
}
