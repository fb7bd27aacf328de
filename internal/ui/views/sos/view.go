package sos

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/ui/theme"
)

// Model renders the SOS button, the hold progress and the session details.
// It holds no controller state of its own; the app model feeds it snapshots.
type Model struct {
	styles   theme.Styles
	progress progress.Model
	status   sosdto.StatusOutput
	holding  bool
	latched  bool
	width    int
	height   int
}

func New(styles theme.Styles) Model {
	m := Model{status: sosdto.StatusOutput{Status: "INACTIVE"}}
	m.SetStyles(styles)
	return m
}

func (m *Model) SetStyles(styles theme.Styles) {
	m.styles = styles
	m.progress = progress.New(
		progress.WithSolidFill(string(styles.Palette.Red)),
		progress.WithoutPercentage(),
		progress.WithWidth(m.barWidth()),
	)
}

func (m *Model) SetStatus(status sosdto.StatusOutput) {
	m.status = status
}

// SetHold records whether the button is physically held and whether the hold
// is latched.
func (m *Model) SetHold(holding, latched bool) {
	m.holding = holding
	m.latched = latched
}

func (m Model) Status() sosdto.StatusOutput {
	return m.status
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = m.barWidth()
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	switch m.status.Status {
	case "ACTIVE":
		sb.WriteString(m.styles.Alarm.Render("SOS ACTIVE") + "\n\n")
		sb.WriteString(m.styles.Muted.Render("session:  ") + m.status.SessionID + "\n")
		if m.status.ActivatedAt != nil {
			sb.WriteString(m.styles.Muted.Render("since:    ") + m.status.ActivatedAt.Local().Format("15:04:05") + "\n")
		}
		capture := m.styles.Hot.Render("camera unavailable")
		if m.status.CaptureActive {
			capture = m.styles.Ok.Render("recording evidence")
		}
		sb.WriteString(m.styles.Muted.Render("camera:   ") + capture + "\n")
	case "ARMING":
		sb.WriteString(m.styles.Button.Render("SOS") + "\n\n")
		sb.WriteString(m.progress.ViewAs(m.status.Progress) + "\n")
		sb.WriteString(m.styles.Hot.Render(fmt.Sprintf("keep holding… %.0f%%", m.status.Progress*100)) + "\n")
	default:
		sb.WriteString(m.styles.Button.Render("SOS") + "\n\n")
		sb.WriteString(m.progress.ViewAs(0) + "\n")
		sb.WriteString(m.styles.Muted.Render("hold space to send an emergency alert") + "\n")
	}
	sb.WriteString(m.styles.Muted.Render("location: ") + formatLocation(m.status.LastLocation) + "\n")
	if m.latched {
		sb.WriteString(m.styles.Hot.Render("hold latched, press h to release") + "\n")
	}

	pane := m.styles.Pane
	if m.status.Status == "ACTIVE" {
		pane = pane.BorderForeground(m.styles.Palette.Red)
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, pane.Render(sb.String()))
}

func (m Model) barWidth() int {
	if m.width <= 0 {
		return 40
	}
	return min(max(m.width/2, 10), 60)
}

func formatLocation(location *sosdto.LocationOutput) string {
	if location == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.5f, %.5f", location.Latitude, location.Longitude)
}
