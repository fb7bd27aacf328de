package evidence

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/ui/theme"
)

type EvidencePort interface {
	Alerts(ctx context.Context) ([]sosdto.AlertOutput, error)
	Evidence(ctx context.Context, includeImage bool) ([]sosdto.EvidenceOutput, error)
}

type LoadedMsg struct {
	Alerts   []sosdto.AlertOutput
	Evidence []sosdto.EvidenceOutput
	Err      error
}

type recordItem struct {
	title string
	desc  string
}

func (i recordItem) Title() string       { return i.title }
func (i recordItem) Description() string { return i.desc }
func (i recordItem) FilterValue() string { return i.title + " " + i.desc }

// Model lists stored alerts followed by photo evidence, newest last.
type Model struct {
	port   EvidencePort
	list   list.Model
	styles theme.Styles
	count  [2]int
}

func New(port EvidencePort, styles theme.Styles) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Evidence"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	m := Model{port: port, list: l}
	m.SetStyles(styles)
	return m
}

func (m *Model) SetStyles(styles theme.Styles) {
	m.styles = styles
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(styles.Palette.Lavender).BorderForeground(styles.Palette.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(styles.Palette.Sapphire).BorderForeground(styles.Palette.Lavender)
	m.list.SetDelegate(delegate)
	m.list.Styles.Title = styles.Title
}

func (m Model) Init() tea.Cmd {
	return m.Refresh()
}

// Refresh reloads both record lists from the store.
func (m Model) Refresh() tea.Cmd {
	return func() tea.Msg {
		if m.port == nil {
			return LoadedMsg{Err: fmt.Errorf("evidence store not configured")}
		}
		alerts, err := m.port.Alerts(context.Background())
		if err != nil {
			return LoadedMsg{Err: err}
		}
		evidence, err := m.port.Evidence(context.Background(), false)
		return LoadedMsg{Alerts: alerts, Evidence: evidence, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case LoadedMsg:
		if msg.Err != nil {
			m.list.Title = "Evidence: " + msg.Err.Error()
			return m, nil
		}
		m.list.Title = fmt.Sprintf("Evidence: %d alerts, %d photos", len(msg.Alerts), len(msg.Evidence))
		m.count = [2]int{len(msg.Alerts), len(msg.Evidence)}
		items := make([]list.Item, 0, len(msg.Alerts)+len(msg.Evidence))
		for _, alert := range msg.Alerts {
			items = append(items, recordItem{
				title: alert.Kind + "  " + alert.Timestamp,
				desc:  fmt.Sprintf("user %s  session %s  %s", alert.UserID, alert.SessionID, locationText(alert.Location)),
			})
		}
		for _, record := range msg.Evidence {
			items = append(items, recordItem{
				title: "PHOTO  " + record.Timestamp,
				desc:  fmt.Sprintf("%d bytes  session %s  %s", record.ImageSize, record.SessionID, locationText(record.Location)),
			})
		}
		return m, m.list.SetItems(items)
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.list.View()
}

// Counts returns the number of alerts and photos last loaded.
func (m Model) Counts() (int, int) {
	return m.count[0], m.count[1]
}

func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func locationText(location *sosdto.LocationOutput) string {
	if location == nil {
		return "no fix"
	}
	return fmt.Sprintf("%.5f,%.5f", location.Latitude, location.Longitude)
}
