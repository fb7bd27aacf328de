package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/ui/components"
	"ridesafe/internal/ui/theme"
	evidenceview "ridesafe/internal/ui/views/evidence"
	sosview "ridesafe/internal/ui/views/sos"
)

const (
	pollInterval = 100 * time.Millisecond
	// releaseGrace must exceed the terminal's initial key-repeat delay; a
	// held key is reported as repeated presses with no release event.
	releaseGrace = 650 * time.Millisecond
)

// ─── ports ───────────────────────────────────────────────────────────────────

type sosPort interface {
	PressStart(ctx context.Context) (sosdto.StatusOutput, error)
	PressEnd(ctx context.Context) (sosdto.StatusOutput, error)
	Stop(ctx context.Context) (sosdto.StatusOutput, error)
	Status(ctx context.Context) (sosdto.StatusOutput, error)
	ReportLocation(ctx context.Context, latitude, longitude float64) (sosdto.StatusOutput, error)
	Report(ctx context.Context) (sosdto.ReportOutput, error)
	Alerts(ctx context.Context) ([]sosdto.AlertOutput, error)
	Evidence(ctx context.Context, includeImage bool) ([]sosdto.EvidenceOutput, error)
}

type statePort interface {
	Show(ctx context.Context) appstatedto.StateOutput
	ToggleTheme(ctx context.Context) (appstatedto.StateOutput, error)
}

// ─── tabs ────────────────────────────────────────────────────────────────────

type tabID int

const (
	tabSOS tabID = iota
	tabEvidence
	tabCount
)

var tabLabels = [tabCount]string{"SOS", "Evidence"}

// ─── async messages ──────────────────────────────────────────────────────────

type tickMsg time.Time

type statusMsg struct {
	out sosdto.StatusOutput
	err error
}

type reportMsg struct {
	out sosdto.ReportOutput
	err error
}

type stateMsg struct {
	out appstatedto.StateOutput
	err error
}

// ─── key bindings ────────────────────────────────────────────────────────────

type keyMap struct {
	Hold    key.Binding
	Latch   key.Binding
	Stop    key.Binding
	Tab     key.Binding
	Theme   key.Binding
	Help    key.Binding
	Palette key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Hold:    key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "hold for SOS")),
		Latch:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "latch hold")),
		Stop:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop SOS")),
		Tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Palette: key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "palette")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Hold, k.Stop, k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Hold, k.Latch, k.Stop},
		{k.Tab, k.Theme, k.Palette},
		{k.Help, k.Quit},
	}
}

// ─── model ───────────────────────────────────────────────────────────────────

// Model is the root Bubble Tea model. Terminals report a held key as a
// stream of repeated presses, so a hold lasts until no repeat has arrived for
// releaseGrace. The latch key holds without a key down.
type Model struct {
	sos   sosPort
	state statePort

	sosView      sosview.Model
	evidenceView evidenceview.Model

	styles    theme.Styles
	activeTab tabID
	keys      keyMap
	help      help.Model
	showHelp  bool
	palette   components.Palette

	holding    bool
	latched    bool
	lastHoldAt time.Time
	lastStatus string

	status string
	width  int
	height int

	now  func() time.Time
	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd
}

func NewModel(sos sosPort, state statePort) Model {
	styles := theme.For(state.Show(context.Background()).Theme)
	return Model{
		sos:          sos,
		state:        state,
		sosView:      sosview.New(styles),
		evidenceView: evidenceview.New(sos, styles),
		styles:       styles,
		activeTab:    tabSOS,
		keys:         defaultKeys(),
		help:         help.New(),
		palette:      components.NewPalette(styles),
		lastStatus:   "INACTIVE",
		status:       "ready",
		now:          time.Now,
		tick:         tea.Tick,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.pollCmd(), m.evidenceView.Init(), m.scheduleTick())
}

// ─── update ──────────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, isKey := msg.(tea.KeyMsg); isKey && m.palette.Visible() {
		var cmd tea.Cmd
		m.palette, cmd = m.palette.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.palette.SetWidth(min(m.width-4, 80))
		m.help.Width = m.width
		sz := tea.WindowSizeMsg{Width: m.width, Height: max(m.height-3, 1)}
		m.sosView, _ = m.sosView.Update(sz)
		m.evidenceView, _ = m.evidenceView.Update(sz)
		return m, nil

	case tickMsg:
		if m.holding && !m.latched && m.now().Sub(m.lastHoldAt) > releaseGrace {
			m.holding = false
			m.sosView.SetHold(false, false)
			cmds = append(cmds, m.pressEndCmd())
		}
		cmds = append(cmds, m.pollCmd(), m.scheduleTick())
		return m, tea.Batch(cmds...)

	case statusMsg:
		if msg.err != nil {
			m.status = "sos: " + msg.err.Error()
			return m, nil
		}
		m.sosView.SetStatus(msg.out)
		if msg.out.Status != m.lastStatus {
			m.status = transitionText(m.lastStatus, msg.out.Status)
			if msg.out.Status == "ACTIVE" || m.lastStatus == "ACTIVE" {
				cmds = append(cmds, m.evidenceView.Refresh())
			}
			m.lastStatus = msg.out.Status
		}
		return m, tea.Batch(cmds...)

	case reportMsg:
		if msg.err != nil {
			m.status = "report: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("report written: %s (%d alerts, %d photos)", msg.out.Path, msg.out.AlertCount, msg.out.EvidenceCount)
		}
		return m, nil

	case stateMsg:
		if msg.err != nil {
			m.status = "theme: " + msg.err.Error()
			return m, nil
		}
		m.applyTheme(msg.out.Theme)
		m.status = "theme: " + msg.out.Theme
		return m, nil

	case components.PaletteSubmitMsg:
		return m.executePalette(msg.Input)

	case components.PaletteCancelMsg:
		m.status = "ready"
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if msg.String() == "?" || msg.String() == "esc" {
				m.showHelp = false
			}
			return m, nil
		}
		if m.activeTab == tabEvidence && m.evidenceView.Filtering() {
			break
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "space":
			m.lastHoldAt = m.now()
			if m.holding {
				return m, nil
			}
			m.holding = true
			m.sosView.SetHold(true, false)
			return m, m.pressStartCmd()
		case "h":
			if m.latched {
				m.latched = false
				m.holding = false
				m.sosView.SetHold(false, false)
				return m, m.pressEndCmd()
			}
			m.latched = true
			m.holding = true
			m.sosView.SetHold(true, true)
			return m, m.pressStartCmd()
		case "x":
			return m, m.stopCmd()
		case "t":
			return m, m.toggleThemeCmd()
		case "tab":
			m.activeTab = (m.activeTab + 1) % tabCount
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + tabCount - 1) % tabCount
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			return m, nil
		case ":":
			return m, m.palette.Open()
		}
	}

	var cmd, paletteCmd tea.Cmd
	if m.palette.Visible() {
		m.palette, paletteCmd = m.palette.Update(msg)
	}
	switch m.activeTab {
	case tabEvidence:
		m.evidenceView, cmd = m.evidenceView.Update(msg)
	default:
		if _, ok := msg.(evidenceview.LoadedMsg); ok {
			m.evidenceView, cmd = m.evidenceView.Update(msg)
		} else {
			m.sosView, cmd = m.sosView.Update(msg)
		}
	}
	return m, tea.Batch(cmd, paletteCmd)
}

// ─── view ────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	tabBar := m.renderTabBar()
	statusBar := m.renderStatusBar()
	contentH := max(m.height-lipgloss.Height(tabBar)-lipgloss.Height(statusBar), 1)

	var content string
	switch {
	case m.showHelp:
		content = lipgloss.NewStyle().Width(m.width).Height(contentH).Render(m.help.View(m.keys))
	case m.palette.Visible():
		content = lipgloss.Place(m.width, contentH, lipgloss.Center, lipgloss.Center, m.palette.View())
	case m.activeTab == tabEvidence:
		content = m.evidenceView.View()
	default:
		content = m.sosView.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, tabBar, content, statusBar)
}

func (m Model) renderTabBar() string {
	parts := make([]string, tabCount)
	for i := tabID(0); i < tabCount; i++ {
		if i == m.activeTab {
			parts[i] = m.styles.Hot.Render(" " + tabLabels[i] + " ")
		} else {
			parts[i] = m.styles.Muted.Render(" " + tabLabels[i] + " ")
		}
	}
	bar := "ridesafe  " + strings.Join(parts, m.styles.Muted.Render(" │ "))
	return lipgloss.NewStyle().Background(m.styles.Palette.Mantle).Width(m.width).Render(bar) + "\n"
}

func (m Model) renderStatusBar() string {
	left := m.status
	if m.lastStatus == "ACTIVE" {
		left = m.styles.Alarm.Render("SOS") + "  " + left
	}
	right := m.styles.Muted.Render("space:hold  x:stop  ?:help  q:quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	bar := left + strings.Repeat(" ", gap) + right
	return "\n" + lipgloss.NewStyle().Background(m.styles.Palette.Mantle).Width(m.width).Render(bar)
}

// ─── palette execution ───────────────────────────────────────────────────────

func (m Model) executePalette(input string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return m, nil
	}
	switch parts[0] {
	case "sos:stop":
		return m, m.stopCmd()
	case "sos:report":
		return m, m.reportCmd()
	case "location":
		if len(parts) != 3 {
			m.status = "usage: location <lat> <lng>"
			return m, nil
		}
		lat, errLat := strconv.ParseFloat(parts[1], 64)
		lng, errLng := strconv.ParseFloat(parts[2], 64)
		if errLat != nil || errLng != nil {
			m.status = "invalid coordinates"
			return m, nil
		}
		return m, m.reportLocationCmd(lat, lng)
	case "evidence:refresh":
		m.activeTab = tabEvidence
		return m, m.evidenceView.Refresh()
	case "theme:toggle":
		return m, m.toggleThemeCmd()
	default:
		m.status = "unknown command: " + parts[0]
	}
	return m, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (m *Model) applyTheme(name string) {
	m.styles = theme.For(name)
	m.sosView.SetStyles(m.styles)
	m.evidenceView.SetStyles(m.styles)
	m.palette.SetStyles(m.styles)
}

func transitionText(from, to string) string {
	switch {
	case to == "ACTIVE":
		return "SOS activated, alert recorded"
	case from == "ACTIVE" && to == "INACTIVE":
		return "SOS stopped"
	case from == "ARMING" && to == "INACTIVE":
		return "released before activation"
	case to == "ARMING":
		return "arming…"
	default:
		return strings.ToLower(to)
	}
}

// ─── async commands ──────────────────────────────────────────────────────────

func (m Model) scheduleTick() tea.Cmd {
	return m.tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) pollCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.Status(context.Background())
		return statusMsg{out: out, err: err}
	}
}

func (m Model) pressStartCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.PressStart(context.Background())
		return statusMsg{out: out, err: err}
	}
}

func (m Model) pressEndCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.PressEnd(context.Background())
		return statusMsg{out: out, err: err}
	}
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.Stop(context.Background())
		return statusMsg{out: out, err: err}
	}
}

func (m Model) reportLocationCmd(lat, lng float64) tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.ReportLocation(context.Background(), lat, lng)
		return statusMsg{out: out, err: err}
	}
}

func (m Model) reportCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.sos.Report(context.Background())
		return reportMsg{out: out, err: err}
	}
}

func (m Model) toggleThemeCmd() tea.Cmd {
	return func() tea.Msg {
		out, err := m.state.ToggleTheme(context.Background())
		return stateMsg{out: out, err: err}
	}
}
