package app

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	appstatedto "ridesafe/internal/modules/appstate/dto"
	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/ui/components"
)

type fakeSOS struct {
	status     string
	starts     int
	ends       int
	stops      int
	reports    int
	lastLatLng [2]float64
}

func (f *fakeSOS) PressStart(context.Context) (sosdto.StatusOutput, error) {
	f.starts++
	f.status = "ARMING"
	return sosdto.StatusOutput{Status: f.status}, nil
}

func (f *fakeSOS) PressEnd(context.Context) (sosdto.StatusOutput, error) {
	f.ends++
	if f.status == "ARMING" {
		f.status = "INACTIVE"
	}
	return sosdto.StatusOutput{Status: f.status}, nil
}

func (f *fakeSOS) Stop(context.Context) (sosdto.StatusOutput, error) {
	f.stops++
	f.status = "INACTIVE"
	return sosdto.StatusOutput{Status: f.status}, nil
}

func (f *fakeSOS) Status(context.Context) (sosdto.StatusOutput, error) {
	return sosdto.StatusOutput{Status: f.status}, nil
}

func (f *fakeSOS) ReportLocation(_ context.Context, lat, lng float64) (sosdto.StatusOutput, error) {
	f.lastLatLng = [2]float64{lat, lng}
	return sosdto.StatusOutput{Status: f.status, LastLocation: &sosdto.LocationOutput{Latitude: lat, Longitude: lng}}, nil
}

func (f *fakeSOS) Report(context.Context) (sosdto.ReportOutput, error) {
	f.reports++
	return sosdto.ReportOutput{Path: "/reports/r.md", AlertCount: 1, EvidenceCount: 2}, nil
}

func (f *fakeSOS) Alerts(context.Context) ([]sosdto.AlertOutput, error) {
	return []sosdto.AlertOutput{{ID: "a1", SessionID: "s1", UserID: "rider", Timestamp: "2026-03-01T08:00:03.000Z", Kind: "SOS_ACTIVATED"}}, nil
}

func (f *fakeSOS) Evidence(context.Context, bool) ([]sosdto.EvidenceOutput, error) {
	return nil, nil
}

type fakeState struct {
	theme string
}

func (f *fakeState) Show(context.Context) appstatedto.StateOutput {
	return appstatedto.StateOutput{Theme: f.theme}
}

func (f *fakeState) ToggleTheme(context.Context) (appstatedto.StateOutput, error) {
	if f.theme == "dark" {
		f.theme = "light"
	} else {
		f.theme = "dark"
	}
	return appstatedto.StateOutput{Theme: f.theme}, nil
}

type harness struct {
	model Model
	sos   *fakeSOS
	state *fakeState
	now   time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sos:   &fakeSOS{status: "INACTIVE"},
		state: &fakeState{theme: "light"},
		now:   time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	h.model = NewModel(h.sos, h.state)
	h.model.now = func() time.Time { return h.now }
	h.model.tick = func(time.Duration, func(time.Time) tea.Msg) tea.Cmd { return nil }
	return h
}

// send feeds msg to the model and then every message its commands produce.
func (h *harness) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 && len(queue) < 64 {
		next, cmd := h.model.Update(queue[0])
		h.model = next.(Model)
		queue = append(queue[1:], drain(cmd)...)
	}
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSpaceRepeatsKeepHoldUntilGraceElapses(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tea.KeyMsg{Type: tea.KeySpace})
	if h.sos.starts != 1 {
		t.Fatalf("expected one press start, got %d", h.sos.starts)
	}
	for i := 0; i < 5; i++ {
		h.now = h.now.Add(200 * time.Millisecond)
		h.send(t, tea.KeyMsg{Type: tea.KeySpace})
		h.send(t, tickMsg(h.now))
	}
	if h.sos.starts != 1 || h.sos.ends != 0 {
		t.Fatalf("repeats must not restart or release: starts=%d ends=%d", h.sos.starts, h.sos.ends)
	}

	h.now = h.now.Add(releaseGrace + time.Millisecond)
	h.send(t, tickMsg(h.now))
	if h.sos.ends != 1 {
		t.Fatalf("expected release after grace, got %d", h.sos.ends)
	}
	if h.model.holding {
		t.Fatalf("expected hold cleared")
	}
}

func TestLatchHoldsWithoutRepeats(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, runeKey("h"))
	h.now = h.now.Add(10 * time.Second)
	h.send(t, tickMsg(h.now))
	if h.sos.starts != 1 || h.sos.ends != 0 {
		t.Fatalf("latched hold released early: starts=%d ends=%d", h.sos.starts, h.sos.ends)
	}

	h.send(t, runeKey("h"))
	if h.sos.ends != 1 || h.model.latched {
		t.Fatalf("second latch key must release: ends=%d latched=%v", h.sos.ends, h.model.latched)
	}
}

func TestStatusTransitionUpdatesStatusBar(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, statusMsg{out: sosdto.StatusOutput{Status: "ACTIVE", SessionID: "s1"}})
	if h.model.lastStatus != "ACTIVE" {
		t.Fatalf("expected ACTIVE, got %q", h.model.lastStatus)
	}
	if !strings.Contains(h.model.status, "activated") {
		t.Fatalf("unexpected status text %q", h.model.status)
	}
	if alerts, _ := h.model.evidenceView.Counts(); alerts != 1 {
		t.Fatalf("expected evidence refresh on activation, got %d alerts", alerts)
	}

	h.send(t, runeKey("x"))
	if h.sos.stops != 1 {
		t.Fatalf("expected stop, got %d", h.sos.stops)
	}
	if h.model.status != "SOS stopped" {
		t.Fatalf("unexpected status text %q", h.model.status)
	}
}

func TestPaletteCommands(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, components.PaletteSubmitMsg{Input: "location 52.5 13.4"})
	if h.sos.lastLatLng != [2]float64{52.5, 13.4} {
		t.Fatalf("unexpected location %v", h.sos.lastLatLng)
	}

	h.send(t, components.PaletteSubmitMsg{Input: "location north east"})
	if h.model.status != "invalid coordinates" {
		t.Fatalf("unexpected status %q", h.model.status)
	}

	h.send(t, components.PaletteSubmitMsg{Input: "sos:report"})
	if h.sos.reports != 1 || !strings.Contains(h.model.status, "/reports/r.md") {
		t.Fatalf("report not written: reports=%d status=%q", h.sos.reports, h.model.status)
	}

	h.send(t, components.PaletteSubmitMsg{Input: "warp:drive"})
	if h.model.status != "unknown command: warp:drive" {
		t.Fatalf("unexpected status %q", h.model.status)
	}
}

func TestThemeToggleRestylesViews(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	if h.model.styles.Name != "light" {
		t.Fatalf("expected light styles, got %q", h.model.styles.Name)
	}

	h.send(t, runeKey("t"))
	if h.state.theme != "dark" || h.model.styles.Name != "dark" {
		t.Fatalf("expected dark theme, state=%q styles=%q", h.state.theme, h.model.styles.Name)
	}
}

func TestTabCyclesViews(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.send(t, tea.WindowSizeMsg{Width: 100, Height: 30})

	h.send(t, tea.KeyMsg{Type: tea.KeyTab})
	if h.model.activeTab != tabEvidence {
		t.Fatalf("expected evidence tab, got %d", h.model.activeTab)
	}
	if view := h.model.View(); !strings.Contains(view, "Evidence") {
		t.Fatalf("evidence tab not rendered")
	}
	h.send(t, tea.KeyMsg{Type: tea.KeyTab})
	if h.model.activeTab != tabSOS {
		t.Fatalf("expected sos tab, got %d", h.model.activeTab)
	}
}

func TestPaletteKeepsPollingWhileOpen(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	// The focus command starts a cursor blink timer; leave it unrun.
	next, _ := h.model.Update(runeKey(":"))
	h.model = next.(Model)
	if !h.model.palette.Visible() {
		t.Fatalf("expected palette open")
	}
	h.sos.status = "ACTIVE"
	h.send(t, tickMsg(h.now))
	if h.model.lastStatus != "ACTIVE" {
		t.Fatalf("poll swallowed while palette open, status=%q", h.model.lastStatus)
	}

	h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	if h.model.palette.Visible() || h.model.status != "ready" {
		t.Fatalf("expected palette closed, visible=%v status=%q", h.model.palette.Visible(), h.model.status)
	}
}
