package domain

import "testing"

func TestReduceSetUserAuthenticates(t *testing.T) {
	t.Parallel()
	state, err := Reduce(Initial(), Action{Type: ActionSetUser, User: &User{ID: "u-1", Name: "Asha"}})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	if !state.IsAuthenticated || state.User == nil || state.User.ID != "u-1" {
		t.Fatalf("unexpected state: %+v", state)
	}
	if _, err := Reduce(Initial(), Action{Type: ActionSetUser, User: &User{Name: "nobody"}}); err == nil {
		t.Fatalf("expected error for user without id")
	}
}

func TestReduceTogglesThemeAndSOS(t *testing.T) {
	t.Parallel()
	state := Initial()
	state, _ = Reduce(state, Action{Type: ActionToggleTheme})
	if state.Theme != ThemeDark {
		t.Fatalf("expected dark, got %s", state.Theme)
	}
	state, _ = Reduce(state, Action{Type: ActionToggleTheme})
	if state.Theme != ThemeLight {
		t.Fatalf("expected light, got %s", state.Theme)
	}
	state, _ = Reduce(state, Action{Type: ActionActivateSOS})
	if !state.SOSActive {
		t.Fatalf("expected sos active")
	}
	state, _ = Reduce(state, Action{Type: ActionDeactivateSOS})
	if state.SOSActive {
		t.Fatalf("expected sos inactive")
	}
}

func TestReduceDoesNotAliasInput(t *testing.T) {
	t.Parallel()
	loc := &Location{Latitude: 1, Longitude: 2}
	state, err := Reduce(Initial(), Action{Type: ActionSetLocation, Location: loc})
	if err != nil {
		t.Fatalf("reduce: %v", err)
	}
	loc.Latitude = 50
	if state.Location.Latitude != 1 {
		t.Fatalf("state aliased action payload")
	}
	if _, err := Reduce(state, Action{Type: ActionSetLocation, Location: &Location{Latitude: 100}}); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestReduceLogoutKeepsTheme(t *testing.T) {
	t.Parallel()
	state := Initial()
	state, _ = Reduce(state, Action{Type: ActionSetUser, User: &User{ID: "u-1"}})
	state, _ = Reduce(state, Action{Type: ActionToggleTheme})
	state, _ = Reduce(state, Action{Type: ActionActivateSOS})
	state, _ = Reduce(state, Action{Type: ActionSetLocation, Location: &Location{Latitude: 3, Longitude: 4}})

	state, err := Reduce(state, Action{Type: ActionLogout})
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	if state.User != nil || state.IsAuthenticated || state.SOSActive || state.Location != nil {
		t.Fatalf("logout must reset session state: %+v", state)
	}
	if state.Theme != ThemeDark {
		t.Fatalf("logout must keep theme, got %s", state.Theme)
	}
}

func TestReduceRejectsUnknownAction(t *testing.T) {
	t.Parallel()
	before := Initial()
	after, err := Reduce(before, Action{Type: "SET_RIDE"})
	if err == nil {
		t.Fatalf("expected error for unknown action")
	}
	if after != before {
		t.Fatalf("state changed on rejected action")
	}
}
