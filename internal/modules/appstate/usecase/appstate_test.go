package usecase

import (
	"context"
	"errors"
	"testing"

	"ridesafe/internal/modules/appstate/domain"
	appstatedto "ridesafe/internal/modules/appstate/dto"
	apperrors "ridesafe/internal/platform/errors"
)

type memoryPrefs struct {
	prefs   domain.Preferences
	saves   int
	failErr error
}

func (m *memoryPrefs) Load(context.Context) (domain.Preferences, error) {
	return m.prefs, nil
}

func (m *memoryPrefs) Save(_ context.Context, prefs domain.Preferences) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.saves++
	m.prefs = prefs
	return nil
}

func TestInteractorAppliesStoredTheme(t *testing.T) {
	t.Parallel()
	uc, err := NewInteractor(context.Background(), &memoryPrefs{prefs: domain.Preferences{Theme: domain.ThemeDark}}, nil)
	if err != nil {
		t.Fatalf("new interactor: %v", err)
	}
	if got := uc.State(context.Background()).Theme; got != "dark" {
		t.Fatalf("expected dark theme, got %s", got)
	}
}

func TestDispatchSetUserExposesIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, err := NewInteractor(ctx, nil, nil)
	if err != nil {
		t.Fatalf("new interactor: %v", err)
	}
	if id := uc.CurrentUserID(ctx); id != "" {
		t.Fatalf("expected no user, got %q", id)
	}
	out, err := uc.Dispatch(ctx, appstatedto.ActionInput{Type: "SET_USER", User: &appstatedto.UserInput{ID: "rider-1", Name: "Mina"}})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !out.IsAuthenticated || out.User == nil || out.User.Name != "Mina" {
		t.Fatalf("unexpected state: %+v", out)
	}
	if id := uc.CurrentUserID(ctx); id != "rider-1" {
		t.Fatalf("expected rider-1, got %q", id)
	}
}

func TestDispatchPersistsThemeOnlyOnChange(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	prefs := &memoryPrefs{prefs: domain.Preferences{Theme: domain.ThemeLight}}
	uc, err := NewInteractor(ctx, prefs, nil)
	if err != nil {
		t.Fatalf("new interactor: %v", err)
	}
	if _, err := uc.Dispatch(ctx, appstatedto.ActionInput{Type: "ACTIVATE_SOS"}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if prefs.saves != 0 {
		t.Fatalf("expected no save for sos action")
	}
	if _, err := uc.Dispatch(ctx, appstatedto.ActionInput{Type: "TOGGLE_THEME"}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if prefs.saves != 1 || prefs.prefs.Theme != domain.ThemeDark {
		t.Fatalf("expected dark theme saved once, got %+v after %d saves", prefs.prefs, prefs.saves)
	}
}

func TestDispatchSaveFailureKeepsState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	prefs := &memoryPrefs{prefs: domain.Preferences{Theme: domain.ThemeLight}}
	uc, _ := NewInteractor(ctx, prefs, nil)
	prefs.failErr = errors.New("disk full")

	if _, err := uc.Dispatch(ctx, appstatedto.ActionInput{Type: "TOGGLE_THEME"}); err == nil {
		t.Fatalf("expected save error")
	}
	if got := uc.State(ctx).Theme; got != "light" {
		t.Fatalf("expected theme unchanged, got %s", got)
	}
}

func TestDispatchRejectsInvalidActions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := NewInteractor(ctx, nil, nil)
	for _, input := range []appstatedto.ActionInput{
		{Type: "SET_RIDE"},
		{Type: "SET_USER"},
		{Type: "SET_LOCATION", Location: &appstatedto.LocationInput{Latitude: -91}},
	} {
		if _, err := uc.Dispatch(ctx, input); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("%s: expected invalid input, got %v", input.Type, err)
		}
	}
}
