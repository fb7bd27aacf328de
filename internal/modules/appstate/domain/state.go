package domain

import (
	"fmt"
	"strings"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type User struct {
	ID     string
	Name   string
	Email  string
	Phone  string
	Gender string
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// State is the application-wide view shared by the UI surfaces. It changes
// only through Reduce.
type State struct {
	User            *User
	Theme           Theme
	IsAuthenticated bool
	SOSActive       bool
	Location        *Location
}

type ActionType string

const (
	ActionSetUser       ActionType = "SET_USER"
	ActionToggleTheme   ActionType = "TOGGLE_THEME"
	ActionActivateSOS   ActionType = "ACTIVATE_SOS"
	ActionDeactivateSOS ActionType = "DEACTIVATE_SOS"
	ActionSetLocation   ActionType = "SET_LOCATION"
	ActionLogout        ActionType = "LOGOUT"
)

type Action struct {
	Type     ActionType
	User     *User
	Location *Location
}

func Initial() State {
	return State{Theme: ThemeLight}
}

// Reduce returns the state after applying action. The input state is not
// modified.
func Reduce(state State, action Action) (State, error) {
	next := state
	switch action.Type {
	case ActionSetUser:
		if action.User == nil || strings.TrimSpace(action.User.ID) == "" {
			return state, fmt.Errorf("set user requires a user id")
		}
		user := *action.User
		next.User = &user
		next.IsAuthenticated = true
	case ActionToggleTheme:
		if state.Theme == ThemeDark {
			next.Theme = ThemeLight
		} else {
			next.Theme = ThemeDark
		}
	case ActionActivateSOS:
		next.SOSActive = true
	case ActionDeactivateSOS:
		next.SOSActive = false
	case ActionSetLocation:
		if action.Location == nil {
			return state, fmt.Errorf("set location requires coordinates")
		}
		if err := action.Location.Validate(); err != nil {
			return state, err
		}
		location := *action.Location
		next.Location = &location
	case ActionLogout:
		next = Initial()
		next.Theme = state.Theme
	default:
		return state, fmt.Errorf("unknown action: %s", action.Type)
	}
	return next, nil
}

func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 || l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("coordinates out of range: %f,%f", l.Latitude, l.Longitude)
	}
	return nil
}

func (t Theme) Validate() error {
	switch t {
	case ThemeLight, ThemeDark:
		return nil
	default:
		return fmt.Errorf("unknown theme: %s", t)
	}
}

// Preferences is the part of State that outlives a process.
type Preferences struct {
	Theme Theme `json:"theme"`
}
