package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ridesafe/internal/modules/appstate/domain"
	appstateout "ridesafe/internal/modules/appstate/port/out"
)

type FilePreferenceStore struct {
	path string
}

func NewFilePreferenceStore(statePath string) appstateout.PreferenceStore {
	return &FilePreferenceStore{path: filepath.Join(statePath, "preferences.json")}
}

func (s *FilePreferenceStore) Save(_ context.Context, prefs domain.Preferences) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create preferences dir: %w", err)
	}
	payload, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// Load returns the stored preferences, or light theme defaults when none
// were saved yet.
func (s *FilePreferenceStore) Load(_ context.Context) (domain.Preferences, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Preferences{Theme: domain.ThemeLight}, nil
		}
		return domain.Preferences{}, fmt.Errorf("read preferences: %w", err)
	}
	prefs := domain.Preferences{}
	if err := json.Unmarshal(payload, &prefs); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	if prefs.Theme == "" {
		prefs.Theme = domain.ThemeLight
	}
	if err := prefs.Theme.Validate(); err != nil {
		return domain.Preferences{}, err
	}
	return prefs, nil
}
