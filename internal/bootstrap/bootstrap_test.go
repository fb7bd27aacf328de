package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ridesafe/internal/platform/config"
)

func TestNewWiresStoresAndIdentity(t *testing.T) {
	t.Parallel()
	for _, kind := range []string{"sqlite", "file"} {
		kind := kind
		t.Run(kind, func(t *testing.T) {
			t.Parallel()
			dataPath := t.TempDir()
			stateDir := filepath.Join(dataPath, ".ridesafe")
			if err := os.MkdirAll(stateDir, 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			yaml := "store:\n  kind: " + kind + "\nuser:\n  id: rider-42\n  name: Test Rider\nlocation:\n  source: static\n  latitude: 48.1\n  longitude: 11.5\n"
			if err := os.WriteFile(filepath.Join(stateDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := config.New(dataPath)
			if err != nil {
				t.Fatalf("config: %v", err)
			}

			ctx := context.Background()
			app, err := New(ctx, cfg)
			if err != nil {
				t.Fatalf("bootstrap: %v", err)
			}
			defer func() {
				if err := app.Close(); err != nil {
					t.Fatalf("close: %v", err)
				}
			}()

			if got := app.StateCLI.Show(ctx); got.User == nil || got.User.ID != "rider-42" {
				t.Fatalf("expected configured user in app state, got %+v", got.User)
			}
			status, err := app.SOSCLI.Status(ctx)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if status.Status != "INACTIVE" {
				t.Fatalf("expected INACTIVE, got %s", status.Status)
			}
			alerts, err := app.SOSCLI.Alerts(ctx)
			if err != nil {
				t.Fatalf("alerts: %v", err)
			}
			if len(alerts) != 0 {
				t.Fatalf("expected empty store, got %d alerts", len(alerts))
			}
			if len(app.Routes()) != 2 {
				t.Fatalf("expected two route groups")
			}
		})
	}
}
