package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ridesafe/internal/bootstrap"
	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/platform/config"
	"ridesafe/internal/platform/httpserver"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataPath string

	root := &cobra.Command{
		Use:           "ridesafe",
		Short:         "Rider safety SOS console",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataPath, "data", ".", "data directory holding .ridesafe state and reports")

	root.AddCommand(newTUICmd(&dataPath))
	root.AddCommand(newSOSCmd(&dataPath))
	root.AddCommand(newStateCmd(&dataPath))
	root.AddCommand(newServeCmd(&dataPath))
	return root
}

func loadApp(ctx context.Context, dataPath string) (*bootstrap.App, error) {
	cfg, err := config.New(dataPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg)
}

func newTUICmd(dataPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the SOS terminal UI",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return bootstrap.RunTUI(app)
		},
	}
}

func newSOSCmd(dataPath *string) *cobra.Command {
	sos := &cobra.Command{Use: "sos", Short: "SOS activation and evidence commands"}

	var holdFor, watchFor time.Duration
	holdCmd := &cobra.Command{
		Use:   "hold",
		Short: "Press and hold the SOS control, then watch the active session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := loadApp(ctx, *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return runHold(ctx, cmd.OutOrStdout(), app, holdFor, watchFor)
		},
	}
	holdCmd.Flags().DurationVar(&holdFor, "for", config.DefaultHoldThreshold+500*time.Millisecond, "how long to hold the control")
	holdCmd.Flags().DurationVar(&watchFor, "watch", 30*time.Second, "how long to stay active before stopping")

	var alertsJSON bool
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "List stored emergency alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			alerts, err := app.SOSCLI.Alerts(cmd.Context())
			if err != nil {
				return err
			}
			if alertsJSON {
				return writeJSON(cmd.OutOrStdout(), alerts)
			}
			if len(alerts) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no alerts")
				return nil
			}
			for _, alert := range alerts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\n", alert.Timestamp, alert.Kind, alert.UserID, alert.SessionID, locationText(alert.Location))
			}
			return nil
		},
	}
	alertsCmd.Flags().BoolVar(&alertsJSON, "json", false, "print JSON")

	var includeImage, evidenceJSON bool
	evidenceCmd := &cobra.Command{
		Use:   "evidence",
		Short: "List captured photo evidence",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			records, err := app.SOSCLI.Evidence(cmd.Context(), includeImage)
			if err != nil {
				return err
			}
			if evidenceJSON || includeImage {
				return writeJSON(cmd.OutOrStdout(), records)
			}
			if len(records) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no evidence")
				return nil
			}
			for _, record := range records {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d bytes\t%s\n", record.Timestamp, record.SessionID, record.ImageSize, locationText(record.Location))
			}
			return nil
		},
	}
	evidenceCmd.Flags().BoolVar(&includeImage, "image", false, "include image data URLs (implies --json)")
	evidenceCmd.Flags().BoolVar(&evidenceJSON, "json", false, "print JSON")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Write today's incident report from stored records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SOSCLI.Report(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report=%s alerts=%d photos=%d\n", out.Path, out.AlertCount, out.EvidenceCount)
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show controller status for this process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.SOSCLI.Status(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	sos.AddCommand(holdCmd, alertsCmd, evidenceCmd, reportCmd, statusCmd)
	return sos
}

func runHold(ctx context.Context, w io.Writer, app *bootstrap.App, holdFor, watchFor time.Duration) error {
	status, err := app.SOSCLI.PressStart(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "holding for %s (%s)\n", holdFor, status.Status)

	select {
	case <-ctx.Done():
		_, _ = app.SOSCLI.PressEnd(context.WithoutCancel(ctx))
		return ctx.Err()
	case <-time.After(holdFor):
	}

	status, err = app.SOSCLI.PressEnd(ctx)
	if err != nil {
		return err
	}
	if status.Status != "ACTIVE" {
		_, _ = fmt.Fprintf(w, "released before activation (%.0f%%)\n", status.Progress*100)
		return nil
	}
	_, _ = fmt.Fprintf(w, "SOS active session=%s location=%s\n", status.SessionID, locationText(status.LastLocation))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	deadline := time.After(watchFor)
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
			evidence, err := app.SOSCLI.Evidence(ctx, false)
			if err != nil {
				app.Logger.Warn("list evidence", zap.Error(err))
				continue
			}
			_, _ = fmt.Fprintf(w, "\ractive: %d photos", countSession(evidence, status.SessionID))
		}
	}

	status, err = app.SOSCLI.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "\nstopped (%s)\n", status.Status)
	return nil
}

func newStateCmd(dataPath *string) *cobra.Command {
	state := &cobra.Command{Use: "state", Short: "Application state commands"}

	state.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the application state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return writeJSON(cmd.OutOrStdout(), app.StateCLI.Show(cmd.Context()))
		},
	})

	state.AddCommand(&cobra.Command{
		Use:   "theme",
		Short: "Toggle between the light and dark theme",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context(), *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			out, err := app.StateCLI.ToggleTheme(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "theme=%s\n", out.Theme)
			return nil
		},
	})
	return state
}

func newServeCmd(dataPath *string) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the SOS and state API with /metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			app, err := loadApp(ctx, *dataPath)
			if err != nil {
				return err
			}
			defer app.Close()
			if addr == "" {
				addr = app.Config.HTTP.Addr
			}
			engine, err := httpserver.NewEngine(app.Logger, app.Registry, app.Routes()...)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", addr)
			return httpserver.Serve(ctx, addr, engine, app.Logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to http.addr from config)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func locationText(location *sosdto.LocationOutput) string {
	if location == nil {
		return "no fix"
	}
	return fmt.Sprintf("%.5f,%.5f", location.Latitude, location.Longitude)
}

func countSession(records []sosdto.EvidenceOutput, sessionID string) int {
	n := 0
	for _, record := range records {
		if record.SessionID == sessionID {
			n++
		}
	}
	return n
}
