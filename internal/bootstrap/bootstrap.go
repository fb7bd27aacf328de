package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	hclog "github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	appstateinadapter "ridesafe/internal/modules/appstate/adapter/in"
	appstateoutadapter "ridesafe/internal/modules/appstate/adapter/out"
	appstatedto "ridesafe/internal/modules/appstate/dto"
	appstateusecase "ridesafe/internal/modules/appstate/usecase"
	sosinadapter "ridesafe/internal/modules/sos/adapter/in"
	sosoutadapter "ridesafe/internal/modules/sos/adapter/out"
	sosout "ridesafe/internal/modules/sos/port/out"
	sosservice "ridesafe/internal/modules/sos/service"
	sosusecase "ridesafe/internal/modules/sos/usecase"
	"ridesafe/internal/platform/clock"
	"ridesafe/internal/platform/config"
	"ridesafe/internal/platform/httpserver"
	"ridesafe/internal/platform/id"
	"ridesafe/internal/platform/logging"
	uiapp "ridesafe/internal/ui/app"
)

type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Registry  *prometheus.Registry
	SOSCLI    sosinadapter.CLIHandler
	SOSHTTP   sosinadapter.HTTPHandler
	StateCLI  appstateinadapter.CLIHandler
	StateHTTP appstateinadapter.HTTPHandler

	closers []func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("new logger: %w", err)
	}
	app := &App{Config: cfg, Logger: logger}
	app.closers = append(app.closers, func() error {
		_ = logger.Sync()
		return nil
	})
	if err := app.wire(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) wire(ctx context.Context) error {
	cfg := a.Config
	clk := clock.SystemClock{}
	ids := id.UUID{}

	stateUC, err := appstateusecase.NewInteractor(ctx, appstateoutadapter.NewFilePreferenceStore(cfg.StatePath), a.Logger)
	if err != nil {
		return fmt.Errorf("new app state: %w", err)
	}
	if _, err := stateUC.Dispatch(ctx, appstatedto.ActionInput{
		Type: "SET_USER",
		User: &appstatedto.UserInput{
			ID:     cfg.User.ID,
			Name:   cfg.User.Name,
			Email:  cfg.User.Email,
			Phone:  cfg.User.Phone,
			Gender: cfg.User.Gender,
		},
	}); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	bridge := sosoutadapter.NewAppStateBridge(stateUC, a.Logger)

	store, err := a.evidenceStore()
	if err != nil {
		return err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := sosoutadapter.NewPrometheusMetrics(a.Registry)
	if err != nil {
		return fmt.Errorf("new metrics: %w", err)
	}

	ctrl, err := sosservice.NewController(clk, ids, sosservice.Ports{
		Location: a.locationProvider(clk),
		Camera:   a.captureDevice(),
		Store:    store,
		Sink:     bridge,
		Identity: bridge,
		Metrics:  metrics,
	}, sosservice.Options{
		HoldThreshold:            cfg.SOS.HoldThreshold,
		CaptureInterval:          cfg.SOS.CaptureInterval,
		LocationTimeout:          cfg.SOS.LocationTimeout,
		RefreshLocationOnCapture: cfg.SOS.RefreshLocationOnCapture,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("new sos controller: %w", err)
	}
	// Registered after the store and camera so the controller stops first.
	a.closers = append(a.closers, func() error {
		ctrl.Close()
		return nil
	})

	sosUC := sosusecase.NewInteractor(ctrl, store, sosoutadapter.NewMarkdownReportWriter(cfg.ReportsDir), bridge, clk)
	a.SOSCLI = sosinadapter.NewCLIHandler(sosUC)
	a.SOSHTTP = sosinadapter.NewHTTPHandler(sosUC)
	a.StateCLI = appstateinadapter.NewCLIHandler(stateUC)
	a.StateHTTP = appstateinadapter.NewHTTPHandler(stateUC)
	return nil
}

func (a *App) evidenceStore() (sosout.EvidenceStore, error) {
	switch a.Config.Store.Kind {
	case "file":
		return sosoutadapter.NewFileEvidenceStore(filepath.Join(a.Config.StatePath, "local-storage")), nil
	default:
		store, err := sosoutadapter.NewSQLiteEvidenceStore(a.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("new evidence store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
}

func (a *App) locationProvider(clk clock.Clock) sosout.LocationProvider {
	switch a.Config.Location.Source {
	case "static":
		return sosoutadapter.NewStaticLocation(a.Config.Location.Latitude, a.Config.Location.Longitude, clk)
	case "file":
		return sosoutadapter.NewFileLocation(a.Config.Location.FixPath, clk)
	default:
		return nil
	}
}

func (a *App) captureDevice() sosout.CaptureDevice {
	switch a.Config.Capture.Device {
	case "dir":
		return sosoutadapter.NewFrameDirCapture(a.Config.Capture.FrameDir)
	case "plugin":
		pluginLogger := hclog.New(&hclog.LoggerOptions{
			Name:   "capture-plugin",
			Level:  hclog.LevelFromString(a.Config.Log.Level),
			Output: zap.NewStdLog(a.Logger.Named("capture-plugin")).Writer(),
		})
		device := sosoutadapter.NewPluginCaptureDevice(a.Config.Capture.PluginBinary, pluginLogger)
		a.closers = append(a.closers, func() error {
			device.Shutdown()
			return nil
		})
		return device
	default:
		return nil
	}
}

// Routes returns the HTTP surface for the serve command.
func (a *App) Routes() []httpserver.Route {
	return []httpserver.Route{a.SOSHTTP, a.StateHTTP}
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.SOSCLI, app.StateCLI)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}
