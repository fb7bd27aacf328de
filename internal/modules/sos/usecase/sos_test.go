package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"ridesafe/internal/modules/sos/domain"
	sosdto "ridesafe/internal/modules/sos/dto"
	"ridesafe/internal/modules/sos/service"
	"ridesafe/internal/platform/clock"
	apperrors "ridesafe/internal/platform/errors"
)

type memoryStore struct {
	mu       sync.Mutex
	alerts   []domain.AlertRecord
	evidence []domain.EvidenceRecord
}

func (s *memoryStore) AppendEvidence(_ context.Context, record domain.EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, record)
	return nil
}

func (s *memoryStore) AppendAlert(_ context.Context, record domain.AlertRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, record)
	return nil
}

func (s *memoryStore) ListEvidence(context.Context) ([]domain.EvidenceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EvidenceRecord(nil), s.evidence...), nil
}

func (s *memoryStore) ListAlerts(context.Context) ([]domain.AlertRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AlertRecord(nil), s.alerts...), nil
}

type stubLocation struct{}

func (stubLocation) Fix(context.Context) (domain.Coordinate, error) {
	return domain.Coordinate{Latitude: 52.52, Longitude: 13.405}, nil
}

type stubCamera struct{}

func (stubCamera) Open(context.Context) (domain.DeviceHandle, error) { return "cam-1", nil }
func (stubCamera) Capture(context.Context, domain.DeviceHandle) (string, error) {
	return "data:image/jpeg;base64,AAAA", nil
}
func (stubCamera) Close(domain.DeviceHandle) error { return nil }

type staticIdentity string

func (s staticIdentity) CurrentUserID(context.Context) string { return string(s) }

type captureWriter struct {
	reports []domain.Report
}

func (w *captureWriter) Write(_ context.Context, report domain.Report) (string, error) {
	w.reports = append(w.reports, report)
	return "/reports/incident.md", nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return "id-" + strconv.Itoa(g.n)
}

type fixture struct {
	clk     *clock.Manual
	store   *memoryStore
	writer  *captureWriter
	ctrl    *service.Controller
	usecase *Interactor
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	store := &memoryStore{}
	writer := &captureWriter{}
	identity := staticIdentity("rider-7")
	ctrl, err := service.NewController(clk, &seqIDs{}, service.Ports{
		Location: stubLocation{},
		Camera:   stubCamera{},
		Store:    store,
		Identity: identity,
	}, service.Options{}, zap.NewNop())
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	t.Cleanup(ctrl.Close)
	uc := NewInteractor(ctrl, store, writer, identity, clk).(*Interactor)
	return fixture{clk: clk, store: store, writer: writer, ctrl: ctrl, usecase: uc}
}

func TestPressStatusAndStopFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.usecase.PressStart(ctx)
	if err != nil {
		t.Fatalf("press start: %v", err)
	}
	if out.Status != string(domain.StatusArming) {
		t.Fatalf("expected ARMING, got %s", out.Status)
	}

	f.clk.Advance(1500 * time.Millisecond)
	out, err = f.usecase.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if out.Progress < 0.49 || out.Progress > 0.51 {
		t.Fatalf("expected half progress, got %f", out.Progress)
	}
	if out.ActivatedAt != nil {
		t.Fatalf("arming status must not carry activation time")
	}

	f.clk.Advance(1500 * time.Millisecond)
	out, _ = f.usecase.Status(ctx)
	if out.Status != string(domain.StatusActive) {
		t.Fatalf("expected ACTIVE, got %s", out.Status)
	}
	if out.ActivatedAt == nil || out.SessionID == "" {
		t.Fatalf("expected session id and activation time, got %+v", out)
	}
	if out.LastLocation == nil || out.LastLocation.Latitude != 52.52 {
		t.Fatalf("expected fix in status, got %+v", out.LastLocation)
	}
	if !out.CaptureActive {
		t.Fatalf("expected capture active")
	}

	out, err = f.usecase.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out.Status != string(domain.StatusInactive) || out.CaptureActive {
		t.Fatalf("expected inactive without capture, got %+v", out)
	}
}

func TestPressEndBeforeThresholdReturnsInactive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.usecase.PressStart(ctx)
	f.clk.Advance(time.Second)
	out, err := f.usecase.PressEnd(ctx)
	if err != nil {
		t.Fatalf("press end: %v", err)
	}
	if out.Status != string(domain.StatusInactive) || out.Progress != 0 {
		t.Fatalf("expected reset, got %+v", out)
	}
	alerts, _ := f.usecase.ListAlerts(ctx)
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts, got %d", len(alerts))
	}
}

func TestReportLocationValidatesRange(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.usecase.ReportLocation(ctx, sosdto.LocationInput{Latitude: 91, Longitude: 0}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	out, err := f.usecase.ReportLocation(ctx, sosdto.LocationInput{Latitude: 48.85, Longitude: 2.35})
	if err != nil {
		t.Fatalf("report location: %v", err)
	}
	if out.LastLocation == nil || out.LastLocation.Longitude != 2.35 {
		t.Fatalf("expected reported location, got %+v", out.LastLocation)
	}
}

func TestListEvidenceOmitsImageUnlessRequested(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	_, _ = f.usecase.PressStart(ctx)
	f.clk.Advance(3 * time.Second)
	f.clk.Advance(20 * time.Second)

	alerts, err := f.usecase.ListAlerts(ctx)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Kind != string(domain.AlertActivated) || alerts[0].UserID != "rider-7" {
		t.Fatalf("unexpected alerts: %+v", alerts)
	}
	if alerts[0].Timestamp != "2026-03-01T08:00:03.000Z" {
		t.Fatalf("unexpected alert timestamp %s", alerts[0].Timestamp)
	}

	items, err := f.usecase.ListEvidence(ctx, sosdto.EvidenceQuery{})
	if err != nil {
		t.Fatalf("list evidence: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(items))
	}
	for _, item := range items {
		if item.ImageData != "" {
			t.Fatalf("image must be omitted by default")
		}
		if item.ImageSize != len("data:image/jpeg;base64,AAAA") {
			t.Fatalf("unexpected image size %d", item.ImageSize)
		}
		if item.SessionID != alerts[0].SessionID {
			t.Fatalf("evidence session %s does not match alert %s", item.SessionID, alerts[0].SessionID)
		}
	}

	items, _ = f.usecase.ListEvidence(ctx, sosdto.EvidenceQuery{IncludeImage: true})
	if items[0].ImageData == "" {
		t.Fatalf("expected image when requested")
	}
}

func TestExportReportRequiresAlerts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.usecase.ExportReport(ctx); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, _ = f.usecase.PressStart(ctx)
	f.clk.Advance(13 * time.Second)

	out, err := f.usecase.ExportReport(ctx)
	if err != nil {
		t.Fatalf("export report: %v", err)
	}
	if out.Path != "/reports/incident.md" || out.AlertCount != 1 || out.EvidenceCount != 1 {
		t.Fatalf("unexpected report output: %+v", out)
	}
	if len(f.writer.reports) != 1 || f.writer.reports[0].UserID != "rider-7" {
		t.Fatalf("unexpected report payload: %+v", f.writer.reports)
	}
}
