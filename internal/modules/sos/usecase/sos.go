package usecase

import (
	"context"
	"fmt"

	"ridesafe/internal/modules/sos/domain"
	sosdto "ridesafe/internal/modules/sos/dto"
	sosin "ridesafe/internal/modules/sos/port/in"
	sosout "ridesafe/internal/modules/sos/port/out"
	"ridesafe/internal/modules/sos/service"
	"ridesafe/internal/platform/clock"
	apperrors "ridesafe/internal/platform/errors"
)

type Interactor struct {
	ctrl     *service.Controller
	store    sosout.EvidenceStore
	reports  sosout.ReportWriter
	identity sosout.UserIdentity
	clock    clock.Clock
}

func NewInteractor(ctrl *service.Controller, store sosout.EvidenceStore, reports sosout.ReportWriter, identity sosout.UserIdentity, clk clock.Clock) sosin.Usecase {
	return &Interactor{ctrl: ctrl, store: store, reports: reports, identity: identity, clock: clk}
}

func (i *Interactor) PressStart(_ context.Context) (sosdto.StatusOutput, error) {
	i.ctrl.PressStart()
	return i.status(), nil
}

func (i *Interactor) PressEnd(_ context.Context) (sosdto.StatusOutput, error) {
	i.ctrl.PressEnd()
	return i.status(), nil
}

func (i *Interactor) Stop(_ context.Context) (sosdto.StatusOutput, error) {
	i.ctrl.Stop()
	return i.status(), nil
}

func (i *Interactor) Status(_ context.Context) (sosdto.StatusOutput, error) {
	return i.status(), nil
}

func (i *Interactor) ReportLocation(_ context.Context, input sosdto.LocationInput) (sosdto.StatusOutput, error) {
	fix := domain.Coordinate{Latitude: input.Latitude, Longitude: input.Longitude, AcquiredAt: i.clock.Now()}
	if err := fix.Validate(); err != nil {
		return sosdto.StatusOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	i.ctrl.ReportLocation(fix)
	return i.status(), nil
}

func (i *Interactor) ListAlerts(ctx context.Context) ([]sosdto.AlertOutput, error) {
	alerts, err := i.store.ListAlerts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sosdto.AlertOutput, 0, len(alerts))
	for _, alert := range alerts {
		out = append(out, toAlertOutput(alert))
	}
	return out, nil
}

func (i *Interactor) ListEvidence(ctx context.Context, query sosdto.EvidenceQuery) ([]sosdto.EvidenceOutput, error) {
	records, err := i.store.ListEvidence(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]sosdto.EvidenceOutput, 0, len(records))
	for _, record := range records {
		item := sosdto.EvidenceOutput{
			ID:        record.ID,
			SessionID: record.SessionID,
			Timestamp: record.Timestamp.UTC().Format(domain.TimestampLayout),
			ImageSize: len(record.ImageData),
			Location:  toLocationOutput(record.Location),
		}
		if query.IncludeImage {
			item.ImageData = record.ImageData
		}
		out = append(out, item)
	}
	return out, nil
}

func (i *Interactor) ExportReport(ctx context.Context) (sosdto.ReportOutput, error) {
	if i.reports == nil {
		return sosdto.ReportOutput{}, fmt.Errorf("report writer is not configured")
	}
	alerts, err := i.store.ListAlerts(ctx)
	if err != nil {
		return sosdto.ReportOutput{}, err
	}
	if len(alerts) == 0 {
		return sosdto.ReportOutput{}, fmt.Errorf("%w: no alerts recorded", apperrors.ErrNotFound)
	}
	evidence, err := i.store.ListEvidence(ctx)
	if err != nil {
		return sosdto.ReportOutput{}, err
	}
	userID := ""
	if i.identity != nil {
		userID = i.identity.CurrentUserID(ctx)
	}
	path, err := i.reports.Write(ctx, domain.Report{
		GeneratedAt: i.clock.Now(),
		UserID:      userID,
		Alerts:      alerts,
		Evidence:    evidence,
	})
	if err != nil {
		return sosdto.ReportOutput{}, err
	}
	return sosdto.ReportOutput{Path: path, AlertCount: len(alerts), EvidenceCount: len(evidence)}, nil
}

func (i *Interactor) status() sosdto.StatusOutput {
	session, progress := i.ctrl.Snapshot()
	out := sosdto.StatusOutput{
		SessionID:     session.ID,
		Status:        string(session.Status),
		Progress:      progress,
		LastLocation:  toLocationOutput(session.LastLocation),
		CaptureActive: session.CaptureActive,
	}
	if !session.ActivatedAt.IsZero() {
		activatedAt := session.ActivatedAt
		out.ActivatedAt = &activatedAt
	}
	return out
}

func toAlertOutput(alert domain.AlertRecord) sosdto.AlertOutput {
	return sosdto.AlertOutput{
		ID:        alert.ID,
		SessionID: alert.SessionID,
		UserID:    alert.UserID,
		Timestamp: alert.Timestamp.UTC().Format(domain.TimestampLayout),
		Location:  toLocationOutput(alert.Location),
		Kind:      string(alert.Kind),
	}
}

func toLocationOutput(c *domain.Coordinate) *sosdto.LocationOutput {
	if c == nil {
		return nil
	}
	return &sosdto.LocationOutput{Latitude: c.Latitude, Longitude: c.Longitude}
}
