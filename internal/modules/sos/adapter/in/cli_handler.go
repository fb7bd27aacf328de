package in

import (
	"context"

	sosdto "ridesafe/internal/modules/sos/dto"
	sosin "ridesafe/internal/modules/sos/port/in"
)

type CLIHandler struct {
	usecase sosin.Usecase
}

func NewCLIHandler(usecase sosin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) PressStart(ctx context.Context) (sosdto.StatusOutput, error) {
	return h.usecase.PressStart(ctx)
}

func (h CLIHandler) PressEnd(ctx context.Context) (sosdto.StatusOutput, error) {
	return h.usecase.PressEnd(ctx)
}

func (h CLIHandler) Stop(ctx context.Context) (sosdto.StatusOutput, error) {
	return h.usecase.Stop(ctx)
}

func (h CLIHandler) Status(ctx context.Context) (sosdto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Alerts(ctx context.Context) ([]sosdto.AlertOutput, error) {
	return h.usecase.ListAlerts(ctx)
}

func (h CLIHandler) Evidence(ctx context.Context, includeImage bool) ([]sosdto.EvidenceOutput, error) {
	return h.usecase.ListEvidence(ctx, sosdto.EvidenceQuery{IncludeImage: includeImage})
}

func (h CLIHandler) Report(ctx context.Context) (sosdto.ReportOutput, error) {
	return h.usecase.ExportReport(ctx)
}

func (h CLIHandler) ReportLocation(ctx context.Context, latitude, longitude float64) (sosdto.StatusOutput, error) {
	return h.usecase.ReportLocation(ctx, sosdto.LocationInput{Latitude: latitude, Longitude: longitude})
}
