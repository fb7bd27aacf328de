package in

import (
	"context"

	"ridesafe/internal/modules/sos/dto"
)

type Usecase interface {
	PressStart(ctx context.Context) (dto.StatusOutput, error)
	PressEnd(ctx context.Context) (dto.StatusOutput, error)
	Stop(ctx context.Context) (dto.StatusOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	ReportLocation(ctx context.Context, input dto.LocationInput) (dto.StatusOutput, error)
	ListAlerts(ctx context.Context) ([]dto.AlertOutput, error)
	ListEvidence(ctx context.Context, query dto.EvidenceQuery) ([]dto.EvidenceOutput, error)
	ExportReport(ctx context.Context) (dto.ReportOutput, error)
}
