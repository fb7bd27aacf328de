package out

import (
	"context"

	"ridesafe/internal/modules/sos/domain"
)

// LocationProvider resolves a single fix per call with no retry.
type LocationProvider interface {
	Fix(ctx context.Context) (domain.Coordinate, error)
}

// CaptureDevice is a still-frame camera. Close must tolerate repeated calls,
// an empty handle, and a concurrent Capture on the same handle.
type CaptureDevice interface {
	Open(ctx context.Context) (domain.DeviceHandle, error)
	Capture(ctx context.Context, handle domain.DeviceHandle) (string, error)
	Close(handle domain.DeviceHandle) error
}

// EvidenceStore is append-only; List methods return records in append order.
type EvidenceStore interface {
	AppendEvidence(ctx context.Context, record domain.EvidenceRecord) error
	AppendAlert(ctx context.Context, record domain.AlertRecord) error
	ListEvidence(ctx context.Context) ([]domain.EvidenceRecord, error)
	ListAlerts(ctx context.Context) ([]domain.AlertRecord, error)
}

type StateSink interface {
	Publish(ctx context.Context, notification domain.Notification)
}

type UserIdentity interface {
	CurrentUserID(ctx context.Context) string
}

type Metrics interface {
	Activated()
	EvidenceCaptured()
	CapabilityFailed(capability string, err error)
}

type ReportWriter interface {
	Write(ctx context.Context, report domain.Report) (string, error)
}
