package out

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ridesafe/internal/modules/sos/domain"
	apperrors "ridesafe/internal/platform/errors"
)

func TestPrometheusMetricsCounts(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMetrics(reg)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.Activated()
	m.EvidenceCaptured()
	m.EvidenceCaptured()
	m.CapabilityFailed(domain.CapabilityCamera, fmt.Errorf("%w: in use", apperrors.ErrDeviceBusy))
	m.CapabilityFailed(domain.CapabilityLocation, apperrors.ErrPermissionDenied)
	m.CapabilityFailed(domain.CapabilityLocation, apperrors.ErrPermissionDenied)
	m.CapabilityFailed(domain.CapabilityStorage, errors.New("boom"))

	if got := testutil.ToFloat64(m.activations); got != 1 {
		t.Fatalf("activations = %v", got)
	}
	if got := testutil.ToFloat64(m.evidenceCaptured); got != 2 {
		t.Fatalf("evidence = %v", got)
	}
	if got := testutil.ToFloat64(m.capabilityFailure.WithLabelValues("location", "permission_denied")); got != 2 {
		t.Fatalf("location permission failures = %v", got)
	}
	if got := testutil.ToFloat64(m.capabilityFailure.WithLabelValues("camera", "device_busy")); got != 1 {
		t.Fatalf("camera busy failures = %v", got)
	}
	if got := testutil.ToFloat64(m.capabilityFailure.WithLabelValues("storage", "other")); got != 1 {
		t.Fatalf("storage failures = %v", got)
	}

	if _, err := NewPrometheusMetrics(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
