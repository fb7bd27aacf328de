package out

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	sosout "ridesafe/internal/modules/sos/port/out"
	apperrors "ridesafe/internal/platform/errors"
)

// PrometheusMetrics counts SOS lifecycle events on the given registerer.
type PrometheusMetrics struct {
	activations       prometheus.Counter
	evidenceCaptured  prometheus.Counter
	capabilityFailure *prometheus.CounterVec
}

func NewPrometheusMetrics(reg prometheus.Registerer) (*PrometheusMetrics, error) {
	m := &PrometheusMetrics{
		activations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ridesafe",
			Subsystem: "sos",
			Name:      "activations_total",
			Help:      "SOS sessions that reached ACTIVE.",
		}),
		evidenceCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ridesafe",
			Subsystem: "sos",
			Name:      "evidence_captured_total",
			Help:      "Photo evidence records stored.",
		}),
		capabilityFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ridesafe",
			Subsystem: "sos",
			Name:      "capability_failures_total",
			Help:      "Swallowed capability failures by capability and reason.",
		}, []string{"capability", "reason"}),
	}
	for _, c := range []prometheus.Collector{m.activations, m.evidenceCaptured, m.capabilityFailure} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

var _ sosout.Metrics = (*PrometheusMetrics)(nil)

func (m *PrometheusMetrics) Activated() {
	m.activations.Inc()
}

func (m *PrometheusMetrics) EvidenceCaptured() {
	m.evidenceCaptured.Inc()
}

func (m *PrometheusMetrics) CapabilityFailed(capability string, err error) {
	m.capabilityFailure.WithLabelValues(capability, failureReason(err)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, apperrors.ErrCapabilityTimeout):
		return "timeout"
	case errors.Is(err, apperrors.ErrDeviceBusy):
		return "device_busy"
	case errors.Is(err, apperrors.ErrCapabilityUnavailable):
		return "unavailable"
	case errors.Is(err, apperrors.ErrStorageWrite):
		return "storage_write"
	default:
		return "other"
	}
}
