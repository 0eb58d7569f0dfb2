// Package metrics holds the Prometheus collectors of the scheduler.
//
// Collectors live on a private registry so tests can build as many
// instances as they like without duplicate-registration panics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultRejected = "rejected"
)

type Metrics struct {
	reg *prometheus.Registry

	bookings      *prometheus.CounterVec // itp_appointments_booked_total
	transitions   *prometheus.CounterVec // itp_appointment_transitions_total
	notifications *prometheus.CounterVec // itp_notifications_total
	sweepDocs     *prometheus.CounterVec // itp_certificate_status_changes_total
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	bookings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itp_appointments_booked_total",
			Help: "Booking attempts partitioned by result (success, rejected, failure).",
		},
		[]string{"result"},
	)
	transitions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itp_appointment_transitions_total",
			Help: "Lifecycle transitions partitioned by transition and result.",
		},
		[]string{"transition", "result"},
	)
	notifications := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itp_notifications_total",
			Help: "Notification sends partitioned by kind and result.",
		},
		[]string{"kind", "result"},
	)
	sweepDocs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "itp_certificate_status_changes_total",
			Help: "Certificate status changes applied by the staleness sweep, by new status.",
		},
		[]string{"status"},
	)

	reg.MustRegister(
		bookings,
		transitions,
		notifications,
		sweepDocs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		reg:           reg,
		bookings:      bookings,
		transitions:   transitions,
		notifications: notifications,
		sweepDocs:     sweepDocs,
	}
}

// All observe methods accept a nil receiver so metrics stay optional.

func (m *Metrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTransition(transition, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(transition, result).Inc()
}

func (m *Metrics) ObserveNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveCertificateStatus(status string) {
	if m == nil {
		return
	}
	m.sweepDocs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}
