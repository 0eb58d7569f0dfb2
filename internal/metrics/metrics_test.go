package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveBooking(ResultSuccess)
	m.ObserveBooking(ResultSuccess)
	m.ObserveBooking(ResultRejected)
	m.ObserveTransition("confirm", ResultSuccess)
	m.ObserveNotification("Confirmed", ResultFailure)
	m.ObserveCertificateStatus("EXPIRED")

	require.Equal(t, 2.0, testutil.ToFloat64(m.bookings.WithLabelValues(ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.bookings.WithLabelValues(ResultRejected)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirm", ResultSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("Confirmed", ResultFailure)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sweepDocs.WithLabelValues("EXPIRED")))

	n, err := testutil.GatherAndCount(m.Registry(), "itp_appointments_booked_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveBooking(ResultSuccess)
		m.ObserveTransition("confirm", ResultFailure)
		m.ObserveNotification("Confirmed", ResultSuccess)
		m.ObserveCertificateStatus("ACTIVE")
	})
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObserveBooking(ResultSuccess)
	require.Equal(t, 0.0, testutil.ToFloat64(b.bookings.WithLabelValues(ResultSuccess)))
}
