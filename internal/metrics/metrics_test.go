package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetricsWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)

	m.ChecksTotal.WithLabelValues("host-a").Inc()
	m.ChecksTotal.WithLabelValues("host-a").Inc()
	m.CheckFailures.WithLabelValues("host-a", ReasonTotalLoss).Inc()
	m.PacketsSent.WithLabelValues("host-a").Add(5)
	m.PacketsDropped.WithLabelValues("host-a").Add(2)
	m.SessionsActive.Inc()
	m.HubConnected.Set(1)

	if got := testutil.ToFloat64(m.ChecksTotal.WithLabelValues("host-a")); got != 2 {
		t.Errorf("checks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.CheckFailures.WithLabelValues("host-a", ReasonTotalLoss)); got != 1 {
		t.Errorf("check_failures_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PacketsSent.WithLabelValues("host-a")); got != 5 {
		t.Errorf("packets_sent_total = %v, want 5", got)
	}
	if got := testutil.ToFloat64(m.PacketsDropped.WithLabelValues("host-a")); got != 2 {
		t.Errorf("packets_dropped_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Errorf("sessions_active = %v, want 1", got)
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() must return the same instance")
	}
}
