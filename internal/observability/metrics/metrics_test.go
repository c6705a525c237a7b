package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				if c := metric.GetCounter(); c != nil {
					return c.GetValue()
				}
				if g := metric.GetGauge(); g != nil {
					return g.GetValue()
				}
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, pair := range metric.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
			return false
		}
	}
	return true
}

func TestGatewayMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)
	m.ObserveCall("bookings", "insert", 0.01, nil)
	m.ObserveCall("bookings", "insert", 0.02, errors.New("boom"))
	m.ObserveDropped("bookings")

	if got := counterValue(t, reg, "quickie_gateway_calls_total", map[string]string{"status": "error"}); got != 1 {
		t.Fatalf("expected one failed call, got %v", got)
	}
	if got := counterValue(t, reg, "quickie_gateway_realtime_dropped_total", map[string]string{"table": "bookings"}); got != 1 {
		t.Fatalf("expected one dropped event, got %v", got)
	}
}

func TestSiteMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSiteMetrics(reg)
	m.ObserveBookingSubmission("success")
	m.ObserveAvailabilityCheck("ok")
	m.ObserveCartAddition("stock_limit")
	m.ObserveContactSubmission("general", "invalid")
	m.LiveViewerConnected()
	m.LiveViewerConnected()
	m.LiveViewerDisconnected()

	if got := counterValue(t, reg, "quickie_admin_live_viewers", nil); got != 1 {
		t.Fatalf("expected one live viewer, got %v", got)
	}
	if got := counterValue(t, reg, "quickie_catalog_cart_additions_total", map[string]string{"result": "stock_limit"}); got != 1 {
		t.Fatalf("expected stock limit addition, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var g *GatewayMetrics
	g.ObserveCall("t", "op", 0.1, nil)
	g.ObserveDropped("t")

	var s *SiteMetrics
	s.ObserveBookingSubmission("success")
	s.ObserveAvailabilityCheck("ok")
	s.ObserveCartAddition("added")
	s.ObserveContactSubmission("general", "ok")
	s.LiveViewerConnected()
	s.LiveViewerDisconnected()
}
