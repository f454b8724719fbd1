package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestGatewayMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewGatewayMetrics(reg)
	metrics.Observe("create_order", 201, 250*time.Millisecond)
	metrics.Observe("create_order", 0, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "gateway_requests_total", "status", "201"); err != nil {
		t.Fatalf("fetch 201: %v", err)
	} else if got != 1 {
		t.Fatalf("expected 201 count=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "gateway_requests_total", "status", "error"); err != nil {
		t.Fatalf("fetch error: %v", err)
	} else if got != 1 {
		t.Fatalf("expected error count=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "gateway_request_duration_seconds", "operation", "create_order"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCallbackMetricsCountsDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCallbackMetrics(reg)
	metrics.IncReceived("success", "paypal")
	metrics.IncDuplicate("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "payment_callbacks_total", "provider", "paypal"); err != nil || got != 1 {
		t.Fatalf("expected paypal callbacks=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "payment_callback_duplicates_total", "provider", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown duplicates=1, got %f (%v)", got, err)
	}
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var g *GatewayMetrics
	g.Observe("x", 200, time.Second)
	NewGatewayMetrics(nil).Observe("x", 200, time.Second)
	var c *CallbackMetrics
	c.IncReceived("success", "stripe")
	c.IncDuplicate("stripe")
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
