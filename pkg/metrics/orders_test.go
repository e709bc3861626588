package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func TestOrderMetricsObserveCheckout(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)

	metrics.ObserveCheckout(CheckoutResultCompleted, decimal.RequireFromString("141.00"))
	metrics.ObserveCheckout(CheckoutResultEmpty, decimal.Zero)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "pieshop_checkouts_total", "result", CheckoutResultCompleted); err != nil || got != 1 {
		t.Fatalf("expected one completed checkout, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pieshop_checkouts_total", "result", CheckoutResultEmpty); err != nil || got != 1 {
		t.Fatalf("expected one empty checkout, got %f (%v)", got, err)
	}

	mf := findMetricFamily(mfs, "pieshop_checkout_total_amount")
	if mf == nil {
		t.Fatalf("amount histogram missing")
	}
	hist := mf.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() != 141 {
		t.Fatalf("unexpected histogram count=%d sum=%f", hist.GetSampleCount(), hist.GetSampleSum())
	}
}

func TestOrderMetricsObserveDelivery(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)

	metrics.ObserveDelivery("redis", nil)
	metrics.ObserveDelivery("redis", errors.New("boom"))
	metrics.ObserveDelivery("redis", errors.New("boom"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	mf := findMetricFamily(mfs, "pieshop_delivery_notifications_total")
	if mf == nil {
		t.Fatalf("delivery counter missing")
	}
	var ok, failed float64
	for _, metric := range mf.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "result", "ok"):
			ok = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "result", "error"):
			failed = metric.GetCounter().GetValue()
		}
	}
	if ok != 1 || failed != 2 {
		t.Fatalf("unexpected delivery counts ok=%f error=%f", ok, failed)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var metrics *OrderMetrics
	metrics.ObserveCheckout(CheckoutResultCompleted, decimal.NewFromInt(1))
	metrics.ObserveDelivery("log", nil)
	NewOrderMetrics(nil).ObserveCheckout(CheckoutResultFailed, decimal.Zero)
}
