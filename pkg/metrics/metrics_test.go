package metrics

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestSaleMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSaleMetrics(reg)
	m.ObserveCreated(decimal.RequireFromString("15.00"))
	m.IncDeleted()
	m.IncInsufficientStock("validate")
	m.IncInsufficientStock("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := fetchPlainCounter(t, mfs, "pdv_sales_created_total"); got != 1 {
		t.Fatalf("expected created=1, got %f", got)
	}
	if got := fetchPlainCounter(t, mfs, "pdv_sales_deleted_total"); got != 1 {
		t.Fatalf("expected deleted=1, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "pdv_sale_insufficient_stock_total", "stage", "validate"); err != nil {
		t.Fatalf("fetch insufficient: %v", err)
	} else if got != 1 {
		t.Fatalf("expected insufficient=1, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "pdv_sale_insufficient_stock_total", "stage", "unknown"); err != nil {
		t.Fatalf("expected empty stage to be normalized: %v", err)
	}

	mf := findMetricFamily(mfs, "pdv_sale_total_amount")
	if mf == nil {
		t.Fatal("histogram not registered")
	}
	if sum := mf.GetMetric()[0].GetHistogram().GetSampleSum(); sum != 15 {
		t.Fatalf("expected histogram sum 15, got %f", sum)
	}
}

func TestPublisherMetricsCountsByEventType(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPublisherMetrics(reg)
	m.IncPublished("sale.created")
	m.IncPublished("sale.created")
	m.IncFailed("sale.deleted")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "pdv_outbox_published_total", "event_type", "sale.created"); err != nil || got != 2 {
		t.Fatalf("expected published=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "pdv_outbox_publish_failures_total", "event_type", "sale.deleted"); err != nil || got != 1 {
		t.Fatalf("expected failed=1, got %f err=%v", got, err)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var sales *SaleMetrics
	sales.ObserveCreated(decimal.NewFromInt(1))
	sales.IncDeleted()
	sales.IncInsufficientStock("commit")

	unregistered := NewSaleMetrics(nil)
	unregistered.ObserveCreated(decimal.NewFromInt(1))

	var pub *PublisherMetrics
	pub.IncPublished("x")
	pub.IncFailed("x")
}

func fetchPlainCounter(t *testing.T, mfs []*dto.MetricFamily, name string) float64 {
	t.Helper()
	mf := findMetricFamily(mfs, name)
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatalf("metric %q not found", name)
	}
	return mf.GetMetric()[0].GetCounter().GetValue()
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
