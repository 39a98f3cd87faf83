package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// SaleMetrics records register activity.
type SaleMetrics struct {
	created      prometheus.Counter
	deleted      prometheus.Counter
	amount       prometheus.Histogram
	insufficient *prometheus.CounterVec
}

// NewSaleMetrics registers the sale metrics on the provided registerer.
func NewSaleMetrics(reg prometheus.Registerer) *SaleMetrics {
	if reg == nil {
		return &SaleMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdv_sales_created_total",
		Help: "Sales committed.",
	})
	deleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pdv_sales_deleted_total",
		Help: "Sales reversed and removed.",
	})
	amount := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pdv_sale_total_amount",
		Help:    "Total amount per committed sale.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	insufficient := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pdv_sale_insufficient_stock_total",
		Help: "Sales rejected because a product lacked stock.",
	}, []string{"stage"})
	reg.MustRegister(created, deleted, amount, insufficient)
	return &SaleMetrics{
		created:      created,
		deleted:      deleted,
		amount:       amount,
		insufficient: insufficient,
	}
}

// ObserveCreated counts a committed sale and its total.
func (m *SaleMetrics) ObserveCreated(total decimal.Decimal) {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
	m.amount.Observe(total.InexactFloat64())
}

// IncDeleted counts a reversed sale.
func (m *SaleMetrics) IncDeleted() {
	if m == nil || m.deleted == nil {
		return
	}
	m.deleted.Inc()
}

// IncInsufficientStock counts a rejection. stage is "validate" when the
// pre-check failed and "commit" when the conditional decrement lost a race.
func (m *SaleMetrics) IncInsufficientStock(stage string) {
	if m == nil || m.insufficient == nil {
		return
	}
	m.insufficient.WithLabelValues(normalizeLabel(stage)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
