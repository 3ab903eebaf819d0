package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records ledger write and settlement activity.
type LedgerMetrics struct {
	entries     *prometheus.CounterVec
	duplicates  prometheus.Counter
	settlements *prometheus.CounterVec
	payable     *prometheus.HistogramVec
}

// NewLedgerMetrics registers ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	entries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Ledger entries written, by entry type.",
	}, []string{"type"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_sale_duplicates_total",
		Help: "Sale recordings rejected by the one-sale-per-order index.",
	})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_batches_total",
		Help: "Settlement batches, by outcome.",
	}, []string{"outcome"})
	payable := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_vendor_payable_cents",
		Help:    "Vendor payable amounts per generated batch.",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 6),
	}, []string{"vendor"})
	reg.MustRegister(entries, duplicates, settlements, payable)
	return &LedgerMetrics{
		entries:     entries,
		duplicates:  duplicates,
		settlements: settlements,
		payable:     payable,
	}
}

// IncEntry counts a ledger entry of the given type.
func (m *LedgerMetrics) IncEntry(entryType string) {
	if m == nil || m.entries == nil {
		return
	}
	m.entries.WithLabelValues(normalizeLabel(entryType)).Inc()
}

// IncSaleDuplicate counts a sale insert short-circuited by the unique index.
func (m *LedgerMetrics) IncSaleDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}

// IncSettlement counts a settlement generation outcome (generated, conflict, empty).
func (m *LedgerMetrics) IncSettlement(outcome string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObservePayable records the payable amount for a generated batch.
func (m *LedgerMetrics) ObservePayable(vendorID string, cents int) {
	if m == nil || m.payable == nil {
		return
	}
	m.payable.WithLabelValues(normalizeLabel(vendorID)).Observe(float64(cents))
}
