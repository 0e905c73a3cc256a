// Package metrics holds the Prometheus instrumentation for the purchase flow,
// payment reconciliation and the reminder scheduler. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fitdew"

type Metrics struct {
	checkoutsIssued       *prometheus.CounterVec
	purchaseRejected      *prometheus.CounterVec
	paymentsReconciled    *prometheus.CounterVec
	remindersSent         prometheus.Counter
	reminderFailures      *prometheus.CounterVec
	reminderCycleDuration prometheus.Histogram
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		checkoutsIssued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_issued_total",
			Help:      "Checkout requests sent to users, by target tier.",
		}, []string{"tier", "kind"}),
		purchaseRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchase_rejected_total",
			Help:      "Purchase confirmations rejected by a precondition.",
		}, []string{"reason"}),
		paymentsReconciled: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_reconciled_total",
			Help:      "Completed payments applied to subscription records.",
		}, []string{"tier"}),
		remindersSent: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Expiry reminders delivered.",
		}),
		reminderFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_failures_total",
			Help:      "Reminder failures by stage (query, send, persist, panic).",
		}, []string{"stage"}),
		reminderCycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reminder_cycle_duration_seconds",
			Help:      "Wall time of one reminder scheduler cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) CheckoutIssued(tier string, upgrade bool) {
	if m == nil {
		return
	}
	kind := "new"
	if upgrade {
		kind = "upgrade"
	}
	m.checkoutsIssued.WithLabelValues(tier, kind).Inc()
}

func (m *Metrics) PurchaseRejected(reason string) {
	if m == nil {
		return
	}
	m.purchaseRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) PaymentReconciled(tier string) {
	if m == nil {
		return
	}
	m.paymentsReconciled.WithLabelValues(tier).Inc()
}

func (m *Metrics) ReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}

func (m *Metrics) ReminderFailed(stage string) {
	if m == nil {
		return
	}
	m.reminderFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveReminderCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.reminderCycleDuration.Observe(d.Seconds())
}
