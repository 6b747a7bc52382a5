package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the externally observable work of the payment pipeline.
type Metrics struct {
	WebhooksAccepted prometheus.Counter
	WebhooksRejected *prometheus.CounterVec

	Reconciliations *prometheus.CounterVec
	LockContention  prometheus.Counter

	TasksEnqueued     *prometheus.CounterVec
	NotificationsSent *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		WebhooksAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "webhooks",
			Name:      "accepted_total",
			Help:      "Webhook deliveries accepted and queued.",
		}),
		WebhooksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "webhooks",
			Name:      "rejected_total",
			Help:      "Webhook deliveries rejected at the boundary.",
		}, []string{"reason"}),
		Reconciliations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "payments",
			Name:      "reconciliations_total",
			Help:      "Payment reconciliation runs by outcome.",
		}, []string{"outcome"}),
		LockContention: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "payments",
			Name:      "lock_contention_total",
			Help:      "Reconciliation attempts that lost the event lock.",
		}),
		TasksEnqueued: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "queue",
			Name:      "tasks_enqueued_total",
			Help:      "Tasks enqueued by type.",
		}, []string{"type"}),
		NotificationsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kolamart",
			Subsystem: "notifications",
			Name:      "sent_total",
			Help:      "Notifications dispatched by channel.",
		}, []string{"channel"}),
	}
}

func (m *Metrics) RecordWebhookAccepted() {
	if m == nil {
		return
	}
	m.WebhooksAccepted.Inc()
}

func (m *Metrics) RecordWebhookRejected(reason string) {
	if m == nil {
		return
	}
	m.WebhooksRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordReconciliation(outcome string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLockContention() {
	if m == nil {
		return
	}
	m.LockContention.Inc()
}

func (m *Metrics) RecordEnqueue(taskType string) {
	if m == nil {
		return
	}
	m.TasksEnqueued.WithLabelValues(taskType).Inc()
}

func (m *Metrics) RecordNotification(channel string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(channel).Inc()
}
