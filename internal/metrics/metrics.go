package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOrg     = "org"
	labelKind    = "kind"
	labelOutcome = "outcome"
	labelType    = "type"
	labelOp      = "op"

	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"

	OutcomeDone    = "done"
	OutcomeRetried = "retried"
	OutcomeDead    = "dead"
	OutcomeDropped = "dropped"

	OutcomeFired = "fired"
	OutcomeStale = "stale"
)

// Metrics groups the collectors exported on /metrics. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	QueueLength       *prometheus.GaugeVec
	Notifications     *prometheus.CounterVec
	Jobs              *prometheus.CounterVec
	PersistenceErrors *prometheus.CounterVec
	Reminders         *prometheus.CounterVec
}

// New creates the collectors and registers them with reg when it is not nil.
func New(reg prometheus.Registerer) *Metrics {
	var m Metrics

	m.QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "line_queue_length",
		Help: "Number of members currently waiting in an organization's queue.",
	}, []string{labelOrg})
	m.Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "line_notifications_total",
		Help: "Notification delivery attempts by kind and outcome.",
	}, []string{labelKind, labelOutcome})
	m.Jobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "line_jobs_total",
		Help: "Background jobs by type and outcome.",
	}, []string{labelType, labelOutcome})
	m.PersistenceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "line_persistence_errors_total",
		Help: "Failed writes of queue state to the durable store.",
	}, []string{labelOp})
	m.Reminders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "line_reminders_total",
		Help: "First-in-line reminders by outcome.",
	}, []string{labelOutcome})

	if reg != nil {
		reg.MustRegister(m.QueueLength, m.Notifications, m.Jobs, m.PersistenceErrors, m.Reminders)
	}
	return &m
}

// SetQueueLength records the current length of one organization's queue.
func (m *Metrics) SetQueueLength(orgID int64, n int) {
	if m == nil {
		return
	}
	m.QueueLength.WithLabelValues(strconv.FormatInt(orgID, 10)).Set(float64(n))
}

func (m *Metrics) Notification(kind, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Job(jobType, outcome string) {
	if m == nil {
		return
	}
	m.Jobs.WithLabelValues(jobType, outcome).Inc()
}

func (m *Metrics) PersistenceError(op string) {
	if m == nil {
		return
	}
	m.PersistenceErrors.WithLabelValues(op).Inc()
}

func (m *Metrics) Reminder(outcome string) {
	if m == nil {
		return
	}
	m.Reminders.WithLabelValues(outcome).Inc()
}
