package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puddle_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "puddle_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "route"})

	WorkflowOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puddle_workflow_outcomes_total",
		Help: "Workflow results, labeled by workflow and outcome",
	}, []string{"workflow", "outcome"})

	InviteAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "puddle_invite_attempts_total",
		Help: "Partner invite attempts including retries",
	})

	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puddle_reconcile_items_total",
		Help: "Items handled by the reconciler, labeled by kind and outcome",
	}, []string{"kind", "outcome"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "puddle_notifications_total",
		Help: "Notification e-mails, labeled by event type and outcome",
	}, []string{"event", "outcome"})
)

// Workflow names used as the workflow label.
const (
	WorkflowCreation   = "creation"
	WorkflowInvite     = "invite"
	WorkflowDeposit    = "deposit"
	WorkflowWithdrawal = "withdrawal"
)

func Outcome(workflow, outcome string) {
	WorkflowOutcomes.WithLabelValues(workflow, outcome).Inc()
}
