// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Route labels used by ChatRepliesTotal.
const (
	RouteLoanLookup     = "loan_lookup"
	RouteCustomerLoans  = "customer_loans"
	RouteMissingDetails = "missing_details"
	RouteFAQ            = "faq"
	RouteGenerative     = "generative"
	RouteDefault        = "default"
)

var (
	ChatRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Chat replies by the route that produced them",
		},
		[]string{"route"},
	)

	ChatReplyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_reply_duration_seconds",
			Help:    "Time spent composing a chat reply",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	IntentMatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "faq_intent_matches_total",
			Help: "FAQ classifier matches by intent tag",
		},
		[]string{"tag"},
	)

	GenerativeCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generative_fallback_calls_total",
			Help: "Generative fallback invocations by outcome",
		},
		[]string{"outcome"},
	)

	LoanLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_lookups_total",
			Help: "Loan data lookups by operation and result",
		},
		[]string{"operation", "result"},
	)

	ExchangeRecordFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_exchange_record_failures_total",
			Help: "Failed attempts to record a chat exchange",
		},
		[]string{"sink"},
	)

	OutboundRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbound_http_requests_total",
			Help: "Requests made to external HTTP services",
		},
		[]string{"service", "code", "method"},
	)

	OutboundRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbound_http_request_duration_seconds",
			Help:    "Latency of requests made to external HTTP services",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
