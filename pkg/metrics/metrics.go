package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tronwatch"

var (
	// SweepsTotal counts completed polling sweeps
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Completed polling sweeps over the wallet list",
	})

	// SweepDuration observes how long one sweep takes
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Wall time of one polling sweep",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	// TransfersEmitted counts transfer events published on the bus, by strategy and direction
	TransfersEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transfers_emitted_total",
		Help:      "Transfer events emitted by the activity source",
	}, []string{"strategy", "direction"})

	// FetchErrors counts failed upstream fetches by operation and error kind
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_errors_total",
		Help:      "Failed ledger API fetches",
	}, []string{"operation", "kind"})

	// DuplicatesDropped counts streaming records dropped by the seen-hash cache
	DuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_dropped_total",
		Help:      "Streaming records dropped because their hash was already seen",
	})

	// StreamReconnects counts scheduled reconnect attempts of the push feed
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stream_reconnects_total",
		Help:      "Push feed reconnect attempts",
	})

	// StateFlushes counts persisted state writes by store and result
	StateFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "state_flushes_total",
		Help:      "Persisted progress state writes",
	}, []string{"store", "result"})

	// NotificationsSent counts delivered notifications by job kind
	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Notifications delivered to the messaging channel",
	}, []string{"kind"})

	// NotificationsDropped counts notifications given up on, by reason
	NotificationsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_dropped_total",
		Help:      "Notifications dropped after a failed send",
	}, []string{"kind", "reason"})

	// NotificationsThrottled counts throttle responses from the messaging channel
	NotificationsThrottled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_throttled_total",
		Help:      "Throttle responses received from the messaging channel",
	})

	// NotificationQueueDepth tracks jobs waiting in the dispatcher queue
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Jobs waiting in the notification dispatcher queue",
	})

	// BalanceReportRuns counts balance aggregation runs by result
	BalanceReportRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "balance_report_runs_total",
		Help:      "Balance aggregation runs",
	}, []string{"result"})

	// HTTPRequests counts admin API requests by route and status
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Admin API requests",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes admin API latency by route
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Admin API request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)
