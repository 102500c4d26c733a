package jobs

import "github.com/prometheus/client_golang/prometheus"

var JobRunsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifier_job_runs_total",
		Help: "Total number of job runs",
	},
	[]string{"job", "result"},
)

var RemindersCreatedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "notifier_reminders_created_total",
		Help: "Total number of reminders created by the document scanner",
	},
)

var RemindersDispatchedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifier_reminders_dispatched_total",
		Help: "Total number of reminders finalized by the dispatch engine",
	},
	[]string{"status"},
)

var LicenseNotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifier_license_notifications_total",
		Help: "Total number of license threshold notifications evaluated",
	},
	[]string{"status"},
)

var NotificationSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "notifier_send_duration_seconds",
		Help:    "Time taken to send notifications via external providers",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"channel"},
)

// InitMetrics registers the job metrics with the default registry.
func InitMetrics() {
	prometheus.MustRegister(JobRunsTotal)
	prometheus.MustRegister(RemindersCreatedTotal)
	prometheus.MustRegister(RemindersDispatchedTotal)
	prometheus.MustRegister(LicenseNotificationsTotal)
	prometheus.MustRegister(NotificationSendDuration)
}
