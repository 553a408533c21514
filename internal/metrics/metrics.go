package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront_auth"

var (
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Total number of signup attempts by outcome",
		},
		[]string{"status"}, // success, rejected, failed
	)

	LoginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts",
		},
		[]string{"status"}, // success, invalid_credentials
	)

	TokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_refresh_total",
			Help:      "Total number of token refreshes",
		},
		[]string{"status"}, // success, expired
	)

	LogoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logouts_total",
		Help:      "Total number of sessions ended by logout",
	})

	EmailVerificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_verifications_total",
		Help:      "Total number of verified email addresses",
	})
)

// ObserveAudit maps a service audit event onto the business counters.
// Unknown actions are ignored.
func ObserveAudit(action string, fields map[string]string) {
	switch action {
	case "signup":
		SignupsTotal.WithLabelValues("success").Inc()
	case "signup_rejected":
		SignupsTotal.WithLabelValues("rejected").Inc()
	case "signup_failed":
		SignupsTotal.WithLabelValues("failed").Inc()
	case "login":
		LoginAttemptsTotal.WithLabelValues("success").Inc()
	case "login_failed":
		LoginAttemptsTotal.WithLabelValues(fields["reason"]).Inc()
	case "refresh":
		TokenRefreshTotal.WithLabelValues("success").Inc()
	case "refresh_failed":
		TokenRefreshTotal.WithLabelValues(fields["reason"]).Inc()
	case "logout":
		LogoutsTotal.Inc()
	case "verify_email":
		EmailVerificationsTotal.Inc()
	}
}
