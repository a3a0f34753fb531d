package auth

import internalmetrics "github.com/justincavery/yoga-app-sub000/internal/metrics"

// MetricID identifies one engine counter.
type MetricID = internalmetrics.MetricID

const (
	MetricRegisterSuccess             = MetricID(internalmetrics.MetricRegisterSuccess)
	MetricRegisterFailure             = MetricID(internalmetrics.MetricRegisterFailure)
	MetricLoginSuccess                = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure                = MetricID(internalmetrics.MetricLoginFailure)
	MetricLoginLocked                 = MetricID(internalmetrics.MetricLoginLocked)
	MetricAccountLocked               = MetricID(internalmetrics.MetricAccountLocked)
	MetricPasswordUpgraded            = MetricID(internalmetrics.MetricPasswordUpgraded)
	MetricLogout                      = MetricID(internalmetrics.MetricLogout)
	MetricLogoutAll                   = MetricID(internalmetrics.MetricLogoutAll)
	MetricRefreshSuccess              = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure              = MetricID(internalmetrics.MetricRefreshFailure)
	MetricPasswordChangeSuccess       = MetricID(internalmetrics.MetricPasswordChangeSuccess)
	MetricPasswordChangeFailure       = MetricID(internalmetrics.MetricPasswordChangeFailure)
	MetricPasswordResetRequest        = MetricID(internalmetrics.MetricPasswordResetRequest)
	MetricPasswordResetConfirmSuccess = MetricID(internalmetrics.MetricPasswordResetConfirmSuccess)
	MetricPasswordResetConfirmFailure = MetricID(internalmetrics.MetricPasswordResetConfirmFailure)
	MetricEmailVerificationRequest    = MetricID(internalmetrics.MetricEmailVerificationRequest)
	MetricEmailVerificationSuccess    = MetricID(internalmetrics.MetricEmailVerificationSuccess)
	MetricEmailVerificationFailure    = MetricID(internalmetrics.MetricEmailVerificationFailure)
	MetricEmailDispatchFailure        = MetricID(internalmetrics.MetricEmailDispatchFailure)
	MetricAuthorizeSuccess            = MetricID(internalmetrics.MetricAuthorizeSuccess)
	MetricAuthorizeRejected           = MetricID(internalmetrics.MetricAuthorizeRejected)
	MetricRevocationFailOpen          = MetricID(internalmetrics.MetricRevocationFailOpen)
	MetricAuthorizeLatency            = MetricID(internalmetrics.MetricAuthorizeLatency)
)

// Metrics holds lock-free engine counters.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of every counter and, when
// enabled, the authorize latency histogram.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
