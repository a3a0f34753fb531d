package internaldefs

import (
	auth "github.com/justincavery/yoga-app-sub000"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   auth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   auth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for Engine.AuditDropped.
const (
	AuditDroppedName = "auth_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: auth.MetricRegisterSuccess, Name: "auth_register_success_total", Help: "Successful registrations."},
	{ID: auth.MetricRegisterFailure, Name: "auth_register_failure_total", Help: "Rejected registrations."},
	{ID: auth.MetricLoginSuccess, Name: "auth_login_success_total", Help: "Successful login attempts."},
	{ID: auth.MetricLoginFailure, Name: "auth_login_failure_total", Help: "Failed login attempts."},
	{ID: auth.MetricLoginLocked, Name: "auth_login_locked_total", Help: "Login attempts rejected because the account was locked."},
	{ID: auth.MetricAccountLocked, Name: "auth_account_locked_total", Help: "Accounts locked after repeated failures."},
	{ID: auth.MetricPasswordUpgraded, Name: "auth_password_upgraded_total", Help: "Password hashes re-hashed with current parameters at login."},
	{ID: auth.MetricLogout, Name: "auth_logout_total", Help: "Single-token logout operations."},
	{ID: auth.MetricLogoutAll, Name: "auth_logout_all_total", Help: "Logout-all operations."},
	{ID: auth.MetricRefreshSuccess, Name: "auth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: auth.MetricRefreshFailure, Name: "auth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: auth.MetricPasswordChangeSuccess, Name: "auth_password_change_success_total", Help: "Successful password changes."},
	{ID: auth.MetricPasswordChangeFailure, Name: "auth_password_change_failure_total", Help: "Rejected password changes."},
	{ID: auth.MetricPasswordResetRequest, Name: "auth_password_reset_request_total", Help: "Password reset requests."},
	{ID: auth.MetricPasswordResetConfirmSuccess, Name: "auth_password_reset_confirm_success_total", Help: "Successful password reset confirmations."},
	{ID: auth.MetricPasswordResetConfirmFailure, Name: "auth_password_reset_confirm_failure_total", Help: "Failed password reset confirmations."},
	{ID: auth.MetricEmailVerificationRequest, Name: "auth_email_verification_request_total", Help: "Email verification requests."},
	{ID: auth.MetricEmailVerificationSuccess, Name: "auth_email_verification_success_total", Help: "Successful email verifications."},
	{ID: auth.MetricEmailVerificationFailure, Name: "auth_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: auth.MetricEmailDispatchFailure, Name: "auth_email_dispatch_failure_total", Help: "Emails the mailer refused."},
	{ID: auth.MetricAuthorizeSuccess, Name: "auth_authorize_success_total", Help: "Authorized requests."},
	{ID: auth.MetricAuthorizeRejected, Name: "auth_authorize_rejected_total", Help: "Rejected requests."},
	{ID: auth.MetricRevocationFailOpen, Name: "auth_revocation_fail_open_total", Help: "Revocation checks skipped because the cache was unavailable."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: auth.MetricAuthorizeLatency, Name: "auth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramUpperBounds are the bucket bounds in seconds, excluding +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBounds is an exported constant or variable used by the text renderer.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix names the per-bucket OTel gauges.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
