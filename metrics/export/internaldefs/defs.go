package internaldefs

import "github.com/MrEthical07/authflow"

// Counter names one exported counter.
type Counter struct {
	ID   authflow.MetricID
	Name string
	Help string
}

var Counters = []Counter{
	{authflow.MetricRegisterSuccess, "authflow_register_success_total", "Accounts created."},
	{authflow.MetricRegisterDuplicate, "authflow_register_duplicate_total", "Registrations rejected for an existing email."},
	{authflow.MetricVerifySuccess, "authflow_email_verify_success_total", "Successful email verifications."},
	{authflow.MetricVerifyFailure, "authflow_email_verify_failure_total", "Rejected email verifications."},
	{authflow.MetricLoginSuccess, "authflow_login_success_total", "Successful logins."},
	{authflow.MetricLoginFailure, "authflow_login_failure_total", "Logins rejected for bad or missing credentials."},
	{authflow.MetricLoginUnverified, "authflow_login_unverified_total", "Logins rejected because the email is not verified."},
	{authflow.MetricSessionCreated, "authflow_session_created_total", "Sessions created."},
	{authflow.MetricLogout, "authflow_logout_total", "Logout requests."},
	{authflow.MetricRefreshSuccess, "authflow_refresh_success_total", "Access tokens reissued from a session."},
	{authflow.MetricRefreshFailure, "authflow_refresh_failure_total", "Refresh attempts with an unknown session."},
	{authflow.MetricPasswordResetRequest, "authflow_password_reset_request_total", "Reset tokens issued."},
	{authflow.MetricPasswordResetSuccess, "authflow_password_reset_success_total", "Passwords changed with a reset token."},
	{authflow.MetricPasswordResetRejected, "authflow_password_reset_rejected_total", "Reset attempts ignored for a bad or expired token."},
	{authflow.MetricPasswordRehash, "authflow_password_rehash_total", "Password digests upgraded at login."},
	{authflow.MetricNotifyFailure, "authflow_notify_failure_total", "Emails that could not be handed to the notifier."},
}

// NotifyLatency is the only histogram.
const (
	NotifyLatencyName = "authflow_notify_latency_seconds"
	NotifyLatencyHelp = "Time spent handing one email to the notifier."
	AuditDroppedName  = "authflow_audit_dropped_total"
	AuditDroppedHelp  = "Audit events dropped because the dispatcher buffer was full."
)

// Bounds are the upper bucket bounds in seconds, matching the engine's
// millisecond buckets. BoundSuffixes are the same bounds usable in
// instrument names.
var (
	Bounds        = []string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}
	BoundSuffixes = []string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}
)

// Cumulative turns per-bucket counts into the running totals exporters
// report. Missing buckets count as zero.
func Cumulative(raw []uint64) []uint64 {
	out := make([]uint64, len(Bounds))
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
