package internaldefs

import (
	admsession "github.com/imoveisdeluxo/admsession"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   admsession.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   admsession.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: admsession.MetricSignInSuccess, Name: "admsession_sign_in_success_total", Help: "Sign-ins that produced a console session."},
	{ID: admsession.MetricSignInFailure, Name: "admsession_sign_in_failure_total", Help: "Sign-ins that failed on the network or in storage."},
	{ID: admsession.MetricSignInDenied, Name: "admsession_sign_in_denied_total", Help: "Sign-ins refused because the account type is not allowed."},
	{ID: admsession.MetricSignInRejected, Name: "admsession_sign_in_rejected_total", Help: "Sign-ins refused by the API or by input validation."},
	{ID: admsession.MetricSignInSuperseded, Name: "admsession_sign_in_superseded_total", Help: "Sign-ins discarded because a newer attempt or a sign-out happened first."},
	{ID: admsession.MetricSignOut, Name: "admsession_sign_out_total", Help: "Sign-out operations."},
	{ID: admsession.MetricSignOutStoreFailure, Name: "admsession_sign_out_store_failure_total", Help: "Sign-outs whose credential store clear failed."},
	{ID: admsession.MetricSessionRestored, Name: "admsession_session_restored_total", Help: "Sessions restored from the credential store at start."},
	{ID: admsession.MetricSessionRestoreFailed, Name: "admsession_session_restore_failed_total", Help: "Start-up restores that failed."},
	{ID: admsession.MetricSessionExpired, Name: "admsession_session_expired_total", Help: "Persisted sessions discarded at start because the token expired."},
	{ID: admsession.MetricRequestAuthorized, Name: "admsession_request_authorized_total", Help: "Outbound requests sent with a bearer token."},
	{ID: admsession.MetricRequestAnonymous, Name: "admsession_request_anonymous_total", Help: "Outbound requests sent without a session."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: admsession.MetricSignInLatency, Name: "admsession_sign_in_latency_seconds", Help: "Sign-in round trip latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus "le" counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
