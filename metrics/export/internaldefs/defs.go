package internaldefs

import (
	"strings"

	bankAuth "github.com/MrEthical07/bankAuth"
)

// Label is one name/value pair on an exported series.
type Label struct {
	Name  string
	Value string
}

// Series is one labelled sample of a Family. A non-empty Purpose reads the
// per-purpose row of the snapshot instead of the total.
type Series struct {
	ID      bankAuth.MetricID
	Purpose bankAuth.Purpose
	Labels  []Label
}

// Value reads the series from snap.
func (s Series) Value(snap bankAuth.MetricsSnapshot) uint64 {
	if s.Purpose != "" {
		return snap.ByPurpose[s.Purpose][s.ID]
	}
	return snap.Counters[s.ID]
}

// Family is one exported counter name and the series under it.
type Family struct {
	Name   string
	Help   string
	Series []Series
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   bankAuth.MetricID
	Name string
	Help string
}

func perPurpose(id bankAuth.MetricID, extra ...Label) []Series {
	out := make([]Series, 0, 2)
	for _, p := range []bankAuth.Purpose{bankAuth.PurposeSignup, bankAuth.PurposeReset} {
		labels := append([]Label{{Name: "purpose", Value: string(p)}}, extra...)
		out = append(out, Series{ID: id, Purpose: p, Labels: labels})
	}
	return out
}

func single(id bankAuth.MetricID, labels ...Label) Series {
	return Series{ID: id, Labels: labels}
}

// Families lists every exported counter family in render order.
var Families = []Family{
	{
		Name:   "bankauth_otp_issued_total",
		Help:   "OTP codes issued and delivered.",
		Series: perPurpose(bankAuth.MetricOTPRequest),
	},
	{
		Name: "bankauth_otp_refused_total",
		Help: "OTP requests refused before issuance.",
		Series: append(
			perPurpose(bankAuth.MetricOTPRequestRateLimited, Label{Name: "reason", Value: "rate_limited"}),
			perPurpose(bankAuth.MetricOTPRequestCooldown, Label{Name: "reason", Value: "cooldown"})...,
		),
	},
	{
		Name: "bankauth_otp_verifications_total",
		Help: "OTP verification outcomes.",
		Series: append(
			perPurpose(bankAuth.MetricOTPVerifySuccess, Label{Name: "result", Value: "success"}),
			perPurpose(bankAuth.MetricOTPVerifyFailure, Label{Name: "result", Value: "failure"})...,
		),
	},
	{
		Name: "bankauth_lockouts_total",
		Help: "Transitions into the locked state.",
		Series: append(
			perPurpose(bankAuth.MetricLockoutOTP, Label{Name: "reason", Value: "otp"}),
			single(bankAuth.MetricLockoutLogin, Label{Name: "purpose", Value: "login"}, Label{Name: "reason", Value: "password"}),
		),
	},
	{
		Name:   "bankauth_lazy_unlocks_total",
		Help:   "Expired locks cleared on inspection.",
		Series: []Series{single(bankAuth.MetricLazyUnlock)},
	},
	{
		Name: "bankauth_logins_total",
		Help: "Login outcomes.",
		Series: []Series{
			single(bankAuth.MetricLoginSuccess, Label{Name: "result", Value: "success"}),
			single(bankAuth.MetricLoginFailure, Label{Name: "result", Value: "failure"}),
		},
	},
	{
		Name:   "bankauth_logouts_total",
		Help:   "Access tokens revoked by logout.",
		Series: []Series{single(bankAuth.MetricLogout)},
	},
	{
		Name:   "bankauth_signups_total",
		Help:   "Accounts created.",
		Series: []Series{single(bankAuth.MetricSignupComplete)},
	},
	{
		Name:   "bankauth_password_resets_total",
		Help:   "Passwords replaced through the reset flow.",
		Series: []Series{single(bankAuth.MetricPasswordReset)},
	},
	{
		Name:   "bankauth_rate_limit_fail_closed_total",
		Help:   "Rate checks refused because the ephemeral store failed.",
		Series: []Series{single(bankAuth.MetricRateLimitFailClosed)},
	},
	{
		Name:   "bankauth_store_conflicts_total",
		Help:   "Optimistic update conflicts returned to callers.",
		Series: []Series{single(bankAuth.MetricStoreConflict)},
	},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: bankAuth.MetricTokenValidateLatency, Name: "bankauth_token_validate_latency_seconds", Help: "Access token validation latency."},
}

// NotificationDropped is exported next to the engine counters; its value
// comes from the notification dispatcher.
const (
	NotificationDroppedName = "bankauth_notifications_dropped_total"
	NotificationDroppedHelp = "Notifications dropped before reaching the sender."
)

// HistogramBounds are the upper bucket bounds in seconds, matching the
// engine's fixed buckets.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"+Inf",
}

// FormatLabels renders labels in exposition form, e.g. {purpose="reset-otp"}.
// It returns "" for no labels.
func FormatLabels(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(l.Name)
		b.WriteString(`="`)
		b.WriteString(escapeLabel(l.Value))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return strings.ReplaceAll(v, "\n", `\n`)
}

// CumulativeBuckets pads raw to the fixed bucket count and converts it to the
// cumulative form both exporters publish.
func CumulativeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(out); i++ {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
