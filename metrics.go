package bankAuth

import (
	"sync/atomic"
	"time"
)

// MetricID defines a public type used by bankAuth APIs.
//
// MetricID values index the fixed counter table held by Metrics.
type MetricID uint16

const (
	// MetricOTPRequest counts successful OTP issuances.
	MetricOTPRequest MetricID = iota
	// MetricOTPRequestRateLimited counts issuances refused by the request window.
	MetricOTPRequestRateLimited
	// MetricOTPRequestCooldown counts issuances refused by the cooldown marker.
	MetricOTPRequestCooldown
	// MetricOTPVerifySuccess counts successful OTP verifications.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts rejected OTP verifications of any kind.
	MetricOTPVerifyFailure
	// MetricLockoutOTP counts ACTIVE to LOCKED transitions caused by OTP attempts.
	MetricLockoutOTP
	// MetricLockoutLogin counts ACTIVE to LOCKED transitions caused by wrong passwords.
	MetricLockoutLogin
	// MetricLazyUnlock counts expired locks cleared on inspection.
	MetricLazyUnlock
	// MetricLoginSuccess counts issued token pairs.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins.
	MetricLoginFailure
	// MetricLogout counts revoked access tokens.
	MetricLogout
	// MetricSignupComplete counts created accounts.
	MetricSignupComplete
	// MetricPasswordReset counts completed password resets.
	MetricPasswordReset
	// MetricRateLimitFailClosed counts rate checks refused because the ephemeral store failed.
	MetricRateLimitFailClosed
	// MetricStoreConflict counts optimistic-concurrency conflicts surfaced to callers.
	MetricStoreConflict
	// MetricTokenValidateLatency is the histogram slot for token validation.
	MetricTokenValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// OTP counters also keep one row per purpose so signup and reset traffic can
// be told apart.
var metricPurposes = [...]Purpose{PurposeSignup, PurposeReset}

// PurposeScoped reports whether id is split by OTP purpose in snapshots.
func (id MetricID) PurposeScoped() bool {
	switch id {
	case MetricOTPRequest, MetricOTPRequestRateLimited, MetricOTPRequestCooldown,
		MetricOTPVerifySuccess, MetricOTPVerifyFailure, MetricLockoutOTP:
		return true
	}
	return false
}

func purposeRow(p Purpose) int {
	for i, candidate := range metricPurposes {
		if candidate == p {
			return i
		}
	}
	return -1
}

// Metrics is a lock-free counter table. A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	byPurpose     [len(metricPurposes)][metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters. ByPurpose holds
// the purpose-scoped counters; their totals are also in Counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	ByPurpose  map[Purpose]map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a counter table from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// IncFor adds one to the counter id and to its row for purpose. Ids that are
// not purpose-scoped, and unknown purposes, only move the total.
func (m *Metrics) IncFor(id MetricID, purpose Purpose) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
	if row := purposeRow(purpose); row >= 0 && id.PurposeScoped() {
		atomic.AddUint64(&m.byPurpose[row][id].value, 1)
	}
}

// Observe records d into the histogram for id. Only MetricTokenValidateLatency
// carries a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricTokenValidateLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// ValueFor returns the purpose row of counter id.
func (m *Metrics) ValueFor(id MetricID, purpose Purpose) uint64 {
	row := purposeRow(purpose)
	if m == nil || id >= metricIDCount || row < 0 {
		return 0
	}
	return atomic.LoadUint64(&m.byPurpose[row][id].value)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			ByPurpose:  map[Purpose]map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		ByPurpose:  make(map[Purpose]map[MetricID]uint64, len(metricPurposes)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricTokenValidateLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	for row, purpose := range metricPurposes {
		counts := make(map[MetricID]uint64)
		for id := MetricID(0); id < metricIDCount; id++ {
			if id.PurposeScoped() {
				counts[id] = atomic.LoadUint64(&m.byPurpose[row][id].value)
			}
		}
		s.ByPurpose[purpose] = counts
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricTokenValidateLatency].buckets[i])
		}
		s.Histograms[MetricTokenValidateLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 50:
		return 0
	case us <= 100:
		return 1
	case us <= 250:
		return 2
	case us <= 500:
		return 3
	case us <= 1000:
		return 4
	case us <= 2500:
		return 5
	case us <= 5000:
		return 6
	default:
		return 7
	}
}
