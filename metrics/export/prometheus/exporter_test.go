package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	bankAuth "github.com/MrEthical07/bankAuth"
)

type fakeSource struct {
	snapshot bankAuth.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() bankAuth.MetricsSnapshot { return f.snapshot }
func (f fakeSource) NotificationsDropped() uint64              { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := New(fakeSource{
		snapshot: bankAuth.MetricsSnapshot{
			Counters:   map[bankAuth.MetricID]uint64{},
			Histograms: map[bankAuth.MetricID][]uint64{},
		},
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderLabelsSeriesByPurpose(t *testing.T) {
	exp := New(fakeSource{
		snapshot: bankAuth.MetricsSnapshot{
			Counters: map[bankAuth.MetricID]uint64{
				bankAuth.MetricOTPRequest:   7,
				bankAuth.MetricLockoutLogin: 2,
				bankAuth.MetricLoginSuccess: 5,
			},
			ByPurpose: map[bankAuth.Purpose]map[bankAuth.MetricID]uint64{
				bankAuth.PurposeSignup: {bankAuth.MetricOTPRequest: 4, bankAuth.MetricOTPRequestCooldown: 1},
				bankAuth.PurposeReset:  {bankAuth.MetricOTPRequest: 3, bankAuth.MetricLockoutOTP: 1},
			},
			Histograms: map[bankAuth.MetricID][]uint64{
				bankAuth.MetricTokenValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"# TYPE bankauth_otp_issued_total counter",
		`bankauth_otp_issued_total{purpose="signup-otp"} 4`,
		`bankauth_otp_issued_total{purpose="reset-otp"} 3`,
		`bankauth_otp_refused_total{purpose="signup-otp",reason="cooldown"} 1`,
		`bankauth_otp_refused_total{purpose="reset-otp",reason="rate_limited"} 0`,
		`bankauth_lockouts_total{purpose="reset-otp",reason="otp"} 1`,
		`bankauth_lockouts_total{purpose="login",reason="password"} 2`,
		`bankauth_logins_total{result="success"} 5`,
		"bankauth_store_conflicts_total 0",
		"# TYPE bankauth_token_validate_latency_seconds histogram",
		`bankauth_token_validate_latency_seconds_bucket{le="0.00005"} 1`,
		`bankauth_token_validate_latency_seconds_bucket{le="+Inf"} 36`,
		"bankauth_token_validate_latency_seconds_count 36",
		"bankauth_notifications_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	if strings.Count(out, "# TYPE bankauth_otp_issued_total") != 1 {
		t.Fatal("each family must carry a single TYPE line")
	}
}

func TestRenderSkipsDisabledHistogram(t *testing.T) {
	exp := New(fakeSource{
		snapshot: bankAuth.MetricsSnapshot{
			Counters:   map[bankAuth.MetricID]uint64{bankAuth.MetricLogout: 1},
			Histograms: map[bankAuth.MetricID][]uint64{},
		},
	})

	out := exp.Render()
	if strings.Contains(out, "bankauth_token_validate_latency_seconds") {
		t.Fatalf("histogram rendered while disabled:\n%s", out)
	}
	if !strings.Contains(out, "bankauth_logouts_total 1") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRenderFromEngine(t *testing.T) {
	m := bankAuth.NewMetrics(bankAuth.MetricsConfig{Enabled: true})
	m.IncFor(bankAuth.MetricOTPVerifyFailure, bankAuth.PurposeReset)
	m.IncFor(bankAuth.MetricOTPVerifyFailure, bankAuth.PurposeReset)
	m.IncFor(bankAuth.MetricOTPVerifySuccess, bankAuth.PurposeSignup)

	out := New(fakeSource{snapshot: m.Snapshot()}).Render()
	for _, want := range []string{
		`bankauth_otp_verifications_total{purpose="reset-otp",result="failure"} 2`,
		`bankauth_otp_verifications_total{purpose="signup-otp",result="success"} 1`,
		`bankauth_otp_verifications_total{purpose="signup-otp",result="failure"} 0`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
}

func TestRenderNilExporter(t *testing.T) {
	var exp *Exporter
	if exp.Render() != "" {
		t.Fatal("nil exporter renders nothing")
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := New(fakeSource{
		snapshot: bankAuth.MetricsSnapshot{
			Counters:   map[bankAuth.MetricID]uint64{bankAuth.MetricLoginSuccess: 1},
			Histograms: map[bankAuth.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `bankauth_logins_total{result="success"} 1`) {
		t.Fatalf("unexpected body:\n%s", rec.Body.String())
	}
}

func BenchmarkRender(b *testing.B) {
	m := bankAuth.NewMetrics(bankAuth.MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	for i := 0; i < 100; i++ {
		m.Inc(bankAuth.MetricLoginSuccess)
		m.IncFor(bankAuth.MetricOTPRequest, bankAuth.PurposeSignup)
		m.IncFor(bankAuth.MetricOTPVerifyFailure, bankAuth.PurposeReset)
	}
	exp := New(fakeSource{snapshot: m.Snapshot()})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
