package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定カウンタの値を取り出す。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			if len(mf.GetMetric()) != 1 {
				t.Fatalf("expected 1 metric for %s, got %d", name, len(mf.GetMetric()))
			}
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordLoginSuccess_IncrementsCounter はログイン成功カウンタが増加することを検証する。
func TestRecordLoginSuccess_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginSuccess()

	if val := counterValue(t, reg, "authgate_login_success_total"); val != 2 {
		t.Errorf("login_success_total = %v, want 2", val)
	}
}

// TestRecordLoginFailure_IncrementsCounterWithReason はログイン失敗カウンタが理由別に増加することを検証する。
func TestRecordLoginFailure_IncrementsCounterWithReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginFailure("invalid_credentials")
	c.RecordLoginFailure("invalid_credentials")
	c.RecordLoginFailure("account_locked")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "authgate_login_failure_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case "invalid_credentials":
					if val != 2 {
						t.Errorf("login_failure_total{reason=invalid_credentials} = %v, want 2", val)
					}
				case "account_locked":
					if val != 1 {
						t.Errorf("login_failure_total{reason=account_locked} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("authgate_login_failure_total metric not found")
	}
}

// TestRecordTokenIssued_IncrementsCounter はトークン発行カウンタが増加することを検証する。
func TestRecordTokenIssued_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordTokenIssued()
	c.RecordTokenIssued()
	c.RecordTokenIssued()

	if val := counterValue(t, reg, "authgate_access_tokens_issued_total"); val != 3 {
		t.Errorf("access_tokens_issued_total = %v, want 3", val)
	}
}

// TestRecordRefreshRotation_IncrementsCounter はローテーションカウンタが増加することを検証する。
func TestRecordRefreshRotation_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshRotation()

	if val := counterValue(t, reg, "authgate_refresh_rotations_total"); val != 1 {
		t.Errorf("refresh_rotations_total = %v, want 1", val)
	}
}

// TestRecordRefreshReplayRejected_IncrementsCounter は再利用拒否カウンタが増加することを検証する。
func TestRecordRefreshReplayRejected_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshReplayRejected()
	c.RecordRefreshReplayRejected()

	if val := counterValue(t, reg, "authgate_refresh_replay_rejected_total"); val != 2 {
		t.Errorf("refresh_replay_rejected_total = %v, want 2", val)
	}
}

// TestRecordHTTPRequest_IncrementsCounterWithClass はHTTPリクエストカウンタがクラス別に増加することを検証する。
func TestRecordHTTPRequest_IncrementsCounterWithClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("2xx")
	c.RecordHTTPRequest("2xx")
	c.RecordHTTPRequest("4xx")

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range metrics {
		if mf.GetName() != "authgate_http_requests_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			label := m.GetLabel()[0].GetValue()
			val := m.GetCounter().GetValue()
			switch label {
			case "2xx":
				if val != 2 {
					t.Errorf("http_requests_total{class=2xx} = %v, want 2", val)
				}
			case "4xx":
				if val != 1 {
					t.Errorf("http_requests_total{class=4xx} = %v, want 1", val)
				}
			default:
				t.Errorf("unexpected label value: %s", label)
			}
		}
		return
	}
	t.Error("authgate_http_requests_total metric not found")
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginSuccess()
	c.RecordLoginFailure("invalid_credentials")
	c.RecordTokenIssued()
	c.RecordRefreshRotation()
	c.RecordRefreshReplayRejected()
	c.RecordHTTPRequest("2xx")

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	expectedMetrics := []string{
		"authgate_login_success_total",
		"authgate_login_failure_total",
		"authgate_access_tokens_issued_total",
		"authgate_refresh_rotations_total",
		"authgate_refresh_replay_rejected_total",
		"authgate_http_requests_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordLoginSuccess()
	c2.RecordLoginSuccess()
	c2.RecordLoginSuccess()

	if val := counterValue(t, reg1, "authgate_login_success_total"); val != 1 {
		t.Errorf("reg1 login_success = %v, want 1", val)
	}
	if val := counterValue(t, reg2, "authgate_login_success_total"); val != 2 {
		t.Errorf("reg2 login_success = %v, want 2", val)
	}
}
