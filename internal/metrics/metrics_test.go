package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
	metric:
		for _, m := range mf.GetMetric() {
			for k, v := range labels {
				matched := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == k && lp.GetValue() == v {
						matched = true
						break
					}
				}
				if !matched {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

// TestRecordQuizStarted はクイズ開始カウンタを検証する。
func TestRecordQuizStarted(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordQuizStarted("normal")
	c.RecordQuizStarted("normal")
	c.RecordQuizStarted("test")

	if got := counterValue(t, reg, "tangobook_quiz_started_total", map[string]string{"quiz_mode": "normal"}); got != 2 {
		t.Errorf("quiz_started_total{normal} = %v, want 2", got)
	}
	if got := counterValue(t, reg, "tangobook_quiz_started_total", map[string]string{"quiz_mode": "test"}); got != 1 {
		t.Errorf("quiz_started_total{test} = %v, want 1", got)
	}
}

// TestRecordAnswer は正誤別の回答カウンタを検証する。
func TestRecordAnswer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAnswer(true)
	c.RecordAnswer(false)
	c.RecordAnswer(false)

	if got := counterValue(t, reg, "tangobook_answers_total", map[string]string{"result": "correct"}); got != 1 {
		t.Errorf("answers_total{correct} = %v, want 1", got)
	}
	if got := counterValue(t, reg, "tangobook_answers_total", map[string]string{"result": "incorrect"}); got != 2 {
		t.Errorf("answers_total{incorrect} = %v, want 2", got)
	}
}

// TestRecordAuth は認証カウンタを検証する。
func TestRecordAuth(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthSuccess()
	c.RecordAuthFailure("token_expired")

	if got := counterValue(t, reg, "tangobook_auth_success_total", nil); got != 1 {
		t.Errorf("auth_success_total = %v, want 1", got)
	}
	if got := counterValue(t, reg, "tangobook_auth_fail_total", map[string]string{"reason": "token_expired"}); got != 1 {
		t.Errorf("auth_fail_total{token_expired} = %v, want 1", got)
	}
}

// TestRecordHTTPStatus はステータスコード別カウンタを検証する。
func TestRecordHTTPStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if got := counterValue(t, reg, "tangobook_http_status_total", map[string]string{"status_code": "200"}); got != 2 {
		t.Errorf("http_status_total{200} = %v, want 2", got)
	}
}

// TestRecordSessionsCleaned はセッション削除カウンタを検証する。
func TestRecordSessionsCleaned(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSessionsCleaned(3)
	c.RecordSessionsCleaned(2)

	if got := counterValue(t, reg, "tangobook_sessions_cleaned_total", nil); got != 5 {
		t.Errorf("sessions_cleaned_total = %v, want 5", got)
	}
}

// TestRecordRequestLatency はレイテンシヒストグラムへの記録を検証する。
func TestRecordRequestLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRequestLatency(50 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == "tangobook_request_latency_seconds" {
			if count := mf.GetMetric()[0].GetHistogram().GetSampleCount(); count != 1 {
				t.Errorf("sample count = %d, want 1", count)
			}
			return
		}
	}
	t.Error("tangobook_request_latency_seconds metric not found")
}
