// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordQuizStarted(quizMode string)
	RecordAnswer(correct bool)
	RecordAuthSuccess()
	RecordAuthFailure(reason string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	quizStarted     *prometheus.CounterVec
	answers         *prometheus.CounterVec
	authSuccess     prometheus.Counter
	authFail        *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		quizStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tangobook_quiz_started_total",
			Help: "クイズモード別のセッション開始数",
		}, []string{"quiz_mode"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tangobook_answers_total",
			Help: "正誤別の回答数",
		}, []string{"result"}),
		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tangobook_auth_success_total",
			Help: "認証成功の合計数",
		}),
		authFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tangobook_auth_fail_total",
			Help: "理由別の認証失敗数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tangobook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tangobook_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tangobook_sessions_cleaned_total",
			Help: "クリーンアップで削除された期限切れセッション数",
		}),
	}

	reg.MustRegister(
		c.quizStarted,
		c.answers,
		c.authSuccess,
		c.authFail,
		c.httpStatus,
		c.requestLatency,
		c.sessionsCleaned,
	)

	return c
}

// RecordQuizStarted はクイズセッションの開始を記録する。
func (c *Collector) RecordQuizStarted(quizMode string) {
	c.quizStarted.WithLabelValues(quizMode).Inc()
}

// RecordAnswer は回答の正誤を記録する。
func (c *Collector) RecordAnswer(correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	c.answers.WithLabelValues(result).Inc()
}

// RecordAuthSuccess は認証成功を記録する。
func (c *Collector) RecordAuthSuccess() {
	c.authSuccess.Inc()
}

// RecordAuthFailure は認証失敗を理由付きで記録する。
func (c *Collector) RecordAuthFailure(reason string) {
	c.authFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
