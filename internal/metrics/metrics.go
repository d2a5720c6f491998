// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector は認証操作のPrometheusメトリクスを収集する。
// auth.MetricsRecorderインターフェースを実装する。
type Collector struct {
	loginSuccess   prometheus.Counter
	loginFailure   *prometheus.CounterVec
	tokensIssued   prometheus.Counter
	rotations      prometheus.Counter
	replayRejected prometheus.Counter
	httpRequests   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_login_failure_total",
			Help: "ログイン失敗の理由別合計数",
		}, []string{"reason"}),
		tokensIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_access_tokens_issued_total",
			Help: "発行されたアクセストークンの合計数",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_refresh_rotations_total",
			Help: "リフレッシュトークンのローテーション成功の合計数",
		}),
		replayRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_refresh_replay_rejected_total",
			Help: "失効済みリフレッシュトークンの再利用を拒否した合計数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_requests_total",
			Help: "HTTPリクエストのステータスクラス別合計数",
		}, []string{"class"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFailure,
		c.tokensIssued,
		c.rotations,
		c.replayRejected,
		c.httpRequests,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を理由別に記録する。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFailure.WithLabelValues(reason).Inc()
}

// RecordTokenIssued はアクセストークンの発行を記録する。
func (c *Collector) RecordTokenIssued() {
	c.tokensIssued.Inc()
}

// RecordRefreshRotation はリフレッシュトークンのローテーション成功を記録する。
func (c *Collector) RecordRefreshRotation() {
	c.rotations.Inc()
}

// RecordRefreshReplayRejected は失効済みトークンの再利用拒否を記録する。
func (c *Collector) RecordRefreshReplayRejected() {
	c.replayRejected.Inc()
}

// RecordHTTPRequest は処理済みHTTPリクエストをステータスクラス別に記録する。
func (c *Collector) RecordHTTPRequest(statusClass string) {
	c.httpRequests.WithLabelValues(statusClass).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
