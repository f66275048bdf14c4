// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はAPIリクエストのメトリクスを収集するPrometheus実装。
// apiclient.MetricsRecorderを満たす。
type Collector struct {
	requests       *prometheus.CounterVec
	requestLatency prometheus.Histogram
	networkFail    *prometheus.CounterVec
	sessionEvents  *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seoconsole_api_requests_total",
			Help: "HTTPメソッド・ステータスコード別のAPIリクエスト数",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "seoconsole_api_request_latency_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		networkFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seoconsole_api_network_failures_total",
			Help: "HTTPメソッド別のトランスポート障害数",
		}, []string{"method"}),
		sessionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "seoconsole_session_events_total",
			Help: "イベント種別ごとのセッション遷移数（login/logout/invalidated）",
		}, []string{"event"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.networkFail,
		c.sessionEvents,
	)

	return c
}

// RecordRequest はAPIリクエストの完了を記録する。
func (c *Collector) RecordRequest(method string, status int) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// RecordRequestLatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(d time.Duration) {
	c.requestLatency.Observe(d.Seconds())
}

// RecordNetworkFailure はトランスポート障害を記録する。
func (c *Collector) RecordNetworkFailure(method string) {
	c.networkFail.WithLabelValues(method).Inc()
}

// RecordSessionEvent はセッション遷移イベントを記録する。
func (c *Collector) RecordSessionEvent(event string) {
	c.sessionEvents.WithLabelValues(event).Inc()
}

// Handler は/metricsエンドポイント用のHTTPハンドラを返す。
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
