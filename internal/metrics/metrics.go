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
// 取り込みワーカーとHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordIngestSuccess()
	RecordIngestFailure()
	RecordIngestLatency(duration time.Duration)
	RecordQuestionsInserted(count int)
	RecordQuestionsSkipped(count int)
	RecordUpstreamStatus(statusCode int)
	RecordHTTPRequest(method string, statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	ingestSuccess     prometheus.Counter
	ingestFail        prometheus.Counter
	ingestLatency     prometheus.Histogram
	questionsInserted prometheus.Counter
	questionsSkipped  prometheus.Counter
	upstreamStatus    *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		ingestSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackmirror_ingest_success_total",
			Help: "取り込みバッチ成功の合計数",
		}),
		ingestFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackmirror_ingest_fail_total",
			Help: "取り込みバッチ失敗の合計数",
		}),
		ingestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "stackmirror_ingest_latency_seconds",
			Help:    "取り込みバッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		questionsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackmirror_questions_inserted_total",
			Help: "新規挿入された質問の合計数",
		}),
		questionsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stackmirror_questions_skipped_total",
			Help: "question_id重複でスキップされた質問の合計数",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackmirror_upstream_status_total",
			Help: "上流質問APIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stackmirror_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
	}

	reg.MustRegister(
		c.ingestSuccess,
		c.ingestFail,
		c.ingestLatency,
		c.questionsInserted,
		c.questionsSkipped,
		c.upstreamStatus,
		c.httpRequests,
	)

	return c
}

// RecordIngestSuccess は取り込みバッチ成功を記録する。
func (c *Collector) RecordIngestSuccess() {
	c.ingestSuccess.Inc()
}

// RecordIngestFailure は取り込みバッチ失敗を記録する。
func (c *Collector) RecordIngestFailure() {
	c.ingestFail.Inc()
}

// RecordIngestLatency は取り込みバッチのレイテンシを記録する。
func (c *Collector) RecordIngestLatency(duration time.Duration) {
	c.ingestLatency.Observe(duration.Seconds())
}

// RecordQuestionsInserted は新規挿入された質問数を記録する。
func (c *Collector) RecordQuestionsInserted(count int) {
	c.questionsInserted.Add(float64(count))
}

// RecordQuestionsSkipped はスキップされた質問数を記録する。
func (c *Collector) RecordQuestionsSkipped(count int) {
	c.questionsSkipped.Add(float64(count))
}

// RecordUpstreamStatus は上流質問APIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPRequest はHTTPリクエストをメソッド・ステータスコード別に記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
