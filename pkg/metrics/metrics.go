package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 导出运行耗时（秒）
	ExportRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "export_run_duration_seconds",
			Help:    "Export run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"trigger"},
	)

	// 导出运行计数
	ExportRunCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_run_count",
			Help: "Total number of export runs",
		},
		[]string{"trigger", "status"}, // status: success, failed
	)

	// 导出的表单与提交数
	ExportFormCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_form_count",
			Help: "Total number of per-form CSV files written",
		},
	)
	ExportSubmissionCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "export_submission_count",
			Help: "Total number of submissions written to CSV",
		},
	)

	// 邮件发送计数
	EmailDeliveryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_delivery_count",
			Help: "Total number of export emails handed to the mail transport",
		},
		[]string{"status"}, // status: success, failed, skipped
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"sql"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

// RecordExportRun 记录一次导出运行
func RecordExportRun(trigger, status string, duration time.Duration) {
	ExportRunDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	ExportRunCount.WithLabelValues(trigger, status).Inc()
}

// AddExported 累加导出的表单数与提交数
func AddExported(forms, submissions int) {
	ExportFormCount.Add(float64(forms))
	ExportSubmissionCount.Add(float64(submissions))
}

// IncrementEmailDelivery 增加邮件发送计数
func IncrementEmailDelivery(status string) {
	EmailDeliveryCount.WithLabelValues(status).Inc()
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录慢查询
func IncrementSlowQuery(sql string, duration time.Duration) {
	SlowQueryCount.WithLabelValues(sql).Inc()
	DBQueryDuration.WithLabelValues("slow", "unknown").Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
