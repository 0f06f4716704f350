package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 文本生成服务调用延迟（毫秒）
	GenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_generation_latency_ms",
			Help:    "Generation service call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms 到约 100s
		},
		[]string{"purpose", "status"}, // purpose: classify 或 draft
	)

	// 熔断器状态：0 closed, 1 open, 2 half_open
	BreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailtriage_generation_breaker_state",
			Help: "Circuit breaker state of the generation service client",
		},
	)

	// 邮件处理计数
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_messages_processed_total",
			Help: "Total number of messages processed",
		},
		[]string{"status"}, // status: success 或 failed
	)

	// 分类结果计数
	Classifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_classifications_total",
			Help: "Classification results by urgency",
		},
		[]string{"urgency", "fallback"},
	)

	// 回复发送计数
	RepliesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_replies_total",
			Help: "Reply dispatch attempts by outcome",
		},
		[]string{"status"}, // status: sent、failed 或 skipped
	)

	// SMTP 发送延迟（秒）
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_send_duration_seconds",
			Help:    "Outbound transport send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms 到约 25s
		},
		[]string{"status"},
	)
)

// RecordGenerationLatency 记录文本生成服务调用延迟
func RecordGenerationLatency(purpose, status string, duration time.Duration) {
	GenerationLatency.WithLabelValues(purpose, status).Observe(float64(duration.Milliseconds()))
}

// SetBreakerState 记录熔断器状态
func SetBreakerState(state int) {
	BreakerState.Set(float64(state))
}

// IncrementMessagesProcessed 增加邮件处理计数
func IncrementMessagesProcessed(status string) {
	MessagesProcessed.WithLabelValues(status).Inc()
}

// IncrementClassification 增加分类结果计数
func IncrementClassification(urgency string, fallback bool) {
	label := "false"
	if fallback {
		label = "true"
	}
	Classifications.WithLabelValues(urgency, label).Inc()
}

// IncrementReplies 增加回复计数
func IncrementReplies(status string) {
	RepliesSent.WithLabelValues(status).Inc()
}

// RecordSendDuration 记录 SMTP 发送耗时
func RecordSendDuration(status string, duration time.Duration) {
	SendDuration.WithLabelValues(status).Observe(duration.Seconds())
}
