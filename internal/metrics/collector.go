// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// 权重张量流向标签
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Collector 指标收集器
type Collector struct {
	// 连接指标
	stateTransitions   *prometheus.CounterVec
	connectionState    prometheus.Gauge
	connectionAttempts prometheus.Counter
	sessionsEnded      *prometheus.CounterVec

	// 操作指标
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	// 权重与消息指标
	weightTensors   *prometheus.CounterVec
	sessionMessages *prometheus.GaugeVec
	healthChecks    prometheus.Gauge

	// 错误指标
	errorsTotal *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 连接指标
	c.stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Total number of connection state transitions",
		},
		[]string{"from", "to"},
	)

	c.connectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Current connection state (0 Disconnected, 1 Connecting, 2 Connected, 3 Running, 4 Stopping)",
		},
	)

	c.connectionAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_attempts_total",
			Help:      "Total number of coordinator connection attempts",
		},
	)

	c.sessionsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Total number of session terminations",
		},
		[]string{"outcome"}, // outcome: graceful, error
	)

	// 操作指标
	c.operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of model operations",
		},
		[]string{"operation", "status"},
	)

	c.operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Model operation duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"operation"},
	)

	// 权重与消息指标
	c.weightTensors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weight_tensors_total",
			Help:      "Total number of weight tensors exchanged with the coordinator",
		},
		[]string{"direction"},
	)

	c.sessionMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_messages",
			Help:      "Messages exchanged in the current session",
		},
		[]string{"direction"},
	)

	c.healthChecks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_health_checks",
			Help:      "Health pings answered in the current session",
		},
	)

	// 错误指标
	c.errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of reported session errors",
		},
		[]string{"code"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🔌 连接指标记录
// =============================================================================

// RecordStateTransition 记录连接状态转移
func (c *Collector) RecordStateTransition(from, to types.ConnectionState) {
	c.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	c.connectionState.Set(float64(to))
}

// RecordConnectionAttempt 记录一次连接尝试
func (c *Collector) RecordConnectionAttempt() {
	c.connectionAttempts.Inc()
}

// RecordSessionEnd 记录会话终止
func (c *Collector) RecordSessionEnd(graceful bool) {
	outcome := "error"
	if graceful {
		outcome = "graceful"
	}
	c.sessionsEnded.WithLabelValues(outcome).Inc()
}

// =============================================================================
// 🧮 操作指标记录
// =============================================================================

// RecordOperation 记录一次成功完成的模型操作
func (c *Collector) RecordOperation(operation string, duration time.Duration) {
	c.operationsTotal.WithLabelValues(operation, "ok").Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordWeightsTransfer 记录权重张量交换
func (c *Collector) RecordWeightsTransfer(direction string, count int) {
	c.weightTensors.WithLabelValues(direction).Add(float64(count))
}

// =============================================================================
// 📈 会话统计记录
// =============================================================================

// RecordSessionStats 把最新会话统计快照同步到 Gauge，
// 每次新会话统计归零，Gauge 一并回落
func (c *Collector) RecordSessionStats(stats types.SessionStats) {
	c.sessionMessages.WithLabelValues(DirectionSent).Set(float64(stats.MessagesSent))
	c.sessionMessages.WithLabelValues(DirectionReceived).Set(float64(stats.MessagesReceived))
	c.healthChecks.Set(float64(stats.HealthChecks))
}

// =============================================================================
// ⚠️ 错误指标记录
// =============================================================================

// RecordError 记录会话错误；操作错误同时计入对应操作的失败数
func (c *Collector) RecordError(err error) {
	c.errorsTotal.WithLabelValues(errorCode(err)).Inc()

	var terr *types.Error
	if errors.As(err, &terr) && terr.Operation != "" {
		c.operationsTotal.WithLabelValues(terr.Operation, "error").Inc()
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// errorCode 提取错误码标签，未分类错误归入 unknown
func errorCode(err error) string {
	if code := types.GetErrorCode(err); code != "" {
		return string(code)
	}
	return "unknown"
}
