package metrics

import (
	"time"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 🎧 指标监听器
// =============================================================================

// InstrumentedListener 把会话回调桥接到指标收集器，随后原样转发给内层监听器。
// 回调在会话任务内同步执行，记录动作必须保持轻量。
type InstrumentedListener struct {
	next      client.Listener
	collector *Collector
}

// InstrumentListener 用指标记录包装监听器，next 为 nil 时仅做记录。
func InstrumentListener(next client.Listener, collector *Collector) *InstrumentedListener {
	if next == nil {
		next = client.BaseListener{}
	}
	return &InstrumentedListener{next: next, collector: collector}
}

var _ client.Listener = (*InstrumentedListener)(nil)

// OnStateChanged 记录状态转移并转发
func (l *InstrumentedListener) OnStateChanged(old, new types.ConnectionState) {
	l.collector.RecordStateTransition(old, new)
	l.next.OnStateChanged(old, new)
}

// OnConnectionAttempt 记录连接尝试并转发
func (l *InstrumentedListener) OnConnectionAttempt(attempt, maxAttempts int) {
	l.collector.RecordConnectionAttempt()
	l.next.OnConnectionAttempt(attempt, maxAttempts)
}

// OnConnected 仅转发，连接建立已由状态转移覆盖
func (l *InstrumentedListener) OnConnected() {
	l.next.OnConnected()
}

// OnDisconnected 记录会话终止并转发
func (l *InstrumentedListener) OnDisconnected(graceful bool, cause error) {
	l.collector.RecordSessionEnd(graceful)
	l.next.OnDisconnected(graceful, cause)
}

// OnTrainStarted 仅转发，操作在完成时计数
func (l *InstrumentedListener) OnTrainStarted() {
	l.next.OnTrainStarted()
}

// OnTrainCompleted 记录训练操作并转发
func (l *InstrumentedListener) OnTrainCompleted(metrics map[string]float64, duration time.Duration) {
	l.collector.RecordOperation("train", duration)
	l.next.OnTrainCompleted(metrics, duration)
}

// OnEvaluateStarted 仅转发，操作在完成时计数
func (l *InstrumentedListener) OnEvaluateStarted() {
	l.next.OnEvaluateStarted()
}

// OnEvaluateCompleted 记录评估操作并转发
func (l *InstrumentedListener) OnEvaluateCompleted(metrics map[string]float64, duration time.Duration) {
	l.collector.RecordOperation("evaluate", duration)
	l.next.OnEvaluateCompleted(metrics, duration)
}

// OnWeightsSent 记录上行张量并转发
func (l *InstrumentedListener) OnWeightsSent(count int) {
	l.collector.RecordWeightsTransfer(DirectionSent, count)
	l.next.OnWeightsSent(count)
}

// OnWeightsReceived 记录下行张量并转发
func (l *InstrumentedListener) OnWeightsReceived(count int) {
	l.collector.RecordWeightsTransfer(DirectionReceived, count)
	l.next.OnWeightsReceived(count)
}

// OnError 记录错误并转发
func (l *InstrumentedListener) OnError(err error) {
	l.collector.RecordError(err)
	l.next.OnError(err)
}

// OnStatsUpdated 同步统计快照并转发
func (l *InstrumentedListener) OnStatsUpdated(stats types.SessionStats) {
	l.collector.RecordSessionStats(stats)
	l.next.OnStatsUpdated(stats)
}
