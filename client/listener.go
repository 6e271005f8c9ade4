package client

import (
	"time"

	"github.com/BaSui01/fedflow/types"
)

// Listener 接收会话引擎的事件回调。
// 所有回调都由会话任务同步调用，实现方不得无限期阻塞；
// 需要重活的场景应自行转交给其他 goroutine。
type Listener interface {
	// OnStateChanged 在每次提交的状态转移后触发，old ≠ new 恒成立
	OnStateChanged(old, new types.ConnectionState)

	// OnConnectionAttempt 在每次连接尝试前触发，attempt 从 1 开始计
	OnConnectionAttempt(attempt, maxAttempts int)

	// OnConnected 握手帧发出、进入 Connected 后触发
	OnConnected()

	// OnDisconnected 在 Run 终止时恰好触发一次：
	// (true, nil) 正常结束或协同停止；(true, cause) 被取消；(false, cause) 终态错误
	OnDisconnected(graceful bool, cause error)

	// OnTrainStarted / OnTrainCompleted 包围一次训练指令的执行
	OnTrainStarted()
	OnTrainCompleted(metrics map[string]float64, duration time.Duration)

	// OnEvaluateStarted / OnEvaluateCompleted 包围一次评估指令的执行
	OnEvaluateStarted()
	OnEvaluateCompleted(metrics map[string]float64, duration time.Duration)

	// OnWeightsSent 在权重上传应答入队后触发，count 为张量个数
	OnWeightsSent(count int)

	// OnWeightsReceived 在下发权重应用成功后触发，count 为张量个数
	OnWeightsReceived(count int)

	// OnError 对每个被上报的故障触发；瞬时可重试错误只在这里可见
	OnError(err error)

	// OnStatsUpdated 在每次统计快照发布后触发
	OnStatsUpdated(stats types.SessionStats)
}

// BaseListener 提供全部回调的空实现，嵌入后按需覆写。
type BaseListener struct{}

var _ Listener = BaseListener{}

func (BaseListener) OnStateChanged(old, new types.ConnectionState) {}

func (BaseListener) OnConnectionAttempt(attempt, maxAttempts int) {}

func (BaseListener) OnConnected() {}

func (BaseListener) OnDisconnected(graceful bool, cause error) {}

func (BaseListener) OnTrainStarted() {}

func (BaseListener) OnTrainCompleted(metrics map[string]float64, d time.Duration) {}

func (BaseListener) OnEvaluateStarted() {}

func (BaseListener) OnEvaluateCompleted(metrics map[string]float64, d time.Duration) {}

func (BaseListener) OnWeightsSent(count int) {}

func (BaseListener) OnWeightsReceived(count int) {}

func (BaseListener) OnError(err error) {}

func (BaseListener) OnStatsUpdated(stats types.SessionStats) {}
