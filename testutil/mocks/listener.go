// RecordingListener 的会话事件录制监听器。
//
// 线程安全地记录每个回调，供测试断言事件序列与载荷。
package mocks

import (
	"sync"
	"time"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/types"
)

// --- 事件记录类型 ---

// StateTransition 记录单次状态转移
type StateTransition struct {
	From types.ConnectionState
	To   types.ConnectionState
}

// ConnectionAttempt 记录单次连接尝试
type ConnectionAttempt struct {
	Attempt     int
	MaxAttempts int
}

// Disconnect 记录一次会话终止
type Disconnect struct {
	Graceful bool
	Cause    error
}

// OperationResult 记录一次训练或评估的完成
type OperationResult struct {
	Metrics  map[string]float64
	Duration time.Duration
}

// --- RecordingListener 结构 ---

// RecordingListener 是 client.Listener 的录制实现
type RecordingListener struct {
	mu sync.Mutex

	transitions []StateTransition
	attempts    []ConnectionAttempt
	connects    int
	disconnects []Disconnect

	trainStarted int
	trainResults []OperationResult
	evalStarted  int
	evalResults  []OperationResult

	weightsSent     []int
	weightsReceived []int

	errs      []error
	lastStats types.SessionStats
	statsSeen int
}

var _ client.Listener = (*RecordingListener)(nil)

// NewRecordingListener 创建新的 RecordingListener
func NewRecordingListener() *RecordingListener {
	return &RecordingListener{}
}

// --- Listener 接口实现 ---

// OnStateChanged 记录状态转移
func (r *RecordingListener) OnStateChanged(old, new types.ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, StateTransition{From: old, To: new})
}

// OnConnectionAttempt 记录连接尝试
func (r *RecordingListener) OnConnectionAttempt(attempt, maxAttempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, ConnectionAttempt{Attempt: attempt, MaxAttempts: maxAttempts})
}

// OnConnected 记录连接建立
func (r *RecordingListener) OnConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connects++
}

// OnDisconnected 记录会话终止
func (r *RecordingListener) OnDisconnected(graceful bool, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnects = append(r.disconnects, Disconnect{Graceful: graceful, Cause: cause})
}

// OnTrainStarted 记录训练开始
func (r *RecordingListener) OnTrainStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainStarted++
}

// OnTrainCompleted 记录训练完成
func (r *RecordingListener) OnTrainCompleted(metrics map[string]float64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trainResults = append(r.trainResults, OperationResult{Metrics: metrics, Duration: d})
}

// OnEvaluateStarted 记录评估开始
func (r *RecordingListener) OnEvaluateStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evalStarted++
}

// OnEvaluateCompleted 记录评估完成
func (r *RecordingListener) OnEvaluateCompleted(metrics map[string]float64, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evalResults = append(r.evalResults, OperationResult{Metrics: metrics, Duration: d})
}

// OnWeightsSent 记录一次权重上传
func (r *RecordingListener) OnWeightsSent(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weightsSent = append(r.weightsSent, count)
}

// OnWeightsReceived 记录一次权重应用
func (r *RecordingListener) OnWeightsReceived(count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weightsReceived = append(r.weightsReceived, count)
}

// OnError 记录一次故障上报
func (r *RecordingListener) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// OnStatsUpdated 记录最新的统计快照
func (r *RecordingListener) OnStatsUpdated(stats types.SessionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastStats = stats
	r.statsSeen++
}

// --- 查询方法 ---

// Transitions 返回全部状态转移记录
func (r *RecordingListener) Transitions() []StateTransition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StateTransition{}, r.transitions...)
}

// Attempts 返回全部连接尝试记录
func (r *RecordingListener) Attempts() []ConnectionAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConnectionAttempt{}, r.attempts...)
}

// ConnectCount 返回连接建立次数
func (r *RecordingListener) ConnectCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connects
}

// Disconnects 返回全部会话终止记录
func (r *RecordingListener) Disconnects() []Disconnect {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Disconnect{}, r.disconnects...)
}

// LastDisconnect 返回最近一次会话终止记录
func (r *RecordingListener) LastDisconnect() (Disconnect, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.disconnects) == 0 {
		return Disconnect{}, false
	}
	return r.disconnects[len(r.disconnects)-1], true
}

// TrainStartedCount 返回训练开始次数
func (r *RecordingListener) TrainStartedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trainStarted
}

// TrainResults 返回全部训练完成记录
func (r *RecordingListener) TrainResults() []OperationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OperationResult{}, r.trainResults...)
}

// EvaluateStartedCount 返回评估开始次数
func (r *RecordingListener) EvaluateStartedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evalStarted
}

// EvaluateResults 返回全部评估完成记录
func (r *RecordingListener) EvaluateResults() []OperationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OperationResult{}, r.evalResults...)
}

// WeightsSent 返回每次权重上传的张量个数
func (r *RecordingListener) WeightsSent() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int{}, r.weightsSent...)
}

// WeightsReceived 返回每次权重应用的张量个数
func (r *RecordingListener) WeightsReceived() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int{}, r.weightsReceived...)
}

// Errors 返回全部上报的故障
func (r *RecordingListener) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error{}, r.errs...)
}

// LastStats 返回最近一次统计快照
func (r *RecordingListener) LastStats() (types.SessionStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats, r.statsSeen > 0
}

// Reset 清空所有记录
func (r *RecordingListener) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = nil
	r.attempts = nil
	r.connects = 0
	r.disconnects = nil
	r.trainStarted = 0
	r.trainResults = nil
	r.evalStarted = 0
	r.evalResults = nil
	r.weightsSent = nil
	r.weightsReceived = nil
	r.errs = nil
	r.lastStats = types.SessionStats{}
	r.statsSeen = 0
}
