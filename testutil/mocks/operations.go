// MockOperations 的模型操作测试模拟实现。
//
// 支持固定指标、权重注入与错误注入场景。
package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/types"
)

// --- MockOperations 结构 ---

// MockOperations 是 model.Operations 的模拟实现
type MockOperations struct {
	mu sync.Mutex

	// 响应配置
	trainMetrics    map[string]float64
	evaluateMetrics map[string]float64
	weights         map[string]types.TensorData
	trainErr        error
	evaluateErr     error
	getWeightsErr   error
	setWeightsErr   error

	// 自定义函数
	trainFunc      func(ctx context.Context) (map[string]float64, error)
	evaluateFunc   func(ctx context.Context) (map[string]float64, error)
	getWeightsFunc func(ctx context.Context) (map[string]types.TensorData, error)
	setWeightsFunc func(ctx context.Context, tensors []types.TensorData) error

	// 调用记录
	trainCalls      int
	evaluateCalls   int
	getWeightsCalls int
	setWeightsCalls int
	applied         [][]types.TensorData

	// 行为控制
	delay     time.Duration // 每次操作前模拟的计算耗时
	failAfter int           // 在第 N 次调用后失败（按所有操作合计）
	callCount int
}

var _ model.Operations = (*MockOperations)(nil)

// --- 构造函数和 Builder 方法 ---

// NewMockOperations 创建新的 MockOperations
func NewMockOperations() *MockOperations {
	return &MockOperations{
		trainMetrics:    map[string]float64{"loss": 0.5, "epoch": 1},
		evaluateMetrics: map[string]float64{"loss": 0.4},
		weights:         map[string]types.TensorData{},
	}
}

// WithTrainMetrics 设置训练指令返回的指标
func (m *MockOperations) WithTrainMetrics(metrics map[string]float64) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainMetrics = metrics
	return m
}

// WithEvaluateMetrics 设置评估指令返回的指标
func (m *MockOperations) WithEvaluateMetrics(metrics map[string]float64) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluateMetrics = metrics
	return m
}

// WithWeights 设置权重上传指令返回的命名张量
func (m *MockOperations) WithWeights(weights map[string]types.TensorData) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.weights = weights
	return m
}

// WithError 设置所有操作返回同一错误
func (m *MockOperations) WithError(err error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainErr = err
	m.evaluateErr = err
	m.getWeightsErr = err
	m.setWeightsErr = err
	return m
}

// WithTrainError 设置训练操作返回错误
func (m *MockOperations) WithTrainError(err error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainErr = err
	return m
}

// WithEvaluateError 设置评估操作返回错误
func (m *MockOperations) WithEvaluateError(err error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluateErr = err
	return m
}

// WithGetWeightsError 设置权重导出操作返回错误
func (m *MockOperations) WithGetWeightsError(err error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getWeightsErr = err
	return m
}

// WithSetWeightsError 设置权重应用操作返回错误
func (m *MockOperations) WithSetWeightsError(err error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setWeightsErr = err
	return m
}

// WithDelay 设置每次操作前模拟的计算耗时
func (m *MockOperations) WithDelay(d time.Duration) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
	return m
}

// WithFailAfter 设置在第 N 次调用后失败，按所有操作合计
func (m *MockOperations) WithFailAfter(n int) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	return m
}

// WithTrainFunc 设置自定义训练函数
func (m *MockOperations) WithTrainFunc(fn func(ctx context.Context) (map[string]float64, error)) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainFunc = fn
	return m
}

// WithEvaluateFunc 设置自定义评估函数
func (m *MockOperations) WithEvaluateFunc(fn func(ctx context.Context) (map[string]float64, error)) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluateFunc = fn
	return m
}

// WithGetWeightsFunc 设置自定义权重导出函数
func (m *MockOperations) WithGetWeightsFunc(fn func(ctx context.Context) (map[string]types.TensorData, error)) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getWeightsFunc = fn
	return m
}

// WithSetWeightsFunc 设置自定义权重应用函数
func (m *MockOperations) WithSetWeightsFunc(fn func(ctx context.Context, tensors []types.TensorData) error) *MockOperations {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setWeightsFunc = fn
	return m
}

// --- Operations 接口实现 ---

// Train 执行一次模拟训练
func (m *MockOperations) Train(ctx context.Context) (map[string]float64, error) {
	if err := m.simulateWork(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.trainCalls++

	if err := m.checkFailure(m.trainErr); err != nil {
		return nil, err
	}
	if m.trainFunc != nil {
		return m.trainFunc(ctx)
	}
	return copyMetrics(m.trainMetrics), nil
}

// Evaluate 执行一次模拟评估
func (m *MockOperations) Evaluate(ctx context.Context) (map[string]float64, error) {
	if err := m.simulateWork(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.evaluateCalls++

	if err := m.checkFailure(m.evaluateErr); err != nil {
		return nil, err
	}
	if m.evaluateFunc != nil {
		return m.evaluateFunc(ctx)
	}
	return copyMetrics(m.evaluateMetrics), nil
}

// GetWeights 导出预设的命名张量
func (m *MockOperations) GetWeights(ctx context.Context) (map[string]types.TensorData, error) {
	if err := m.simulateWork(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.getWeightsCalls++

	if err := m.checkFailure(m.getWeightsErr); err != nil {
		return nil, err
	}
	if m.getWeightsFunc != nil {
		return m.getWeightsFunc(ctx)
	}

	weights := make(map[string]types.TensorData, len(m.weights))
	for name, td := range m.weights {
		weights[name] = td
	}
	return weights, nil
}

// SetWeights 记录收到的张量
func (m *MockOperations) SetWeights(ctx context.Context, tensors []types.TensorData) error {
	if err := m.simulateWork(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.setWeightsCalls++

	if err := m.checkFailure(m.setWeightsErr); err != nil {
		return err
	}
	if m.setWeightsFunc != nil {
		return m.setWeightsFunc(ctx, tensors)
	}

	m.applied = append(m.applied, append([]types.TensorData{}, tensors...))
	return nil
}

// simulateWork 在配置了延迟时模拟计算耗时，期间响应取消
func (m *MockOperations) simulateWork(ctx context.Context) error {
	m.mu.Lock()
	d := m.delay
	m.mu.Unlock()

	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkFailure 合并 failAfter 计数与预设错误，调用方必须持锁
func (m *MockOperations) checkFailure(preset error) error {
	if m.failAfter > 0 && m.callCount > m.failAfter {
		return errors.New("mock operations: configured to fail after N calls")
	}
	return preset
}

func copyMetrics(metrics map[string]float64) map[string]float64 {
	copied := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		copied[k] = v
	}
	return copied
}

// --- 查询方法 ---

// TrainCalls 返回训练操作的调用次数
func (m *MockOperations) TrainCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trainCalls
}

// EvaluateCalls 返回评估操作的调用次数
func (m *MockOperations) EvaluateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluateCalls
}

// GetWeightsCalls 返回权重导出操作的调用次数
func (m *MockOperations) GetWeightsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getWeightsCalls
}

// SetWeightsCalls 返回权重应用操作的调用次数
func (m *MockOperations) SetWeightsCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setWeightsCalls
}

// CallCount 返回所有操作的合计调用次数
func (m *MockOperations) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Applied 返回每次 SetWeights 收到的张量序列
func (m *MockOperations) Applied() [][]types.TensorData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]types.TensorData{}, m.applied...)
}

// LastApplied 返回最近一次 SetWeights 收到的张量
func (m *MockOperations) LastApplied() ([]types.TensorData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.applied) == 0 {
		return nil, false
	}
	return m.applied[len(m.applied)-1], true
}

// Reset 重置调用记录与错误注入
func (m *MockOperations) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trainCalls = 0
	m.evaluateCalls = 0
	m.getWeightsCalls = 0
	m.setWeightsCalls = 0
	m.callCount = 0
	m.applied = nil
	m.trainErr = nil
	m.evaluateErr = nil
	m.getWeightsErr = nil
	m.setWeightsErr = nil
}

// --- 预设 Operations 工厂 ---

// NewErrorOperations 创建所有操作都失败的 Operations
func NewErrorOperations(err error) *MockOperations {
	return NewMockOperations().WithError(err)
}

// NewFlakyOperations 创建前 failAfter 次成功、之后失败的 Operations
func NewFlakyOperations(failAfter int) *MockOperations {
	return NewMockOperations().WithFailAfter(failAfter)
}

// NewSlowOperations 创建每次操作耗时 d 的 Operations
func NewSlowOperations(d time.Duration) *MockOperations {
	return NewMockOperations().WithDelay(d)
}
