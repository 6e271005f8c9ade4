// E2E 测试环境与通用辅助函数。
//
// 提供端到端测试的统一初始化与资源清理逻辑。
//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/testutil"
	"github.com/BaSui01/fedflow/testutil/fixtures"
	"github.com/BaSui01/fedflow/testutil/mocks"
)

// --- 测试环境 ---

// TestEnv E2E 测试环境
type TestEnv struct {
	Config      config.ClientConfig
	Logger      *zap.Logger
	Coordinator *mocks.MockCoordinator
	Ops         *mocks.MockOperations
	Recorder    *mocks.RecordingListener

	ctx    context.Context
	cancel context.CancelFunc
}

// --- 环境设置 ---

// NewTestEnv 创建新的测试环境
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	// 创建上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	// 创建 logger
	logger, _ := zap.NewDevelopment()

	// 创建 mock 组件；协调端延迟到首次 NewClient 时启动
	env := &TestEnv{
		Config:      fixtures.TestClientConfig(""),
		Logger:      logger,
		Coordinator: mocks.NewMockCoordinator(),
		Ops:         mocks.NewMockOperations().WithWeights(fixtures.SmallWeights()),
		Recorder:    mocks.NewRecordingListener(),
		ctx:         ctx,
		cancel:      cancel,
	}

	// 注册清理函数
	t.Cleanup(func() {
		env.Cleanup()
	})

	return env
}

// Context 返回测试上下文
func (e *TestEnv) Context() context.Context {
	return e.ctx
}

// Cleanup 清理测试环境
func (e *TestEnv) Cleanup() {
	e.cancel()
	e.Coordinator.Close()
	if e.Logger != nil {
		e.Logger.Sync()
	}
}

// Reset 重置所有 mock 状态
func (e *TestEnv) Reset() {
	e.Ops.Reset()
	e.Recorder.Reset()
}

// NewClient 用环境内的 mock 操作构建客户端
func (e *TestEnv) NewClient(t *testing.T) *client.Client {
	return e.NewClientWithOps(t, e.Ops)
}

// NewClientWithOps 用指定的模型操作构建客户端，协调端按需启动
func (e *TestEnv) NewClientWithOps(t *testing.T, ops model.Operations) *client.Client {
	t.Helper()

	e.Config.BaseURL = e.Coordinator.Start(t)
	cl, err := client.New(e.Config, ops,
		client.WithListener(e.Recorder),
		client.WithLogger(e.Logger),
	)
	if err != nil {
		t.Fatalf("build client: %v", err)
	}
	return cl
}

// StartSession 在后台启动会话
func (e *TestEnv) StartSession(cl *client.Client) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- cl.Run(e.ctx)
	}()
	return errCh
}

// StopSession 发起协同停止并返回会话结果
func (e *TestEnv) StopSession(t *testing.T, cl *client.Client, errCh <-chan error) error {
	t.Helper()

	cl.Stop()
	if !cl.AwaitStop(10 * time.Second) {
		t.Fatal("session did not stop in time")
	}
	return e.AwaitSession(t, errCh)
}

// AwaitSession 等待 Run 返回
func (e *TestEnv) AwaitSession(t *testing.T, errCh <-chan error) error {
	t.Helper()

	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
		return nil
	}
}

// --- 环境检查 ---

// SkipIfNoLiveCoordinator 未配置真实协调端时跳过测试
func SkipIfNoLiveCoordinator(t *testing.T) string {
	t.Helper()
	url := os.Getenv("FEDFLOW_E2E_COORDINATOR_URL")
	if url == "" {
		t.Skip("Skipping test: live coordinator not configured (set FEDFLOW_E2E_COORDINATOR_URL)")
	}
	return url
}

// SkipIfShort 如果是短测试模式则跳过
func SkipIfShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping long-running test in short mode")
	}
}

// --- 测试辅助 ---

// WaitForCondition 等待条件满足
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()
	if !testutil.WaitFor(condition, timeout) {
		t.Fatalf("Condition not met within %v: %s", timeout, msg)
	}
}

// AssertEventually 断言条件最终满足
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	testutil.AssertEventuallyTrue(t, condition, timeout)
}

// --- 指标收集 ---

// TestMetrics 测试指标收集器
type TestMetrics struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Iterations   int
	Errors       int
	SuccessRate  float64
	CustomValues map[string]any
}

// NewTestMetrics 创建新的指标收集器
func NewTestMetrics() *TestMetrics {
	return &TestMetrics{
		StartTime:    time.Now(),
		CustomValues: make(map[string]any),
	}
}

// Start 开始计时
func (m *TestMetrics) Start() {
	m.StartTime = time.Now()
}

// Stop 停止计时
func (m *TestMetrics) Stop() {
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
}

// RecordIteration 记录一次迭代
func (m *TestMetrics) RecordIteration(success bool) {
	m.Iterations++
	if !success {
		m.Errors++
	}
	m.SuccessRate = float64(m.Iterations-m.Errors) / float64(m.Iterations)
}

// Set 设置自定义值
func (m *TestMetrics) Set(key string, value any) {
	m.CustomValues[key] = value
}

// Report 报告指标
func (m *TestMetrics) Report(t *testing.T) {
	t.Helper()
	t.Logf("Test Metrics:")
	t.Logf("  Duration: %v", m.Duration)
	t.Logf("  Iterations: %d", m.Iterations)
	t.Logf("  Errors: %d", m.Errors)
	t.Logf("  Success Rate: %.2f%%", m.SuccessRate*100)
	for k, v := range m.CustomValues {
		t.Logf("  %s: %v", k, v)
	}
}
