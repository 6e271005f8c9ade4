// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供通用的测试辅助函数和断言
//
// 使用方法:
//
//	testutil.AssertTensorsEqual(t, expected, actual)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 5*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回带超时的测试上下文
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertTensorsEqual 断言两组命名张量相等
func AssertTensorsEqual(t *testing.T, expected, actual map[string]types.TensorData) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("tensor count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}

	for name, want := range expected {
		got, ok := actual[name]
		if !ok {
			t.Errorf("tensor %q missing from actual set", name)
			continue
		}
		if !reflect.DeepEqual(want.Shape, got.Shape) {
			t.Errorf("tensor %q shape mismatch: expected %v, got %v", name, want.Shape, got.Shape)
		}
		if string(want.Data) != string(got.Data) {
			t.Errorf("tensor %q data mismatch: expected %d bytes, got %d bytes", name, len(want.Data), len(got.Data))
		}
	}
}

// AssertWireTensorsEqual 断言两个线上张量切片相等，包括顺序
func AssertWireTensorsEqual(t *testing.T, expected, actual []protocol.WireTensor) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("wire tensor count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}

	for i := range expected {
		if expected[i].Name != actual[i].Name {
			t.Errorf("wire tensor[%d] name mismatch: expected %q, got %q", i, expected[i].Name, actual[i].Name)
		}
		if expected[i].Dtype != actual[i].Dtype {
			t.Errorf("wire tensor[%d] dtype mismatch: expected %q, got %q", i, expected[i].Dtype, actual[i].Dtype)
		}
		if !reflect.DeepEqual(expected[i].Shape, actual[i].Shape) {
			t.Errorf("wire tensor[%d] shape mismatch: expected %v, got %v", i, expected[i].Shape, actual[i].Shape)
		}
		if string(expected[i].Data) != string(actual[i].Data) {
			t.Errorf("wire tensor[%d] data mismatch", i)
		}
	}
}

// AssertMetricsEqual 断言两组训练/评估指标相等
func AssertMetricsEqual(t *testing.T, expected, actual map[string]float64) {
	t.Helper()

	if len(expected) != len(actual) {
		t.Errorf("metric count mismatch: expected %d, got %d", len(expected), len(actual))
		return
	}

	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			t.Errorf("metric %q missing from actual set", key)
			continue
		}
		if want != got {
			t.Errorf("metric %q mismatch: expected %v, got %v", key, want, got)
		}
	}
}

// AssertJSONEqual 断言两个值的 JSON 表示相等
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}

	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}

	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual: %s", expectedJSON, actualJSON)
	}
}

// AssertEventuallyTrue 断言条件最终为真
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("condition did not become true within %v", timeout)
}

// AssertEventuallyEqual 断言值最终相等
func AssertEventuallyEqual(t *testing.T, expected any, getter func() any, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	var lastValue any

	for time.Now().Before(deadline) {
		lastValue = getter()
		if reflect.DeepEqual(expected, lastValue) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("value did not become %v within %v, last value: %v", expected, timeout, lastValue)
}

// AssertNoError 断言没有错误
func AssertNoError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Errorf("%v: unexpected error: %v", msgAndArgs[0], err)
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}
}

// AssertError 断言有错误
func AssertError(t *testing.T, err error, msgAndArgs ...any) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Errorf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Error("expected error but got nil")
		}
	}
}

// AssertContains 断言字符串包含子串
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

// AssertNotContains 断言字符串不包含子串
func AssertNotContains(t *testing.T, s, substr string) {
	t.Helper()
	if contains(s, substr) {
		t.Errorf("expected %q to not contain %q", s, substr)
	}
}

func contains(s, substr string) bool {
	return len(substr) == 0 || (len(s) >= len(substr) && searchSubstring(s, substr))
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

// =============================================================================
// ⏱️ 时间辅助
// =============================================================================

// WaitFor 等待条件满足或超时
func WaitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForChannel 等待通道接收或超时
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

// =============================================================================
// 🔧 测试数据辅助
// =============================================================================

// MustJSON 将值转换为 JSON 字符串，失败时 panic
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// MustParseJSON 解析 JSON 字符串，失败时 panic
func MustParseJSON[T any](s string) T {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		panic(err)
	}
	return v
}

// Float32Tensor 构造一维 float32 张量
func Float32Tensor(vals ...float32) types.TensorData {
	return types.TensorData{
		Data:  model.Float32sToBytes(vals),
		Shape: []int64{int64(len(vals))},
	}
}

// TensorValues 解码张量数据为 float32 切片，失败时终止测试
func TensorValues(t *testing.T, td types.TensorData) []float32 {
	t.Helper()
	vals, err := model.Float32sFromBytes(td.Data)
	if err != nil {
		t.Fatalf("failed to decode tensor data: %v", err)
	}
	return vals
}

// CopyTensors 深拷贝命名张量集合
func CopyTensors(tensors map[string]types.TensorData) map[string]types.TensorData {
	if tensors == nil {
		return nil
	}
	copied := make(map[string]types.TensorData, len(tensors))
	for name, td := range tensors {
		dataCopy := make([]byte, len(td.Data))
		copy(dataCopy, td.Data)
		shapeCopy := make([]int64, len(td.Shape))
		copy(shapeCopy, td.Shape)
		copied[name] = types.TensorData{Data: dataCopy, Shape: shapeCopy}
	}
	return copied
}

// =============================================================================
// 📊 基准测试辅助
// =============================================================================

// BenchmarkHelper 基准测试辅助结构
type BenchmarkHelper struct {
	b *testing.B
}

// NewBenchmarkHelper 创建基准测试辅助
func NewBenchmarkHelper(b *testing.B) *BenchmarkHelper {
	return &BenchmarkHelper{b: b}
}

// ResetTimer 重置计时器
func (h *BenchmarkHelper) ResetTimer() {
	h.b.ResetTimer()
}

// StopTimer 停止计时器
func (h *BenchmarkHelper) StopTimer() {
	h.b.StopTimer()
}

// StartTimer 启动计时器
func (h *BenchmarkHelper) StartTimer() {
	h.b.StartTimer()
}

// ReportAllocs 报告内存分配
func (h *BenchmarkHelper) ReportAllocs() {
	h.b.ReportAllocs()
}

// RunParallel 并行运行基准测试
func (h *BenchmarkHelper) RunParallel(body func()) {
	h.b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			body()
		}
	})
}
