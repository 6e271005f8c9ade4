// =============================================================================
// 🚀 FedFlow 性能基准测试
// =============================================================================
// 覆盖会话热路径的性能测试，包括：
// - 张量编解码（TensorsToWire / TensorsFromWire）
// - 协议帧 JSON 序列化与反序列化
// - 参考线性模型的训练、评估与权重交换
// - 会话统计快照与错误分类
//
// 运行方式:
//   go test -bench=. -benchmem ./tests/benchmark/...
//   go test -bench=BenchmarkTensors -benchmem ./tests/benchmark/...
// =============================================================================

package benchmark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/testutil/fixtures"
	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 📡 Wire Codec Benchmarks
// =============================================================================

// BenchmarkTensorsToWire_SmallSet 测试小权重集合编码性能
func BenchmarkTensorsToWire_SmallSet(b *testing.B) {
	weights := fixtures.SmallWeights()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = protocol.TensorsToWire(weights)
	}
}

// BenchmarkTensorsToWire_LargeTensor 测试大张量编码性能
func BenchmarkTensorsToWire_LargeTensor(b *testing.B) {
	weights := map[string]types.TensorData{
		"weights": fixtures.LargeTensor(65536),
		"bias":    fixtures.Float32Tensor(0.5),
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = protocol.TensorsToWire(weights)
	}
}

// BenchmarkTensorsFromWire_LargeTensor 测试大张量解码性能
func BenchmarkTensorsFromWire_LargeTensor(b *testing.B) {
	wire := protocol.TensorsToWire(map[string]types.TensorData{
		"weights": fixtures.LargeTensor(65536),
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = protocol.TensorsFromWire(wire)
	}
}

// BenchmarkServerFrame_DecodeWeightPush 测试权重下发帧反序列化性能
func BenchmarkServerFrame_DecodeWeightPush(b *testing.B) {
	wire := protocol.TensorsToWire(map[string]types.TensorData{
		"weights": fixtures.LargeTensor(4096),
		"bias":    fixtures.Float32Tensor(0.1),
	})
	raw, err := json.Marshal(&protocol.ServerMessage{
		SendWeightsRequest: &protocol.SendWeightsRequest{Tensors: wire},
	})
	if err != nil {
		b.Fatalf("marshal frame: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		var msg protocol.ServerMessage
		_ = json.Unmarshal(raw, &msg)
	}
}

// BenchmarkClientFrame_EncodeWeights 测试权重上报帧序列化性能
func BenchmarkClientFrame_EncodeWeights(b *testing.B) {
	frame := &protocol.ClientMessage{
		GetWeightsResponse: &protocol.GetWeightsResponse{
			Tensors: protocol.TensorsToWire(map[string]types.TensorData{
				"weights": fixtures.LargeTensor(4096),
				"bias":    fixtures.Float32Tensor(0.1),
			}),
		},
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = json.Marshal(frame)
	}
}

// BenchmarkFloat32Codec_Encode 测试 float32 切片编码性能
func BenchmarkFloat32Codec_Encode(b *testing.B) {
	vals := make([]float32, 4096)
	for i := range vals {
		vals[i] = float32(i) * 0.01
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = model.Float32sToBytes(vals)
	}
}

// BenchmarkFloat32Codec_Decode 测试 float32 字节解码性能
func BenchmarkFloat32Codec_Decode(b *testing.B) {
	vals := make([]float32, 4096)
	for i := range vals {
		vals[i] = float32(i) * 0.01
	}
	data := model.Float32sToBytes(vals)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = model.Float32sFromBytes(data)
	}
}

// =============================================================================
// 🧮 Reference Model Benchmarks
// =============================================================================

// BenchmarkLinearModel_Train 测试线性模型单轮训练性能
func BenchmarkLinearModel_Train(b *testing.B) {
	m := model.NewLinearModel(model.LinearConfig{InputDim: 32})
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = m.Train(ctx)
	}
}

// BenchmarkLinearModel_Evaluate 测试线性模型评估性能
func BenchmarkLinearModel_Evaluate(b *testing.B) {
	m := model.NewLinearModel(model.LinearConfig{InputDim: 32})
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = m.Evaluate(ctx)
	}
}

// BenchmarkLinearModel_WeightExchange 测试完整权重交换链路性能
func BenchmarkLinearModel_WeightExchange(b *testing.B) {
	m := model.NewLinearModel(model.LinearConfig{InputDim: 64})
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		weights, _ := m.GetWeights(ctx)
		wire := protocol.TensorsToWire(weights)
		tensors, _ := protocol.TensorsFromWire(wire)
		_ = m.SetWeights(ctx, tensors)
	}
}

// =============================================================================
// 📊 Stats & Error Benchmarks
// =============================================================================

// BenchmarkSessionStats_IncrementChain 测试统计快照更新链性能
func BenchmarkSessionStats_IncrementChain(b *testing.B) {
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		s := types.SessionStats{}.StartSession()
		s = s.IncrementMessagesReceived()
		s = s.IncrementTrainOps()
		s = s.IncrementMessagesSent()
		_ = s
	}
}

// BenchmarkError_Classification 测试包装错误链的分类性能
func BenchmarkError_Classification(b *testing.B) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("attempt 3: %w", types.NewConnectionError("websocket connect", true).WithCause(cause))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_ = types.IsRecoverable(err)
		_ = types.GetErrorCode(err)
	}
}
