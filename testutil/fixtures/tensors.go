// =============================================================================
// 📦 测试数据工厂 - 张量测试数据
// =============================================================================
// 提供预定义的张量与权重集合，用于测试
// =============================================================================
package fixtures

import (
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 🧮 张量工厂
// =============================================================================

// Float32Tensor 返回一维 float32 张量
func Float32Tensor(vals ...float32) types.TensorData {
	return types.TensorData{
		Data:  model.Float32sToBytes(vals),
		Shape: []int64{int64(len(vals))},
	}
}

// LargeTensor 返回指定元素数量的张量，用于基准与大帧测试
func LargeTensor(elements int) types.TensorData {
	vals := make([]float32, elements)
	for i := range vals {
		vals[i] = float32(i)
	}
	return Float32Tensor(vals...)
}

// InvalidTensor 返回校验必然失败的张量（含零维度）
func InvalidTensor() types.TensorData {
	return types.TensorData{
		Data:  []byte{1, 2, 3, 4},
		Shape: []int64{0},
	}
}

// =============================================================================
// ⚖️ 权重集合工厂
// =============================================================================

// SmallWeights 返回两张量的最小权重集合
func SmallWeights() map[string]types.TensorData {
	return map[string]types.TensorData{
		model.TensorBias:    Float32Tensor(0.5),
		model.TensorWeights: Float32Tensor(1, 2, 3, 4),
	}
}

// LinearWeights 返回参考线性模型形状的权重集合
func LinearWeights(inputDim int) map[string]types.TensorData {
	weights := make([]float32, inputDim)
	for i := range weights {
		weights[i] = float32(i+1) * 0.1
	}
	return map[string]types.TensorData{
		model.TensorBias:    Float32Tensor(0.5),
		model.TensorWeights: Float32Tensor(weights...),
	}
}

// WireWeights 返回 SmallWeights 的线上形式，按名称排序
func WireWeights() []protocol.WireTensor {
	return protocol.TensorsToWire(SmallWeights())
}
