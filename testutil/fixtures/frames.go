// =============================================================================
// 📦 测试数据工厂 - 协议帧测试数据
// =============================================================================
// 提供预定义的协调端指令帧与整轮指令脚本，用于测试
// =============================================================================
package fixtures

import "github.com/BaSui01/fedflow/protocol"

// =============================================================================
// 📡 协调端指令工厂
// =============================================================================

// HealthPingInstruction 返回健康检查指令帧
func HealthPingInstruction() *protocol.ServerMessage {
	return &protocol.ServerMessage{HealthPing: &protocol.HealthPing{}}
}

// TrainInstruction 返回训练指令帧
func TrainInstruction() *protocol.ServerMessage {
	return &protocol.ServerMessage{TrainRequest: &protocol.TrainRequest{}}
}

// EvaluateInstruction 返回评估指令帧
func EvaluateInstruction() *protocol.ServerMessage {
	return &protocol.ServerMessage{EvaluateRequest: &protocol.EvaluateRequest{}}
}

// GetWeightsInstruction 返回权重上传指令帧
func GetWeightsInstruction() *protocol.ServerMessage {
	return &protocol.ServerMessage{GetWeightsRequest: &protocol.GetWeightsRequest{}}
}

// SendWeightsInstruction 返回携带指定张量的权重下发指令帧
func SendWeightsInstruction(tensors ...protocol.WireTensor) *protocol.ServerMessage {
	return &protocol.ServerMessage{
		SendWeightsRequest: &protocol.SendWeightsRequest{Tensors: tensors},
	}
}

// ErrorInstruction 返回携带指定原因的服务端错误帧
func ErrorInstruction(reason string) *protocol.ServerMessage {
	return &protocol.ServerMessage{Error: &protocol.ErrorPayload{Reason: reason}}
}

// =============================================================================
// 🔁 指令脚本工厂
// =============================================================================

// FullRoundScript 返回一轮完整联邦训练的指令序列：
// 健康检查、下发权重、本地训练、上传权重、评估
func FullRoundScript() []*protocol.ServerMessage {
	return []*protocol.ServerMessage{
		HealthPingInstruction(),
		SendWeightsInstruction(WireWeights()...),
		TrainInstruction(),
		GetWeightsInstruction(),
		EvaluateInstruction(),
	}
}

// TrainingScript 返回重复 rounds 轮「训练 + 上传权重」的指令序列
func TrainingScript(rounds int) []*protocol.ServerMessage {
	script := make([]*protocol.ServerMessage, 0, 2*rounds)
	for i := 0; i < rounds; i++ {
		script = append(script, TrainInstruction(), GetWeightsInstruction())
	}
	return script
}
