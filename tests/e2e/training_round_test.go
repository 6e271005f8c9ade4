// 训练回合端到端测试。
//
// 覆盖完整训练回合的指令编排，以及权重在真实模型中的往返生效。
//go:build e2e

package e2e

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/testutil"
	"github.com/BaSui01/fedflow/testutil/fixtures"
	"github.com/BaSui01/fedflow/testutil/mocks"
	"github.com/BaSui01/fedflow/types"
)

// --- 训练回合测试 ---

// TestTrainingRound_FullRound 测试一个完整回合的指令编排与事件顺序
func TestTrainingRound_FullRound(t *testing.T) {
	env := NewTestEnv(t)
	env.Coordinator.
		WithScript(fixtures.FullRoundScript()...).
		WithKeepalive(20 * time.Millisecond)
	cl := env.NewClient(t)

	// 1. 跑完 健康检查 → 权重下发 → 训练 → 权重上报 → 评估
	errCh := env.StartSession(cl)
	require.True(t, env.Coordinator.WaitForReceived(6, 5*time.Second))
	require.NoError(t, env.StopSession(t, cl, errCh))

	// 2. 响应帧严格按指令顺序到达
	kinds := env.Coordinator.ReceivedKinds()
	require.GreaterOrEqual(t, len(kinds), 6)
	assert.Equal(t, []string{
		protocol.KindHandshake,
		protocol.KindHealthPong,
		protocol.KindSendWeights,
		protocol.KindTrain,
		protocol.KindGetWeights,
		protocol.KindEvaluate,
	}, kinds[:6])

	// 3. 状态机走完整条生命周期链
	assert.Equal(t, []mocks.StateTransition{
		{From: types.StateDisconnected, To: types.StateConnecting},
		{From: types.StateConnecting, To: types.StateConnected},
		{From: types.StateConnected, To: types.StateRunning},
		{From: types.StateRunning, To: types.StateStopping},
		{From: types.StateStopping, To: types.StateDisconnected},
	}, env.Recorder.Transitions())

	// 4. 每类操作恰好执行一次
	assert.Equal(t, 1, env.Ops.TrainCalls())
	assert.Equal(t, 1, env.Ops.EvaluateCalls())
	assert.Equal(t, 1, env.Ops.GetWeightsCalls())
	assert.Equal(t, 1, env.Ops.SetWeightsCalls())

	stats := cl.Stats()
	assert.Equal(t, int64(1), stats.TrainOps)
	assert.Equal(t, int64(1), stats.EvaluateOps)
	assert.Equal(t, int64(1), stats.WeightsSent)
	assert.Equal(t, int64(1), stats.WeightsReceived)
	assert.GreaterOrEqual(t, stats.HealthChecks, int64(1))
	assert.Equal(t, int64(0), stats.Errors)
}

// TestTrainingRound_WeightsReachRealModel 测试下发权重写入真实模型并原样读回
func TestTrainingRound_WeightsReachRealModel(t *testing.T) {
	env := NewTestEnv(t)

	pushed := fixtures.LinearWeights(4)
	wire := protocol.TensorsToWire(pushed)
	env.Coordinator.
		WithScript(
			fixtures.SendWeightsInstruction(wire...),
			fixtures.GetWeightsInstruction(),
		).
		WithKeepalive(20 * time.Millisecond)

	// 1. 用真实线性模型替代 mock 操作
	m := model.NewLinearModel(model.LinearConfig{InputDim: 4})
	cl := env.NewClientWithOps(t, m)

	errCh := env.StartSession(cl)
	require.True(t, env.Coordinator.WaitForReceived(3, 5*time.Second))
	require.NoError(t, env.StopSession(t, cl, errCh))

	// 2. 权重应用确认
	var applied *protocol.SendWeightsResponse
	var echoed []protocol.WireTensor
	for _, msg := range env.Coordinator.Received() {
		if msg.SendWeightsResponse != nil {
			applied = msg.SendWeightsResponse
		}
		if msg.GetWeightsResponse != nil {
			echoed = msg.GetWeightsResponse.Tensors
		}
	}
	require.NotNil(t, applied)
	assert.Equal(t, int64(2), applied.Applied)

	// 3. 模型读回的权重与下发值逐字节一致
	require.NotNil(t, echoed)
	testutil.AssertWireTensorsEqual(t, wire, echoed)
}

// TestTrainingRound_MultiRound 测试真实模型连续多轮训练
func TestTrainingRound_MultiRound(t *testing.T) {
	env := NewTestEnv(t)
	const rounds = 5
	env.Coordinator.
		WithScript(fixtures.TrainingScript(rounds)...).
		WithKeepalive(20 * time.Millisecond)

	m := model.NewLinearModel(model.LinearConfig{InputDim: 8})
	cl := env.NewClientWithOps(t, m)

	errCh := env.StartSession(cl)
	require.True(t, env.Coordinator.WaitForReceived(1+rounds*2, 10*time.Second))
	require.NoError(t, env.StopSession(t, cl, errCh))

	// 每轮训练推进一个 epoch，并产出损失指标
	results := env.Recorder.TrainResults()
	require.Len(t, results, rounds)
	for i, res := range results {
		assert.Equal(t, float64(i+1), res.Metrics["epoch"], "round %d", i)
		assert.Contains(t, res.Metrics, "loss", "round %d", i)
	}

	stats := cl.Stats()
	assert.Equal(t, int64(rounds), stats.TrainOps)
	assert.Equal(t, int64(rounds), stats.WeightsSent)
}

// TestTrainingRound_HealthChecksKeepCounting 测试空闲会话靠健康检查保活
func TestTrainingRound_HealthChecksKeepCounting(t *testing.T) {
	env := NewTestEnv(t)
	env.Coordinator.WithKeepalive(10 * time.Millisecond)
	cl := env.NewClient(t)

	errCh := env.StartSession(cl)
	AssertEventually(t, func() bool { return cl.Stats().HealthChecks >= 3 }, 5*time.Second)
	require.NoError(t, env.StopSession(t, cl, errCh))

	// 除握手外的所有响应都应是健康回执
	kinds := env.Coordinator.ReceivedKinds()
	require.NotEmpty(t, kinds)
	assert.Equal(t, protocol.KindHandshake, kinds[0])
	for _, kind := range kinds[1:] {
		assert.Equal(t, protocol.KindHealthPong, kind)
	}
}
