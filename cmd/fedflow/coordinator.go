package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/internal/server"
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/testutil/mocks"
)

// =============================================================================
// 🛰️ mock-coordinator 命令
// =============================================================================

// runMockCoordinator 启动演示协调端：接受握手、按脚本下发训练回合、
// 收集应答。用于本地联调与演示，不做任何聚合。
func runMockCoordinator(args []string) {
	fs := flag.NewFlagSet("mock-coordinator", flag.ExitOnError)
	addr := fs.String("addr", ":8765", "Listen address")
	rounds := fs.Int("rounds", 3, "Training rounds per connection")
	rps := fs.Float64("rate", 1, "Instruction rate limit per second (0 = unlimited)")
	keepalive := fs.Duration("keepalive", 15*time.Second, "Health check interval after the script")
	token := fs.String("token", "", "Require this Bearer token on handshake")
	fs.Parse(args)

	logger := initLogger(config.LogConfig{Level: "info", Format: "console"})
	defer logger.Sync()

	coord := mocks.NewMockCoordinator().
		WithScript(demoScript(*rounds)...).
		WithKeepalive(*keepalive)
	if *rps > 0 {
		coord.WithRate(rate.Limit(*rps), 1)
	}
	if *token != "" {
		coord.WithExpectedToken(*token)
	}

	srvCfg := server.DefaultConfig()
	srvCfg.Addr = *addr
	mgr := server.NewManager(coord.Handler(), srvCfg, logger)
	if err := mgr.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start coordinator: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Demo coordinator listening",
		zap.String("url", "ws://"+mgr.BoundAddr()),
		zap.Int("rounds", *rounds),
		zap.Float64("rate", *rps),
	)

	// 周期打印连接与帧统计
	statusCtx, stopStatus := context.WithCancel(context.Background())
	defer stopStatus()
	go reportStatus(statusCtx, coord, logger)

	mgr.WaitForShutdown()
	coord.Close()
	logger.Info("Demo coordinator stopped")
}

// demoScript 构造一个连接回合的指令脚本：
// 先下发参考模型的初始权重，再循环 训练→取权重，最后评估一次
func demoScript(rounds int) []*protocol.ServerMessage {
	ref := model.NewLinearModel(model.LinearConfig{})
	weights, err := ref.GetWeights(context.Background())
	if err != nil {
		// 参考模型在内存中导出权重，不会失败
		panic(err)
	}

	script := []*protocol.ServerMessage{
		{SendWeightsRequest: &protocol.SendWeightsRequest{Tensors: protocol.TensorsToWire(weights)}},
	}
	for i := 0; i < rounds; i++ {
		script = append(script,
			&protocol.ServerMessage{TrainRequest: &protocol.TrainRequest{}},
			&protocol.ServerMessage{GetWeightsRequest: &protocol.GetWeightsRequest{}},
		)
	}
	script = append(script, &protocol.ServerMessage{EvaluateRequest: &protocol.EvaluateRequest{}})
	return script
}

// reportStatus 每 10 秒打印一次协调端状态
func reportStatus(ctx context.Context, coord *mocks.MockCoordinator, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("coordinator status",
				zap.Int("connections", coord.ConnectionCount()),
				zap.Int("frames_received", len(coord.Received())),
				zap.Strings("last_kinds", tailKinds(coord.ReceivedKinds(), 5)),
			)
		}
	}
}

// tailKinds 返回最近 n 个帧类型
func tailKinds(kinds []string, n int) []string {
	if len(kinds) <= n {
		return kinds
	}
	return kinds[len(kinds)-n:]
}
