// Copyright 2026 FedFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 FedFlow 测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试与基准测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。所有测试应优先使用此包
中的工具函数和 Mock 实现。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertTensorsEqual / AssertWireTensorsEqual / AssertMetricsEqual /
    AssertJSONEqual / AssertNoError / AssertError / AssertContains 等
  - 异步断言: AssertEventuallyTrue / AssertEventuallyEqual，
    支持超时轮询等待条件满足
  - 数据工具: MustJSON / MustParseJSON / Float32Tensor / TensorValues /
    CopyTensors，简化张量测试数据构造与深拷贝
  - 基准辅助: BenchmarkHelper 封装 testing.B 常用操作

# 子包

  - testutil/mocks: Mock 实现，包括 MockCoordinator（进程内协调端，
    经真实 WebSocket 按脚本下发指令）、MockOperations（可脚本化的
    模型操作）、RecordingListener（会话事件录制监听器），
    均支持 Builder 模式与错误注入
  - testutil/fixtures: 测试数据工厂，提供预置客户端配置、
    权重集合、协议指令帧与整轮指令脚本等样例

# 使用示例

	ctx := testutil.TestContext(t)
	coord := mocks.NewMockCoordinator().WithScript(fixtures.FullRoundScript()...)
	url := coord.Start(t)
	c, err := client.New(fixtures.TestClientConfig(url), mocks.NewMockOperations())
	testutil.AssertNoError(t, err)
	_ = c.Run(ctx)
*/
package testutil
