// 版权所有 2026 FedFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 client 实现联邦学习协调协议的会话引擎：连接生命周期状态机、
重试退避控制器、双向流消息派发循环与停止/取消协议。

# 概述

Client 与协调端维持一条长连接，接收指令（健康检查、评估、取权重、
训练、下发权重），派发到用户提供的模型操作并回送结果。会话引擎
负责在瞬时网络故障下自动重连，并区分协同停止与强制取消两种退出路径。

# 连接状态

	Disconnected ──run()──▶ Connecting ──握手──▶ Connected ──▶ Running
	      ▲                                                      │
	      └────────────── 会话结束 / cancel() ◀───────────────────┘
	                        （Stop() 先进入 Stopping，再解绕到 Disconnected）

状态转移仅在新旧状态不同时提交；每次提交同步触发一次
OnStateChanged(old, new) 通知，且按转移顺序串行送达。

# 并发模型

单个会话任务独占一条流，内部拆成两条方向流：出站队列 → 网络写入器，
网络读取器 → 指令派发。两者通过 errgroup 绑定在会话任务的生命周期内。
用户操作严格串行执行，第 n 条指令的响应先入出站队列，才会派发第 n+1 条。

# 错误分类

可恢复的连接错误进入退避重试；ServerError、ProtocolError、
OperationError 与标记为不可恢复的连接错误立即终止会话，不再重试。

# 使用示例

	cfg := config.DefaultClientConfig()
	cfg.BaseURL = "wss://coordinator.example.com/session"

	c, err := client.New(cfg, model.NewLinearModel(model.LinearConfig{}),
		client.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}

	go func() {
		if err := c.Run(ctx); err != nil {
			log.Printf("session ended: %v", err)
		}
	}()

	// 协同停止并等待解绕
	c.Stop()
	c.AwaitStop(10 * time.Second)
*/
package client
