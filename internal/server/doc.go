/*
包 server 提供 fedflow 进程附带 HTTP 端点的生命周期管理，
支持非阻塞启动、优雅关闭与系统信号监听。

# 概述

本包通过 Manager 封装 net/http.Server，统一管理监听、服务、
关闭与错误传播流程。run 子命令用它暴露 /metrics 与 /healthz，
mock-coordinator 子命令用它承载演示协调端的 WebSocket 升级端点。
内置 SIGINT/SIGTERM 信号处理。

# 核心类型

  - Manager：端点服务器管理器，持有 http.Server、net.Listener
    与异步错误通道，提供 Start/Shutdown/WaitForShutdown 等
    生命周期方法。
  - Config：服务器配置，包含监听地址、读写超时、空闲超时、
    最大请求头大小与优雅关闭超时。

# 主要能力

  - 非阻塞启动：Start 在后台 goroutine 中运行服务，主线程不阻塞。
  - 优雅关闭：Shutdown 在配置的超时内完成请求排空与连接释放。
  - 信号监听：WaitForShutdown 监听 SIGINT/SIGTERM，收到信号后
    自动触发优雅关闭流程。
  - 错误传播：Errors() 返回异步错误通道，供调用方监控服务异常。
  - 地址查询：Addr 返回配置地址，BoundAddr 返回实际绑定地址
    （支持 ":0" 随机端口）。
*/
package server
