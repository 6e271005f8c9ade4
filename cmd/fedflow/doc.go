/*
Package main 提供 FedFlow 客户端程序入口。

# 概述

cmd/fedflow 是 FedFlow 会话客户端的可执行入口：用参考线性模型连接
联邦协调端并运行完整会话，同时提供演示协调端、健康检查和版本查询等
子命令。程序支持 YAML 配置文件加载、结构化日志（zap）、Prometheus
指标采集与 OpenTelemetry 追踪。

# 核心类型

  - App                — run 子命令的应用骨架，管理会话循环、运维端点
    与配置变更重启
  - sessionLogListener — 把会话回调写成结构化日志的 Listener 实现

# 主要能力

  - 子命令：run（连接协调端运行会话）、mock-coordinator（演示协调端）、
    version、health
  - 会话循环：SIGINT/SIGTERM 触发协同停止，宽限期超时或二次信号强制取消；
    --watch 模式下配置文件变更时优雅重启会话
  - 运维端点：/metrics（Prometheus）、/healthz、/stats、/version
  - 演示协调端：按脚本下发训练回合，x/time/rate 限速，可要求 Bearer 令牌
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
