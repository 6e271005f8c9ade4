// 版权所有 2026 FedFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的会话指标采集能力，覆盖
连接、模型操作、权重交换与错误四大维度。

# 概述

本包通过 Collector 统一注册和记录 Prometheus 指标，使用 promauto
自动注册机制，避免手动管理 Registry。所有指标按 namespace 隔离，
支持多维度 label 分组，便于 Grafana 等工具进行可视化与告警。

# 核心类型

  - Collector：指标收集器，持有 Counter、Histogram、Gauge 等
    Prometheus 向量指标，按业务域分组管理。
  - InstrumentedListener：会话监听器包装，把引擎回调同步映射为
    指标记录后转发给内层监听器。

# 主要能力

  - 连接指标：状态转移计数、当前状态 Gauge、连接尝试总数、
    会话终止计数（按 graceful/error 归类）。
  - 操作指标：训练/评估完成总数与耗时直方图，
    按 operation/status 分组。
  - 权重指标：上行与下行张量计数，按 direction 分组。
  - 会话指标：当前会话的收发消息数与健康检查数 Gauge。
  - 错误指标：按错误码分组的故障计数，操作错误同时计入
    对应操作的失败数。
*/
package metrics
