// Copyright (c) FedFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 FedFlow 客户端的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 client、protocol、model、
config 等上层模块提供统一的类型契约。所有跨包共享的枚举、结构体和
错误码均定义于此，以避免循环依赖。

# 核心类型

  - ConnectionState — 会话连接状态机的五个状态（Disconnected … Stopping）
  - SessionStats    — 会话级累计计数器快照（写时复制，读取方免锁）
  - TensorData      — 模型权重张量（原始字节 + 形状），训练载荷的基本单位
  - Error / ErrorCode — 结构化错误体系，含 Recoverable、Operation、Graceful 标记

# 主要能力

  - 错误工具链：IsRecoverable / GetErrorCode / errors.Is 链式展开
  - 常用错误构造：NewConnectionError / NewServerError / NewOperationError /
    NewProtocolError / NewCancellationError
  - 统计快照：SessionStats 的 Increment* 方法返回新副本，旧快照永不变化
*/
package types
