// Package config 提供 FedFlow 客户端的配置管理功能。
//
// 包含配置加载与校验：支持从 YAML 文件和环境变量加载，
// 优先级为 默认值 → YAML 文件 → 环境变量。
// 客户端配置在构造时一次性校验，校验失败立即失败。
//
// FileWatcher 以轮询方式监听配置文件变更，供 CLI 在
// 配置修改后优雅重启会话；配置本身不做运行时热更新。
package config
