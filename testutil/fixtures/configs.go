// =============================================================================
// 📦 测试数据工厂 - 配置测试数据
// =============================================================================
// 提供面向测试调优的客户端配置，用于测试
// =============================================================================
package fixtures

import (
	"time"

	"github.com/BaSui01/fedflow/config"
)

// =============================================================================
// ⚙️ 客户端配置工厂
// =============================================================================

// TestClientConfig 返回面向测试调优的客户端配置：
// 短超时加快速重试，避免失败场景拖慢测试
func TestClientConfig(baseURL string) config.ClientConfig {
	cfg := config.DefaultClientConfig()
	cfg.BaseURL = baseURL
	cfg.ClientID = "test-client"
	cfg.ConnectionTimeout = 5 * time.Second
	cfg.ReadTimeout = 5 * time.Second
	cfg.WriteTimeout = 5 * time.Second
	cfg.MaxRetries = 2
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.MaxRetryDelay = 50 * time.Millisecond
	return cfg
}

// NoRetryClientConfig 返回禁用重试的客户端配置
func NoRetryClientConfig(baseURL string) config.ClientConfig {
	cfg := TestClientConfig(baseURL)
	cfg.MaxRetries = 0
	return cfg
}
