// =============================================================================
// 📦 FedFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Client:    DefaultClientConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// DefaultClientConfig 返回默认客户端配置
// base_url 没有默认值，必须显式配置
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:               "",
		ClientID:              "",
		AuthToken:             "",
		ConnectionTimeout:     30 * time.Second,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		MaxRetries:            3,
		RetryDelay:            time.Second,
		UseExponentialBackoff: true,
		MaxRetryDelay:         30 * time.Second,
		EnableHealthCheck:     true,
		InsecureSkipVerify:    false,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "fedflow",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    false,
		ListenAddr: ":9091",
	}
}
