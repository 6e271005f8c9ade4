// =============================================================================
// FedFlow 主入口
// =============================================================================
// 联邦学习会话客户端入口点，包含会话运行、演示协调端、健康检查
//
// 使用方法:
//
//	fedflow run                            # 连接协调端并运行会话
//	fedflow run --config fedflow.yaml      # 指定配置文件
//	fedflow run --watch                    # 配置变更时自动重启会话
//	fedflow mock-coordinator               # 启动演示协调端
//	fedflow version                        # 显示版本信息
//	fedflow health                         # 探测运行中客户端的运维端点
// =============================================================================

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/fedflow/config"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runSession(os.Args[2:])
	case "mock-coordinator":
		runMockCoordinator(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🛰️ run 命令
// =============================================================================

func runSession(args []string) {
	// 解析命令行参数
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	baseURL := fs.String("url", "", "Coordinator URL (overrides config)")
	watch := fs.Bool("watch", false, "Restart the session when the config file changes")
	fs.Parse(args)

	// 加载配置
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Client.BaseURL = *baseURL
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting FedFlow client",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
		zap.String("coordinator", cfg.Client.BaseURL),
	)

	app := NewApp(cfg, *configPath, *watch, logger)

	if err := app.Start(); err != nil {
		logger.Fatal("Failed to start", zap.Error(err))
	}

	err = app.Run()
	app.Shutdown()

	if err != nil {
		logger.Error("Session terminated with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("FedFlow client stopped")
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:9091", "Ops endpoint address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/healthz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("FedFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`FedFlow - Federated Learning Session Client

Usage:
  fedflow <command> [options]

Commands:
  run               Connect to the coordinator and run a session
  mock-coordinator  Start an in-process demo coordinator
  version           Show version information
  health            Probe the ops endpoint of a running client
  help              Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --url <url>       Coordinator URL (overrides config)
  --watch           Restart the session when the config file changes

Options for 'mock-coordinator':
  --addr <addr>     Listen address (default :8765)
  --rounds <n>      Training rounds per connection (default 3)
  --rate <rps>      Instruction rate limit per second (default 1)
  --keepalive <d>   Health check interval after the script (default 15s)
  --token <tok>     Require this Bearer token on handshake

Examples:
  fedflow run --url ws://localhost:8765
  fedflow run --config /etc/fedflow/config.yaml --watch
  fedflow mock-coordinator --addr :8765 --rounds 5
  fedflow health --addr http://localhost:9091
  fedflow version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stdout"}
	}

	// 构建配置
	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         "json",
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}
	if cfg.Format == "console" {
		zapConfig.Encoding = "console"
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	// 构建 logger
	logger, err := zapConfig.Build(opts...)
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}

	return logger
}
