package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/internal/metrics"
	"github.com/BaSui01/fedflow/internal/server"
	"github.com/BaSui01/fedflow/internal/telemetry"
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/types"
)

// 协同停止的宽限期，超过后强制取消会话
const stopGrace = 15 * time.Second

// =============================================================================
// 🖥️ App 结构
// =============================================================================

// App 是 run 子命令的应用骨架：构造会话客户端并循环运行，
// 同时管理运维端点、遥测与配置变更触发的会话重启。
type App struct {
	mu         sync.Mutex
	cfg        *config.Config
	configPath string
	watch      bool
	logger     *zap.Logger

	// 指标收集器，Metrics.Enabled 为 false 时为 nil
	collector *metrics.Collector

	// 运维端点服务器
	opsManager *server.Manager

	// 遥测
	otel *telemetry.Providers

	// 配置热重启
	watcher  *config.FileWatcher
	reloadCh chan struct{}

	// 当前会话客户端，重启后替换
	cl *client.Client
}

// NewApp 创建 run 应用
func NewApp(cfg *config.Config, configPath string, watch bool, logger *zap.Logger) *App {
	return &App{
		cfg:        cfg,
		configPath: configPath,
		watch:      watch,
		logger:     logger,
		reloadCh:   make(chan struct{}, 1),
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动会话之外的所有组件
func (a *App) Start() error {
	// 1. 初始化指标收集器
	if a.cfg.Metrics.Enabled {
		a.collector = metrics.NewCollector("fedflow", a.logger)
	}

	// 2. 初始化遥测
	otelProviders, err := telemetry.Init(a.cfg.Telemetry, a.logger)
	if err != nil {
		a.logger.Warn("failed to initialize telemetry", zap.Error(err))
	} else {
		a.otel = otelProviders
	}

	// 3. 启动运维端点服务器
	if err := a.startOpsServer(); err != nil {
		return err
	}

	// 4. 启动配置监听器
	if a.watch && a.configPath != "" {
		if err := a.startWatcher(); err != nil {
			return err
		}
	}

	return nil
}

// startOpsServer 启动 /metrics、/healthz、/stats、/version 端点
func (a *App) startOpsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/stats", a.handleStats)
	mux.HandleFunc("/version", a.handleVersion)

	srvCfg := server.DefaultConfig()
	if a.cfg.Metrics.ListenAddr != "" {
		srvCfg.Addr = a.cfg.Metrics.ListenAddr
	}

	a.opsManager = server.NewManager(mux, srvCfg, a.logger)
	if err := a.opsManager.Start(); err != nil {
		return err
	}

	a.logger.Info("Ops endpoint started",
		zap.String("addr", a.opsManager.BoundAddr()),
		zap.Bool("metrics_enabled", a.cfg.Metrics.Enabled),
	)
	return nil
}

// startWatcher 监听配置文件变更，写入事件触发会话重启
func (a *App) startWatcher() error {
	w, err := config.NewFileWatcher([]string{a.configPath},
		config.WithWatcherLogger(a.logger))
	if err != nil {
		return err
	}

	w.OnChange(func(ev config.FileEvent) {
		if ev.Op != config.FileOpWrite && ev.Op != config.FileOpCreate {
			return
		}
		select {
		case a.reloadCh <- struct{}{}:
		default: // 重启已在途，合并后续事件
		}
	})

	if err := w.Start(context.Background()); err != nil {
		return err
	}
	a.watcher = w

	a.logger.Info("Config watcher started", zap.String("path", a.configPath))
	return nil
}

// =============================================================================
// 🔁 会话循环
// =============================================================================

// Run 循环运行会话：信号触发协同停止，配置变更触发优雅重启。
// 返回最后一次会话的终止错误。
func (a *App) Run() error {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		cl, err := a.buildClient()
		if err != nil {
			return err
		}
		a.setClient(cl)

		errCh := make(chan error, 1)
		go func() { errCh <- cl.Run(context.Background()) }()

		select {
		case err := <-errCh:
			// 会话自行终止（协调端关闭、重试耗尽或终态错误）
			return err

		case <-a.reloadCh:
			a.logger.Info("Config change detected, restarting session")
			a.stopClient(cl, nil)
			if err := <-errCh; err != nil {
				a.logger.Warn("Session ended during restart", zap.Error(err))
			}
			a.reloadConfig()
			continue

		case sig := <-sigCh:
			a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
			a.stopClient(cl, sigCh)
			return <-errCh
		}
	}
}

// buildClient 按当前配置构造会话客户端与参考模型
func (a *App) buildClient() (*client.Client, error) {
	a.mu.Lock()
	cfg := a.cfg
	a.mu.Unlock()

	var ops model.Operations = model.NewLinearModel(model.LinearConfig{})
	if cfg.Telemetry.Enabled {
		ops = model.TracedOperations(ops, nil)
	}

	var listener client.Listener = newSessionLogListener(a.logger)
	if a.collector != nil {
		listener = metrics.InstrumentListener(listener, a.collector)
	}

	return client.New(cfg.Client, ops,
		client.WithListener(listener),
		client.WithLogger(a.logger),
	)
}

// stopClient 协同停止会话；宽限期超时或再次收到信号则强制取消
func (a *App) stopClient(cl *client.Client, sigCh <-chan os.Signal) {
	cl.Stop()

	done := make(chan struct{})
	go func() {
		cl.AwaitStop(0)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopGrace):
		a.logger.Warn("Cooperative stop timed out, cancelling session")
		cl.Cancel("shutdown grace period exceeded")
		<-done
	case sig := <-sigCh:
		a.logger.Warn("Second signal, cancelling session", zap.String("signal", sig.String()))
		cl.Cancel("operator interrupt")
		<-done
	}
}

// reloadConfig 重新加载配置文件；加载或校验失败时保留旧配置
func (a *App) reloadConfig() {
	cfg, err := config.NewLoader().WithConfigPath(a.configPath).Load()
	if err != nil {
		a.logger.Error("Config reload failed, keeping previous config", zap.Error(err))
		return
	}
	if err := cfg.Validate(); err != nil {
		a.logger.Error("Reloaded config invalid, keeping previous config", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	// 日志与遥测配置在进程启动时绑定，变更只对客户端配置生效
	a.logger.Info("Config reloaded", zap.String("coordinator", cfg.Client.BaseURL))
}

func (a *App) setClient(cl *client.Client) {
	a.mu.Lock()
	a.cl = cl
	a.mu.Unlock()
}

func (a *App) currentClient() *client.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cl
}

// =============================================================================
// 🌐 运维端点处理器
// =============================================================================

// healthStatus 是 /healthz 的响应体
type healthStatus struct {
	Status    string    `json:"status"`
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	state := types.StateDisconnected
	if cl := a.currentClient(); cl != nil {
		state = cl.State()
	}
	writeJSON(w, http.StatusOK, healthStatus{
		Status:    "healthy",
		State:     state.String(),
		Timestamp: time.Now().UTC(),
	})
}

func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats types.SessionStats
	if cl := a.currentClient(); cl != nil {
		stats = cl.Stats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *App) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"build_time": BuildTime,
		"git_commit": GitCommit,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// Shutdown 优雅关闭所有组件
func (a *App) Shutdown() {
	a.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 1. 停止配置监听器
	if a.watcher != nil {
		if err := a.watcher.Stop(); err != nil {
			a.logger.Error("Config watcher shutdown error", zap.Error(err))
		}
	}

	// 2. 关闭运维端点服务器
	if a.opsManager != nil {
		if err := a.opsManager.Shutdown(ctx); err != nil {
			a.logger.Error("Ops endpoint shutdown error", zap.Error(err))
		}
	}

	// 3. 冲刷遥测
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Error("Telemetry shutdown error", zap.Error(err))
		}
	}

	a.logger.Info("Graceful shutdown completed")
}
