package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/types"
)

// Version 随握手帧上报给协调端。
const Version = "0.3.0"

// Client 是联邦学习会话引擎，同一实例最多只有一个活跃会话。
type Client struct {
	cfg      config.ClientConfig
	ops      model.Operations
	listener Listener
	dialer   protocol.Dialer
	logger   *zap.Logger

	states *stateMachine
	stats  *statsSlot

	stopRequested atomic.Bool

	mu            sync.Mutex
	active        bool
	sessionCancel context.CancelCauseFunc
	sessionDone   chan struct{}
}

// Option 定制 Client 的可选依赖。
type Option func(*Client)

// WithListener 注册事件监听器，默认为全空实现。
func WithListener(l Listener) Option {
	return func(c *Client) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithLogger 注入日志器，默认为 zap.NewNop。
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer 替换默认的 WebSocket 拨号器，主要用于测试注入。
func WithDialer(d protocol.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New 构造会话引擎。配置校验失败立即报错，不会延迟到 Run。
func New(cfg config.ClientConfig, ops model.Operations, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, types.NewError(types.ErrConfig, "invalid client config").WithCause(err)
	}
	if ops == nil {
		return nil, types.NewError(types.ErrConfig, "model operations implementation required")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}

	c := &Client{
		cfg:      cfg,
		ops:      ops,
		listener: BaseListener{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "session_client"), zap.String("client_id", cfg.ClientID))

	if c.dialer == nil {
		wsCfg := protocol.DefaultWebSocketDialerConfig(cfg.BaseURL)
		wsCfg.AuthToken = cfg.AuthToken
		wsCfg.ConnectTimeout = cfg.ConnectionTimeout
		wsCfg.ReadTimeout = cfg.ReadTimeout
		wsCfg.WriteTimeout = cfg.WriteTimeout
		wsCfg.InsecureSkipVerify = cfg.InsecureSkipVerify
		c.dialer = protocol.NewWebSocketDialer(wsCfg, c.logger)
	}

	c.states = newStateMachine(func(old, next types.ConnectionState) {
		c.logger.Debug("connection state changed",
			zap.Stringer("from", old),
			zap.Stringer("to", next),
		)
		c.listener.OnStateChanged(old, next)
	})
	c.stats = newStatsSlot(func(st types.SessionStats) {
		c.listener.OnStatsUpdated(st)
	})
	return c, nil
}

// State 返回当前连接状态。
func (c *Client) State() types.ConnectionState {
	return c.states.Current()
}

// Stats 返回最新的会话统计快照。
func (c *Client) Stats() types.SessionStats {
	return c.stats.Load()
}

// Run 启动一次会话并阻塞到会话终止。仅允许在 Disconnected 状态调用；
// 正常结束（含协同停止）返回 nil，否则返回唯一的终态错误。
func (c *Client) Run(ctx context.Context) error {
	done, err := c.claim()
	if err != nil {
		return err
	}

	sessionCtx, cancel := context.WithCancelCause(ctx)
	c.mu.Lock()
	c.sessionCancel = cancel
	c.mu.Unlock()

	defer func() {
		cancel(nil)
		c.states.To(types.StateDisconnected)
		c.mu.Lock()
		c.active = false
		c.sessionCancel = nil
		c.mu.Unlock()
		close(done)
	}()

	// 新会话从全零快照起步并盖上开始时间
	c.stats.update(func(types.SessionStats) types.SessionStats {
		return types.SessionStats{}.StartSession()
	})

	c.logger.Info("session starting",
		zap.String("url", c.cfg.BaseURL),
		zap.Int("max_retries", c.cfg.MaxRetries),
	)
	return c.runWithRetry(sessionCtx)
}

// claim 原子地占据唯一会话位，失败时不改动任何状态。
func (c *Client) claim() (chan struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return nil, types.NewInvalidStateError("a session is already running")
	}
	if st := c.states.Current(); st != types.StateDisconnected {
		return nil, types.NewInvalidStateError("run requires Disconnected state, current state is " + st.String())
	}
	c.active = true
	c.stopRequested.Store(false)
	done := make(chan struct{})
	c.sessionDone = done
	return done, nil
}

// Stop 请求协同停止：置位停止标志并进入 Stopping。
// 不会中断进行中的网络读或用户操作，会话在下一个检查点解绕。
func (c *Client) Stop() {
	c.stopRequested.Store(true)
	c.states.To(types.StateStopping)
	c.logger.Info("cooperative stop requested")
}

// AwaitStop 阻塞等待当前会话任务结束，timeout 为 0 表示无限等待。
// 返回会话是否在期限内结束；从未启动过会话时立即返回 true。
func (c *Client) AwaitStop(timeout time.Duration) bool {
	c.mu.Lock()
	done := c.sessionDone
	c.mu.Unlock()

	if done == nil {
		return true
	}
	if timeout <= 0 {
		<-done
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// Cancel 强制终止当前会话任务并立即回到 Disconnected，
// 不等待任务完成收尾，传输层按已丢弃处理。
func (c *Client) Cancel(reason string) {
	c.mu.Lock()
	cancel := c.sessionCancel
	c.mu.Unlock()

	if cancel != nil {
		cancel(types.NewCancellationError(reason, false))
	}
	c.states.To(types.StateDisconnected)
	c.logger.Info("session cancelled", zap.String("reason", reason))
}
