// =============================================================================
// 🛰️ MockCoordinator - 进程内协调端模拟实现
// =============================================================================
// 基于 httptest 与真实 WebSocket 的协调端替身：接受握手、按脚本下发指令
// （可限速）、收集客户端应答，并可注入服务端错误与连接中断
//
// 使用方法:
//
//	coord := mocks.NewMockCoordinator().WithScript(fixtures.FullRoundScript()...)
//	url := coord.Start(t)
//	// 用 url 构造客户端并运行会话
//	frames := coord.Received()
// =============================================================================
package mocks

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/time/rate"

	"github.com/BaSui01/fedflow/protocol"
)

// --- MockCoordinator 结构 ---

// MockCoordinator 是联邦协调端的进程内模拟实现。
// 每个连接先读取握手帧，再按序回放指令脚本；脚本发完后连接保持打开，
// 配置了 keepalive 时持续发送健康检查。服务端错误通过在脚本中放入
// Error 帧注入，连接中断通过 WithDropAfter 注入。
type MockCoordinator struct {
	mu sync.Mutex

	// 脚本配置
	script        []*protocol.ServerMessage
	limiter       *rate.Limiter
	keepalive     time.Duration
	dropAfter     int // 首个连接发送 N 帧后强行切断，-1 表示不切断
	expectedToken string

	// 运行状态
	srv    *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
	conns  map[*websocket.Conn]struct{}

	// 记录
	connections int
	handshakes  []protocol.Handshake
	received    []protocol.ClientMessage
}

// NewMockCoordinator 创建新的 MockCoordinator
func NewMockCoordinator() *MockCoordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &MockCoordinator{
		limiter:   rate.NewLimiter(rate.Inf, 1),
		dropAfter: -1,
		ctx:       ctx,
		cancel:    cancel,
		conns:     map[*websocket.Conn]struct{}{},
	}
}

// --- Builder 方法 ---

// WithScript 设置每个连接上按序下发的指令脚本
func (c *MockCoordinator) WithScript(msgs ...*protocol.ServerMessage) *MockCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, msgs...)
	return c
}

// WithRate 限制指令下发速率
func (c *MockCoordinator) WithRate(limit rate.Limit, burst int) *MockCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = rate.NewLimiter(limit, burst)
	return c
}

// WithKeepalive 在脚本发完后按间隔持续发送健康检查，
// 让协同停止的客户端能在下一帧到达时解绕读循环
func (c *MockCoordinator) WithKeepalive(interval time.Duration) *MockCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keepalive = interval
	return c
}

// WithDropAfter 令首个连接在发送 n 帧脚本后被强行切断，
// 后续连接正常回放完整脚本，用于重连测试
func (c *MockCoordinator) WithDropAfter(n int) *MockCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 {
		n = 0
	}
	c.dropAfter = n
	return c
}

// WithExpectedToken 要求握手请求携带指定 Bearer 令牌，不符则拒绝升级
func (c *MockCoordinator) WithExpectedToken(token string) *MockCoordinator {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expectedToken = token
	return c
}

// --- 生命周期 ---

// Start 启动协调端并返回 WebSocket URL，测试结束时自动关闭
func (c *MockCoordinator) Start(tb testing.TB) string {
	tb.Helper()
	url := c.StartServer()
	tb.Cleanup(c.Close)
	return url
}

// StartServer 启动协调端并返回 WebSocket URL，调用方负责 Close
func (c *MockCoordinator) StartServer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.srv == nil {
		c.srv = httptest.NewServer(http.HandlerFunc(c.handle))
	}
	return "ws" + strings.TrimPrefix(c.srv.URL, "http")
}

// URL 返回 WebSocket URL，未启动时为空串
func (c *MockCoordinator) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.srv == nil {
		return ""
	}
	return "ws" + strings.TrimPrefix(c.srv.URL, "http")
}

// Handler 返回协调端的 HTTP 处理器，供挂载到自有监听地址
// （cmd 的 mock-coordinator 子命令用它在固定端口上服务演示流量）
func (c *MockCoordinator) Handler() http.Handler {
	return http.HandlerFunc(c.handle)
}

// Close 切断所有活跃连接并关闭服务端，可重复调用
func (c *MockCoordinator) Close() {
	c.cancel()

	c.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(c.conns))
	for conn := range c.conns {
		conns = append(conns, conn)
	}
	srv := c.srv
	c.mu.Unlock()

	for _, conn := range conns {
		conn.CloseNow()
	}
	if srv != nil {
		srv.Close()
	}
}

// --- 连接处理 ---

func (c *MockCoordinator) handle(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	token := c.expectedToken
	c.mu.Unlock()

	if token != "" && r.Header.Get("Authorization") != "Bearer "+token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"fedflow"},
	})
	if err != nil {
		return
	}
	defer conn.CloseNow()

	c.mu.Lock()
	index := c.connections
	c.connections++
	c.conns[conn] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.conns, conn)
		c.mu.Unlock()
	}()

	// 连接升级后生命周期跟随协调端本身，而非这次 HTTP 请求
	ctx := c.ctx

	// 首帧必须是握手
	first, err := c.readFrame(ctx, conn)
	if err != nil {
		return
	}
	if first.Handshake == nil {
		conn.Close(websocket.StatusPolicyViolation, "expected handshake")
		return
	}
	c.mu.Lock()
	c.handshakes = append(c.handshakes, *first.Handshake)
	c.mu.Unlock()

	// 后台收集所有后续应答，连接关闭时结束
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, err := c.readFrame(ctx, conn); err != nil {
				return
			}
		}
	}()

	c.drive(ctx, conn, index)
	<-readerDone
}

// drive 按脚本下发指令，处理限速、切断注入与 keepalive
func (c *MockCoordinator) drive(ctx context.Context, conn *websocket.Conn, index int) {
	c.mu.Lock()
	script := c.script
	limiter := c.limiter
	dropAfter := c.dropAfter
	keepalive := c.keepalive
	c.mu.Unlock()

	for i, msg := range script {
		if dropAfter >= 0 && index == 0 && i == dropAfter {
			conn.CloseNow()
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := writeFrame(ctx, conn, msg); err != nil {
			return
		}
	}
	if dropAfter >= len(script) && index == 0 {
		conn.CloseNow()
		return
	}

	if keepalive <= 0 {
		return
	}
	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ping := &protocol.ServerMessage{HealthPing: &protocol.HealthPing{}}
			if err := writeFrame(ctx, conn, ping); err != nil {
				return
			}
		}
	}
}

func (c *MockCoordinator) readFrame(ctx context.Context, conn *websocket.Conn) (*protocol.ClientMessage, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	var msg protocol.ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.received = append(c.received, msg)
	c.mu.Unlock()
	return &msg, nil
}

func writeFrame(ctx context.Context, conn *websocket.Conn, msg *protocol.ServerMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, body)
}

// --- 查询方法 ---

// ConnectionCount 返回已接受的连接数
func (c *MockCoordinator) ConnectionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connections
}

// Handshakes 返回每个连接上收到的握手载荷
func (c *MockCoordinator) Handshakes() []protocol.Handshake {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Handshake{}, c.handshakes...)
}

// Received 返回收到的全部客户端帧，按到达顺序排列，含握手帧
func (c *MockCoordinator) Received() []protocol.ClientMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.ClientMessage{}, c.received...)
}

// ReceivedKinds 返回收到帧的种类序列
func (c *MockCoordinator) ReceivedKinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]string, len(c.received))
	for i := range c.received {
		kinds[i] = c.received[i].Kind()
	}
	return kinds
}

// WaitForReceived 等待收到至少 n 帧
func (c *MockCoordinator) WaitForReceived(n int, timeout time.Duration) bool {
	return c.await(func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.received) >= n
	}, timeout)
}

// WaitForHandshakes 等待收到至少 n 个握手
func (c *MockCoordinator) WaitForHandshakes(n int, timeout time.Duration) bool {
	return c.await(func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.handshakes) >= n
	}, timeout)
}

// WaitForConnections 等待接受至少 n 个连接
func (c *MockCoordinator) WaitForConnections(n int, timeout time.Duration) bool {
	return c.await(func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.connections >= n
	}, timeout)
}

func (c *MockCoordinator) await(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}
