package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/internal/tlsutil"
	"github.com/BaSui01/fedflow/types"
)

// WebSocketDialerConfig configures the WebSocket transport.
type WebSocketDialerConfig struct {
	URL                string        // Coordinator endpoint (ws:// or wss://)
	AuthToken          string        // Optional bearer token sent on the handshake request
	ConnectTimeout     time.Duration // Max time for one dial attempt (default 30s)
	ReadTimeout        time.Duration // Per-receive deadline, 0 disables
	WriteTimeout       time.Duration // Per-send deadline, 0 disables
	MaxMessageBytes    int64         // Inbound frame size limit (default 64 MiB, tensors are large)
	InsecureSkipVerify bool          // Skip TLS certificate verification (dev only)
	Subprotocols       []string      // WebSocket subprotocols (default ["fedflow"])
}

// DefaultWebSocketDialerConfig returns a WebSocketDialerConfig with sensible
// defaults for everything but the URL.
func DefaultWebSocketDialerConfig(url string) WebSocketDialerConfig {
	return WebSocketDialerConfig{
		URL:             url,
		ConnectTimeout:  30 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    60 * time.Second,
		MaxMessageBytes: 64 << 20,
		Subprotocols:    []string{"fedflow"},
	}
}

// WebSocketDialer dials coordinator streams over WebSocket. The underlying
// HTTP client (connection pool, TLS config) is built once and reused across
// every dial, so repeated session runs do not rebuild transport state.
type WebSocketDialer struct {
	config     WebSocketDialerConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWebSocketDialer creates a dialer with a hardened, long-lived transport.
func NewWebSocketDialer(config WebSocketDialerConfig, logger *zap.Logger) *WebSocketDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	if config.MaxMessageBytes == 0 {
		config.MaxMessageBytes = 64 << 20
	}
	if len(config.Subprotocols) == 0 {
		config.Subprotocols = []string{"fedflow"}
	}

	transport := tlsutil.SecureTransport()
	if config.InsecureSkipVerify {
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	// No http.Client.Timeout: the connection is long-lived and cancellation
	// comes from the dial context.
	return &WebSocketDialer{
		config:     config,
		httpClient: &http.Client{Transport: transport},
		logger:     logger.With(zap.String("component", "ws_dialer")),
	}
}

// Dial establishes one stream. Dial failures are recoverable connection
// errors; an already-expired auth token fails fast as non-recoverable since
// no retry can succeed with it.
func (d *WebSocketDialer) Dial(ctx context.Context) (Stream, error) {
	if err := d.checkTokenExpiry(); err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.config.ConnectTimeout)
	defer cancel()

	opts := &websocket.DialOptions{
		HTTPClient:   d.httpClient,
		Subprotocols: d.config.Subprotocols,
	}
	if d.config.AuthToken != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + d.config.AuthToken}}
	}

	conn, _, err := websocket.Dial(dialCtx, d.config.URL, opts)
	if err != nil {
		return nil, types.NewConnectionError("websocket connect", true).WithCause(err)
	}
	conn.SetReadLimit(d.config.MaxMessageBytes)

	d.logger.Debug("stream established", zap.String("url", d.config.URL))
	return newWSStream(conn, d.config.ReadTimeout, d.config.WriteTimeout, d.logger), nil
}

// checkTokenExpiry inspects the configured bearer token without verifying
// its signature. Opaque (non-JWT) tokens pass through untouched.
func (d *WebSocketDialer) checkTokenExpiry() error {
	if d.config.AuthToken == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(d.config.AuthToken, claims); err != nil {
		return nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if time.Now().After(exp.Time) {
		return types.NewConnectionError(
			fmt.Sprintf("auth token expired at %s", exp.Time.Format(time.RFC3339)), false)
	}
	return nil
}

// wsStream adapts a WebSocket connection to the Stream interface. Writes are
// mutex-protected because WebSocket does not support concurrent writers.
type wsStream struct {
	conn         *websocket.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
	logger       *zap.Logger

	mu     sync.Mutex // guards writes and the closed flag
	closed bool
}

func newWSStream(conn *websocket.Conn, readTimeout, writeTimeout time.Duration, logger *zap.Logger) *wsStream {
	return &wsStream{
		conn:         conn,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		logger:       logger.With(zap.String("component", "ws_stream")),
	}
}

// Send serializes one client frame and writes it.
func (s *wsStream) Send(ctx context.Context, msg *ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.NewConnectionError("stream closed", true)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewProtocolError("marshal client message").WithCause(err)
	}

	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}

	if err := s.conn.Write(ctx, websocket.MessageText, body); err != nil {
		if ctx.Err() == context.Canceled {
			return ctx.Err()
		}
		return types.NewConnectionError("websocket write", true).WithCause(err)
	}
	return nil
}

// Receive reads the next coordinator frame.
func (s *wsStream) Receive(ctx context.Context) (*ServerMessage, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, types.NewConnectionError("stream closed", true)
	}

	if s.readTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.readTimeout)
		defer cancel()
	}

	_, data, err := s.conn.Read(ctx)
	if err != nil {
		// A cancelled parent context is forced-cancel unwinding, not a
		// transport failure.
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, types.NewConnectionError("websocket read", true).WithCause(err)
	}

	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, types.NewProtocolError("unmarshal server message").WithCause(err)
	}
	return &msg, nil
}

// Close closes the connection. Safe to call more than once.
func (s *wsStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.conn.Close(websocket.StatusNormalClosure, "closing")
}
