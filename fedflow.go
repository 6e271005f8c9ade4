// Package fedflow provides a top-level convenience entry point for creating
// coordinator session clients with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/fedflow"
//
//	cl, err := fedflow.New(
//	    fedflow.WithBaseURL("wss://coordinator.example.com/session"),
//	    fedflow.WithOperations(myOps),
//	)
//	err = cl.Run(ctx)
//
// This is a thin wrapper around [client.New]; both produce identical results.
// Use the client package directly when you need full config control.
package fedflow

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
)

// Option configures the session client created by [New].
type Option func(*options)

type options struct {
	cfg      *config.ClientConfig
	baseURL  string
	clientID string
	token    string

	ops      model.Operations
	listener client.Listener
	logger   *zap.Logger
	dialer   protocol.Dialer
}

// WithBaseURL sets the coordinator URL (ws:// or wss://).
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithConfig replaces the default client config entirely. Shortcut options
// applied after it (WithBaseURL, WithClientID, WithAuthToken) still win.
func WithConfig(cfg config.ClientConfig) Option {
	return func(o *options) { o.cfg = &cfg }
}

// WithClientID sets the client identity sent in the handshake.
// Defaults to a random UUID.
func WithClientID(id string) Option {
	return func(o *options) { o.clientID = id }
}

// WithAuthToken sets the Bearer token presented when dialing.
func WithAuthToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithOperations sets the model operations driven by coordinator instructions.
// Required; [model.NewLinearModel] provides a reference implementation for
// demos and tests.
func WithOperations(ops model.Operations) Option {
	return func(o *options) { o.ops = ops }
}

// WithListener registers a session event listener.
func WithListener(l client.Listener) Option {
	return func(o *options) { o.listener = l }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDialer replaces the WebSocket dialer, mainly for test injection.
func WithDialer(d protocol.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// New creates a [client.Client] with minimal configuration. At minimum a
// coordinator URL and an operations implementation must be provided.
func New(opts ...Option) (*client.Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := config.DefaultClientConfig()
	if o.cfg != nil {
		cfg = *o.cfg
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.clientID != "" {
		cfg.ClientID = o.clientID
	}
	if o.token != "" {
		cfg.AuthToken = o.token
	}

	if o.ops == nil {
		return nil, fmt.Errorf("operations implementation is required: use WithOperations")
	}

	var clientOpts []client.Option
	if o.listener != nil {
		clientOpts = append(clientOpts, client.WithListener(o.listener))
	}
	if o.logger != nil {
		clientOpts = append(clientOpts, client.WithLogger(o.logger))
	}
	if o.dialer != nil {
		clientOpts = append(clientOpts, client.WithDialer(o.dialer))
	}

	return client.New(cfg, o.ops, clientOpts...)
}
