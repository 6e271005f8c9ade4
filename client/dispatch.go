package client

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/fedflow/model"
	"github.com/BaSui01/fedflow/protocol"
	"github.com/BaSui01/fedflow/types"
)

// 出站队列长度：响应严格按序派发，只需吸收写入器的瞬时抖动
const outboundBuffer = 16

// runSession 执行一次完整的连接尝试：拨号、握手、派发循环、清理。
func (c *Client) runSession(ctx context.Context) error {
	c.states.To(types.StateConnecting)

	stream, err := c.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// 尽力清理，关闭失败不得掩盖会话本身的错误
		if cerr := stream.Close(); cerr != nil {
			c.logger.Debug("stream close after session", zap.Error(cerr))
		}
	}()

	s := &session{
		stream:      stream,
		ops:         c.ops,
		listener:    c.listener,
		logger:      c.logger,
		stats:       c.stats,
		states:      c.states,
		stopped:     &c.stopRequested,
		clientID:    c.cfg.ClientID,
		healthCheck: c.cfg.EnableHealthCheck,
	}
	return s.run(ctx)
}

// session 是一次已建立连接上的协议状态机。
type session struct {
	stream      protocol.Stream
	ops         model.Operations
	listener    Listener
	logger      *zap.Logger
	stats       *statsSlot
	states      *stateMachine
	stopped     *atomic.Bool
	clientID    string
	healthCheck bool

	outbound chan *protocol.ClientMessage
}

func (s *session) run(ctx context.Context) error {
	// 握手帧先于一切指令发出
	hello := &protocol.ClientMessage{Handshake: &protocol.Handshake{
		ClientID:        s.clientID,
		ClientVersion:   Version,
		ProtocolVersion: protocol.ProtocolVersion,
	}}
	if err := s.stream.Send(ctx, hello); err != nil {
		return err
	}
	s.stats.update(types.SessionStats.IncrementMessagesSent)

	s.states.To(types.StateConnected)
	s.listener.OnConnected()
	s.states.To(types.StateRunning)

	// 两条方向流共存亡：读取器出错或退出会连带写入器收摊
	s.outbound = make(chan *protocol.ClientMessage, outboundBuffer)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.writeLoop(gctx)
	})
	g.Go(func() error {
		defer close(s.outbound)
		return s.readLoop(gctx)
	})
	return g.Wait()
}

// writeLoop 把出站队列逐条写上网络，每次成功写入计一条已发送。
func (s *session) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-s.outbound:
			if !ok {
				return nil
			}
			if err := s.stream.Send(ctx, msg); err != nil {
				return err
			}
			s.stats.update(types.SessionStats.IncrementMessagesSent)
		}
	}
}

// readLoop 按接收顺序派发指令。停止标志只在消息边界检查，
// 不打断进行中的读取或用户操作。
func (s *session) readLoop(ctx context.Context) error {
	for !s.stopped.Load() {
		msg, err := s.stream.Receive(ctx)
		if err != nil {
			return err
		}
		if s.stopped.Load() {
			return nil
		}

		s.stats.update(types.SessionStats.IncrementMessagesReceived)

		if msg.Error != nil {
			return types.NewServerError(msg.Error.Reason)
		}
		if err := s.dispatch(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// dispatch 按指令种类路由，每条消息至多命中一种。
func (s *session) dispatch(ctx context.Context, msg *protocol.ServerMessage) error {
	switch kind := msg.Kind(); kind {
	case protocol.KindHealthPing:
		return s.handleHealthPing(ctx)
	case protocol.KindEvaluate:
		return s.handleEvaluate(ctx)
	case protocol.KindGetWeights:
		return s.handleGetWeights(ctx)
	case protocol.KindTrain:
		return s.handleTrain(ctx)
	case protocol.KindSendWeights:
		return s.handleSendWeights(ctx, msg.SendWeightsRequest.Tensors)
	default:
		// 未知或空指令静默忽略，保持向前兼容
		s.logger.Debug("ignoring unrecognized server message", zap.String("kind", kind))
		return nil
	}
}

func (s *session) handleHealthPing(ctx context.Context) error {
	if !s.healthCheck {
		s.logger.Debug("health check disabled, ping not answered")
		return nil
	}
	if err := s.enqueue(ctx, &protocol.ClientMessage{HealthPong: &protocol.HealthPong{}}); err != nil {
		return err
	}
	s.stats.update(types.SessionStats.IncrementHealthChecks)
	return nil
}

func (s *session) handleEvaluate(ctx context.Context) error {
	s.listener.OnEvaluateStarted()
	start := time.Now()

	metrics, err := s.ops.Evaluate(ctx)
	if err != nil {
		return s.operationFailed(ctx, "evaluate", err)
	}
	duration := time.Since(start)

	if err := s.enqueue(ctx, &protocol.ClientMessage{
		EvaluateResponse: &protocol.EvaluateResponse{Metrics: metrics},
	}); err != nil {
		return err
	}
	s.listener.OnEvaluateCompleted(metrics, duration)
	s.stats.update(types.SessionStats.IncrementEvaluateOps)
	return nil
}

func (s *session) handleTrain(ctx context.Context) error {
	s.listener.OnTrainStarted()
	start := time.Now()

	metrics, err := s.ops.Train(ctx)
	if err != nil {
		return s.operationFailed(ctx, "train", err)
	}
	duration := time.Since(start)

	if err := s.enqueue(ctx, &protocol.ClientMessage{
		TrainResponse: &protocol.TrainResponse{Metrics: metrics},
	}); err != nil {
		return err
	}
	s.listener.OnTrainCompleted(metrics, duration)
	s.stats.update(types.SessionStats.IncrementTrainOps)
	return nil
}

func (s *session) handleGetWeights(ctx context.Context) error {
	tensors, err := s.ops.GetWeights(ctx)
	if err != nil {
		return s.operationFailed(ctx, "getWeights", err)
	}

	wire := protocol.TensorsToWire(tensors)
	if err := s.enqueue(ctx, &protocol.ClientMessage{
		GetWeightsResponse: &protocol.GetWeightsResponse{Tensors: wire},
	}); err != nil {
		return err
	}
	s.listener.OnWeightsSent(len(wire))
	s.stats.update(types.SessionStats.IncrementWeightsSent)
	return nil
}

func (s *session) handleSendWeights(ctx context.Context, wire []protocol.WireTensor) error {
	tensors, err := protocol.TensorsFromWire(wire)
	if err != nil {
		// 解码失败是协议层问题，不按用户操作失败处理
		return err
	}

	if err := s.ops.SetWeights(ctx, tensors); err != nil {
		return s.operationFailed(ctx, "setWeights", err)
	}

	if err := s.enqueue(ctx, &protocol.ClientMessage{
		SendWeightsResponse: &protocol.SendWeightsResponse{Applied: int64(len(tensors))},
	}); err != nil {
		return err
	}
	s.listener.OnWeightsReceived(len(tensors))
	s.stats.update(types.SessionStats.IncrementWeightsReceived)
	return nil
}

// enqueue 把响应放入出站队列；队列满时等待写入器消化，
// 借此把背压传导回派发循环。
func (s *session) enqueue(ctx context.Context, msg *protocol.ClientMessage) error {
	select {
	case s.outbound <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// operationFailed 把用户操作失败包装成操作错误并上报；
// 取消引起的失败原样透传，交由重试控制器按取消收场。
func (s *session) operationFailed(ctx context.Context, operation string, cause error) error {
	if ctx.Err() != nil && (errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded)) {
		return cause
	}

	err := types.NewOperationError(operation, cause)
	s.logger.Error("model operation failed",
		zap.String("operation", operation),
		zap.Error(cause),
	)
	s.stats.update(types.SessionStats.IncrementErrors)
	s.listener.OnError(err)
	return err
}
