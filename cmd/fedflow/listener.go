package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/client"
	"github.com/BaSui01/fedflow/types"
)

// =============================================================================
// 🎧 会话日志监听器
// =============================================================================

// sessionLogListener 把会话回调写成结构化日志，供 run 子命令观察会话进展。
// 回调在会话任务内同步执行，只做日志记录。
type sessionLogListener struct {
	client.BaseListener
	logger *zap.Logger
}

func newSessionLogListener(logger *zap.Logger) *sessionLogListener {
	return &sessionLogListener{logger: logger.With(zap.String("component", "session"))}
}

func (l *sessionLogListener) OnStateChanged(old, new types.ConnectionState) {
	l.logger.Info("state changed",
		zap.Stringer("from", old),
		zap.Stringer("to", new),
	)
}

func (l *sessionLogListener) OnConnectionAttempt(attempt, maxAttempts int) {
	l.logger.Info("connecting to coordinator",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", maxAttempts),
	)
}

func (l *sessionLogListener) OnDisconnected(graceful bool, cause error) {
	if graceful {
		l.logger.Info("session ended", zap.Error(cause))
		return
	}
	l.logger.Warn("session ended with failure", zap.Error(cause))
}

func (l *sessionLogListener) OnTrainCompleted(metrics map[string]float64, d time.Duration) {
	fields := []zap.Field{zap.Duration("duration", d)}
	for k, v := range metrics {
		fields = append(fields, zap.Float64(k, v))
	}
	l.logger.Info("train round completed", fields...)
}

func (l *sessionLogListener) OnEvaluateCompleted(metrics map[string]float64, d time.Duration) {
	fields := []zap.Field{zap.Duration("duration", d)}
	for k, v := range metrics {
		fields = append(fields, zap.Float64(k, v))
	}
	l.logger.Info("evaluation completed", fields...)
}

func (l *sessionLogListener) OnWeightsSent(count int) {
	l.logger.Info("weights uploaded", zap.Int("tensors", count))
}

func (l *sessionLogListener) OnWeightsReceived(count int) {
	l.logger.Info("weights applied", zap.Int("tensors", count))
}

func (l *sessionLogListener) OnError(err error) {
	l.logger.Warn("session error", zap.Error(err))
}
