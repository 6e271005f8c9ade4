package client

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/fedflow/config"
	"github.com/BaSui01/fedflow/types"
)

// runWithRetry 以退避重试包裹连接尝试，一次 Run 调用恰好执行一轮。
// 只有可恢复的连接错误会被重试；取消、服务端错误、协议错误与
// 操作错误立即以终态错误收场。
func (c *Client) runWithRetry(ctx context.Context) error {
	maxRetries := c.cfg.MaxRetries
	var lastErr error

	attempt := 0
	for attempt <= maxRetries && !c.stopRequested.Load() {
		if ctx.Err() != nil {
			return c.finishCancelled(ctx)
		}

		attempt++
		c.stats.update(types.SessionStats.IncrementConnectionAttempts)
		c.listener.OnConnectionAttempt(attempt, maxRetries+1)

		err := c.runSession(ctx)
		if err == nil {
			c.logger.Info("session ended gracefully", zap.Int("attempts", attempt))
			c.listener.OnDisconnected(true, nil)
			return nil
		}

		if ctx.Err() != nil {
			return c.finishCancelled(ctx)
		}

		err = classifySessionError(err)
		if !types.IsRecoverable(err) {
			// OperationError 在派发处已经上报过，这里不重复通知
			if types.GetErrorCode(err) != types.ErrOperation {
				c.reportError(err)
			}
			c.logger.Warn("session failed with fatal error", zap.Error(err))
			c.listener.OnDisconnected(false, err)
			return err
		}

		lastErr = err
		c.reportError(err)

		if attempt <= maxRetries && !c.stopRequested.Load() {
			delay := backoffDelay(c.cfg, attempt-1)
			c.logger.Info("connection attempt failed, backing off",
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxRetries+1),
				zap.Duration("delay", delay),
				zap.Error(err),
			)
			// 退避休眠只被强制取消打断，协同停止等它自然结束
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return c.finishCancelled(ctx)
			case <-timer.C:
			}
		}
	}

	if lastErr == nil {
		// 停止请求抢在首次尝试之前，视作正常结束
		c.listener.OnDisconnected(true, nil)
		return nil
	}

	c.logger.Error("all connection attempts exhausted",
		zap.Int("attempts", attempt),
		zap.Error(lastErr),
	)
	c.listener.OnDisconnected(false, lastErr)
	return lastErr
}

// finishCancelled 把上下文取消折算成会话取消错误并通知监听器。
func (c *Client) finishCancelled(ctx context.Context) error {
	cancelErr := cancellationCause(ctx)
	c.logger.Info("session cancelled", zap.String("reason", cancelErr.Reason))
	c.listener.OnDisconnected(true, cancelErr)
	return cancelErr
}

// reportError 统一的故障上报：计数 + 监听器通知。
func (c *Client) reportError(err error) {
	c.stats.update(types.SessionStats.IncrementErrors)
	c.listener.OnError(err)
}

// classifySessionError 把非分类错误折叠成不可重试的操作错误。
func classifySessionError(err error) error {
	var terr *types.Error
	if errors.As(err, &terr) {
		return terr
	}
	return types.NewOperationError("session", err)
}

// cancellationCause 提取 Cancel 附带的取消错误；
// 外部 context 取消时合成一个非优雅的取消错误。
func cancellationCause(ctx context.Context) *types.Error {
	if cause := context.Cause(ctx); cause != nil {
		var terr *types.Error
		if errors.As(cause, &terr) && terr.Code == types.ErrCancelled {
			return terr
		}
	}
	return types.NewCancellationError("context cancelled", false)
}

// backoffDelay 计算第 attempt 次失败后的等待时长，attempt 从 0 起计。
// 指数模式按 2 的幂放大并封顶在 MaxRetryDelay，线性模式恒为 RetryDelay。
func backoffDelay(cfg config.ClientConfig, attempt int) time.Duration {
	if !cfg.UseExponentialBackoff {
		return cfg.RetryDelay
	}
	delay := cfg.RetryDelay << uint(attempt)
	// 溢出（为零或变负）说明早已越过上限
	if delay <= 0 || delay > cfg.MaxRetryDelay {
		return cfg.MaxRetryDelay
	}
	return delay
}
