package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	pkgerrors "ficha-attendance/backend/pkg/errors"
	"ficha-attendance/backend/pkg/metrics"
)

// retryConcurrency 执行 attempt，遇到并发冲突时退避后整体重试一次
// 重试仍冲突则统一返回 ErrConcurrencyConflict；其余错误原样返回
func retryConcurrency(ctx context.Context, backoff time.Duration, m *metrics.Metrics, logger *zap.Logger, op string, attempt func() error) error {
	err := attempt()
	if !pkgerrors.IsConcurrencyConflict(err) {
		return err
	}

	m.ConcurrencyRetry()
	logger.Warn("并发冲突，退避后重试", zap.String("op", op), zap.Error(err))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	if err = attempt(); pkgerrors.IsConcurrencyConflict(err) {
		logger.Error("重试后仍冲突", zap.String("op", op), zap.Error(err))
		return pkgerrors.ErrConcurrencyConflict
	}
	return err
}
