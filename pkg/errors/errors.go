package errors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrConcurrencyConflict 并发冲突：锁等待超时、可串行化事务失败或死锁
	ErrConcurrencyConflict = errors.New("资源正被其他请求占用，请稍后重试")

	// ErrDuplicate 唯一约束冲突
	ErrDuplicate = errors.New("记录已存在")
)

// PostgreSQL SQLSTATE
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// TranslateDBError 将驱动层错误归一为领域可识别的错误
// 无法识别的错误原样返回
func TranslateDBError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
		return errors.Join(ErrConcurrencyConflict, err)
	case pgUniqueViolation:
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}

// IsConcurrencyConflict 判断是否为可重试的并发冲突
func IsConcurrencyConflict(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
