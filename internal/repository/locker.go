package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
)

// Locker 事务级互斥锁
type Locker interface {
	// LockKeys 在当前事务内按字典序依次获取 keys 对应的锁，事务结束自动释放
	// 超过 timeout 未拿到锁时返回 SQLSTATE 55P03
	LockKeys(ctx context.Context, timeout time.Duration, keys ...string) error
}

type advisoryLocker struct {
	db *gorm.DB
}

// NewAdvisoryLocker 基于 pg_advisory_xact_lock 的 Locker
// 必须在事务内使用，否则锁会在语句结束后立即释放
func NewAdvisoryLocker(db *gorm.DB) Locker {
	return &advisoryLocker{db: db}
}

func (l *advisoryLocker) LockKeys(ctx context.Context, timeout time.Duration, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	db := l.db.WithContext(ctx)
	if timeout > 0 {
		// SET 不支持参数占位符
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	var prev string
	for i, key := range sorted {
		if i > 0 && key == prev {
			continue
		}
		prev = key
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", key).Error; err != nil {
			return err
		}
	}
	return nil
}
