// Package keylock 进程内按 key 互斥的锁表。
//
// 同一 key 的持有者互斥，不同 key 完全并行，不存在全局锁。
// 获取支持 context 取消与超时；无人持有或等待的 key 会被回收。
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrLockTimeout 在限定时间内未获得锁
var ErrLockTimeout = errors.New("等待锁超时")

type entry struct {
	sem  *semaphore.Weighted
	refs int // 持有者 + 等待者
}

// Table key → 权重为 1 的信号量
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
	wait    time.Duration
}

// New 创建锁表，wait 为单次获取的最长等待时间（<=0 表示仅受 ctx 约束）
func New(wait time.Duration) *Table {
	return &Table{entries: make(map[string]*entry), wait: wait}
}

// Lock 获取 key 的独占锁，返回释放函数
func (t *Table) Lock(ctx context.Context, key string) (func(), error) {
	t.mu.Lock()
	e, ok := t.entries[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		t.entries[key] = e
	}
	e.refs++
	t.mu.Unlock()

	acquireCtx := ctx
	if t.wait > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, t.wait)
		defer cancel()
	}

	if err := e.sem.Acquire(acquireCtx, 1); err != nil {
		t.release(key, e, false)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { t.release(key, e, true) })
	}, nil
}

func (t *Table) release(key string, e *entry, held bool) {
	if held {
		e.sem.Release(1)
	}
	t.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(t.entries, key)
	}
	t.mu.Unlock()
}

// Len 当前被持有或等待的 key 数量
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
