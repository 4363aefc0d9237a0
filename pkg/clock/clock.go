// Package clock 提供可注入的“当前时间”能力与机构时区归一化。
//
// 业务组件不直接调用 time.Now()，而是依赖 Clock 接口；测试中注入 Fixed。
package clock

import (
	"sync"
	"time"
)

// Clock 当前时间来源
type Clock interface {
	Now() time.Time
}

// System 使用系统时钟
type System struct{}

// Now 返回系统当前时间
func (System) Now() time.Time { return time.Now() }

// Fixed 固定时钟，可手动推进，并发安全
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed 创建固定在 t 的时钟
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now 返回当前设定时间
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set 重设时间
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

// Advance 推进一段时长
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}
