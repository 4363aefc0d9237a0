package clock

import (
	"fmt"
	"time"

	"ficha-attendance/backend/pkg/timewindow"
)

// LocalMoment 机构时区下的日历日期 + 挂钟时刻
type LocalMoment struct {
	Date time.Time           // 日历日期，统一表示为 UTC 00:00
	Time timewindow.WallTime // 当天挂钟时刻
}

// Normalizer 机构时区归一化器
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer 按 IANA 时区名创建归一化器
func NewNormalizer(tz string) (*Normalizer, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", tz, err)
	}
	return &Normalizer{loc: loc}, nil
}

// Location 机构时区
func (n *Normalizer) Location() *time.Location { return n.loc }

// Normalize 将任意时间戳转为机构本地日期与挂钟时刻（秒被截断）
func (n *Normalizer) Normalize(ts time.Time) LocalMoment {
	local := ts.In(n.loc)
	return LocalMoment{
		Date: DateOf(local.Year(), local.Month(), local.Day()),
		Time: timewindow.WallTime(local.Hour()*60 + local.Minute()),
	}
}

// Combine 将日历日期与本地挂钟时刻合成为绝对时间
func (n *Normalizer) Combine(date time.Time, wt timewindow.WallTime) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), wt.Hour(), wt.Minute(), 0, 0, n.loc)
}

// DateOf 构造只含日期的值（UTC 00:00），与 PostgreSQL date 列的扫描结果一致
func DateOf(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TruncateDate 取时间值的年月日部分（按其自身时区）
func TruncateDate(t time.Time) time.Time {
	return DateOf(t.Year(), t.Month(), t.Day())
}

// ParseDate 解析 "2006-01-02"
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateDate(t), nil
}
