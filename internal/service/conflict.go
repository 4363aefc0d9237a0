package service

import (
	"fmt"
	"sort"
	"time"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/pkg/timewindow"
)

// 冲突维度
const (
	DimensionInstructorBusy    = "INSTRUCTOR_BUSY"
	DimensionClassroomOccupied = "CLASSROOM_OCCUPIED"
	DimensionFichaBusy         = "FICHA_BUSY"
)

const (
	blockKindSlot    = "slot"
	blockKindSession = "session"
)

// Block 周时段与具体课次的公共投影
// Date 为空表示按星期循环；非空表示具体日期（DayOfWeek 由日期推出）
type Block struct {
	ID           string
	Kind         string
	DayOfWeek    int
	Date         *time.Time
	Window       timewindow.Window
	InstructorID string
	CohortID     string
	ClassroomID  *string
	Competence   string
}

// BlockFromSlot 周时段投影
func BlockFromSlot(s *model.ScheduleSlot) (Block, error) {
	w, err := s.Window()
	if err != nil {
		return Block{}, err
	}
	return Block{
		ID:           s.SlotID,
		Kind:         blockKindSlot,
		DayOfWeek:    s.DayOfWeek,
		Window:       w,
		InstructorID: s.InstructorID,
		CohortID:     s.CohortID,
		ClassroomID:  s.ClassroomID,
		Competence:   s.Competence,
	}, nil
}

// BlockFromSession 课次投影
func BlockFromSession(s *model.ClassSession) (Block, error) {
	w, err := s.Window()
	if err != nil {
		return Block{}, err
	}
	date := s.SessionDate
	return Block{
		ID:           s.SessionID,
		Kind:         blockKindSession,
		DayOfWeek:    timewindow.ISOWeekday(date),
		Date:         &date,
		Window:       w,
		InstructorID: s.InstructorID,
		CohortID:     s.CohortID,
		ClassroomID:  s.ClassroomID,
		Competence:   s.Competence,
	}, nil
}

// sameDay 两个都带日期时比较日期，否则比较星期
func (b Block) sameDay(other Block) bool {
	if b.Date != nil && other.Date != nil {
		return b.Date.Format("2006-01-02") == other.Date.Format("2006-01-02")
	}
	return b.DayOfWeek == other.DayOfWeek
}

func (b Block) summary() dto.BlockSummary {
	s := dto.BlockSummary{
		ID:           b.ID,
		Kind:         b.Kind,
		DayOfWeek:    b.DayOfWeek,
		StartTime:    b.Window.Start.String(),
		EndTime:      b.Window.End.String(),
		InstructorID: b.InstructorID,
		ClassroomID:  b.ClassroomID,
		CohortID:     b.CohortID,
		Competence:   b.Competence,
	}
	if b.Date != nil {
		s.Date = b.Date.Format("2006-01-02")
	}
	return s
}

// ConflictResult 检测结果，Conflicts 为空即无冲突
type ConflictResult struct {
	Conflicts []dto.ScheduleConflict
}

// HasConflict 是否存在冲突
func (r ConflictResult) HasConflict() bool { return len(r.Conflicts) > 0 }

// DetectConflicts 纯函数：候选块与已有块逐一比较，三个维度独立上报
// 与候选同 ID 的已有块跳过；背靠背（一个的结束等于另一个的开始）不算重叠
func DetectConflicts(candidate Block, existing []Block) ConflictResult {
	result := ConflictResult{Conflicts: []dto.ScheduleConflict{}}
	for _, e := range existing {
		if e.ID != "" && e.ID == candidate.ID {
			continue
		}
		if !candidate.sameDay(e) || !candidate.Window.Overlaps(e.Window) {
			continue
		}
		if candidate.InstructorID == e.InstructorID {
			result.Conflicts = append(result.Conflicts, dto.ScheduleConflict{Dimension: DimensionInstructorBusy, ExistingSlotSummary: e.summary()})
		}
		if candidate.ClassroomID != nil && e.ClassroomID != nil && *candidate.ClassroomID == *e.ClassroomID {
			result.Conflicts = append(result.Conflicts, dto.ScheduleConflict{Dimension: DimensionClassroomOccupied, ExistingSlotSummary: e.summary()})
		}
		if candidate.CohortID == e.CohortID {
			result.Conflicts = append(result.Conflicts, dto.ScheduleConflict{Dimension: DimensionFichaBusy, ExistingSlotSummary: e.summary()})
		}
	}
	sort.SliceStable(result.Conflicts, func(i, j int) bool {
		a, b := result.Conflicts[i], result.Conflicts[j]
		if a.ExistingSlotSummary.StartTime != b.ExistingSlotSummary.StartTime {
			return a.ExistingSlotSummary.StartTime < b.ExistingSlotSummary.StartTime
		}
		return a.ExistingSlotSummary.ID < b.ExistingSlotSummary.ID
	})
	return result
}

// ConflictError 排课冲突，携带逐项明细
type ConflictError struct {
	Conflicts []dto.ScheduleConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("排课冲突: %d 项", len(e.Conflicts))
}

// conflictLockKeys 冲突检测的互斥键空间：{讲师, 教室, ficha} × 日键
func conflictLockKeys(b Block, dayKey string) []string {
	keys := []string{
		"schedule:instructor:" + b.InstructorID + ":" + dayKey,
		"schedule:cohort:" + b.CohortID + ":" + dayKey,
	}
	if b.ClassroomID != nil {
		keys = append(keys, "schedule:classroom:"+*b.ClassroomID+":"+dayKey)
	}
	return keys
}
