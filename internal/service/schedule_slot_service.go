package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/metrics"
	"ficha-attendance/backend/pkg/timewindow"
)

// ── 周时段模块业务错误 ──

var (
	ErrSlotNotFound = errors.New("周时段不存在")
)

// ScheduleSlotService 周排课时段业务接口
type ScheduleSlotService interface {
	// CheckConflict 冲突预检，无副作用
	CheckConflict(ctx context.Context, req *dto.ScheduleSlotRequest) (*dto.ConflictCheckResponse, error)
	Create(ctx context.Context, req *dto.ScheduleSlotRequest, callerID string) (*dto.ScheduleSlotResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ScheduleSlotResponse, error)
	List(ctx context.Context, req *dto.ScheduleSlotListRequest) ([]dto.ScheduleSlotResponse, error)
	Deactivate(ctx context.Context, id string, callerID string) error
}

type scheduleSlotService struct {
	repo     *repository.Repository
	lockWait time.Duration
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewScheduleSlotService 创建 ScheduleSlotService 实例
func NewScheduleSlotService(repo *repository.Repository, lockWait, backoff time.Duration, m *metrics.Metrics, logger *zap.Logger) ScheduleSlotService {
	return &scheduleSlotService{repo: repo, lockWait: lockWait, backoff: backoff, metrics: m, logger: logger}
}

// ────────────────────── CheckConflict ──────────────────────

func (s *scheduleSlotService) CheckConflict(ctx context.Context, req *dto.ScheduleSlotRequest) (*dto.ConflictCheckResponse, error) {
	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := s.detect(ctx, s.repo, slot)
	if err != nil {
		return nil, err
	}

	return &dto.ConflictCheckResponse{
		HasConflict: result.HasConflict(),
		Conflicts:   result.Conflicts,
	}, nil
}

// ────────────────────── Create ──────────────────────

func (s *scheduleSlotService) Create(ctx context.Context, req *dto.ScheduleSlotRequest, callerID string) (*dto.ScheduleSlotResponse, error) {
	slot, err := s.buildSlot(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.validateRefs(ctx, slot); err != nil {
		return nil, err
	}
	slot.CreatedBy = &callerID
	slot.UpdatedBy = &callerID

	candidate, err := BlockFromSlot(slot)
	if err != nil {
		return nil, ErrInvalidTimeWindow
	}
	dayKey := slotDayKey(slot.TrimesterID, slot.DayOfWeek)

	// 加锁 → 在事务视图内重新检测 → 插入；锁等待超时整体重试一次
	err = retryConcurrency(ctx, s.backoff, s.metrics, s.logger, "schedule_slot.create", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Locker.LockKeys(ctx, s.lockWait, conflictLockKeys(candidate, dayKey)...); err != nil {
				return err
			}
			result, err := s.detect(ctx, tx, slot)
			if err != nil {
				return err
			}
			if result.HasConflict() {
				return &ConflictError{Conflicts: result.Conflicts}
			}
			return tx.ScheduleSlot.Create(ctx, slot)
		})
	})
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			s.recordConflicts(ce.Conflicts)
			s.logger.Info("周时段冲突，拒绝创建",
				zap.String("trimester_id", slot.TrimesterID),
				zap.Int("day_of_week", slot.DayOfWeek),
				zap.Int("conflicts", len(ce.Conflicts)))
			return nil, err
		}
		s.logger.Error("创建周时段失败", zap.Error(err))
		return nil, err
	}

	return toSlotResponse(slot), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *scheduleSlotService) GetByID(ctx context.Context, id string) (*dto.ScheduleSlotResponse, error) {
	slot, err := s.repo.ScheduleSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询周时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSlotResponse(slot), nil
}

func (s *scheduleSlotService) List(ctx context.Context, req *dto.ScheduleSlotListRequest) ([]dto.ScheduleSlotResponse, error) {
	slots, err := s.repo.ScheduleSlot.List(ctx, repository.ScheduleSlotFilter{
		TrimesterID:  req.TrimesterID,
		CohortID:     req.CohortID,
		InstructorID: req.InstructorID,
	})
	if err != nil {
		s.logger.Error("列出周时段失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.ScheduleSlotResponse, 0, len(slots))
	for i := range slots {
		result = append(result, *toSlotResponse(&slots[i]))
	}
	return result, nil
}

// ────────────────────── Deactivate ──────────────────────

// Deactivate 逻辑停用；已生成的课次与考勤记录保持不变
func (s *scheduleSlotService) Deactivate(ctx context.Context, id string, callerID string) error {
	slot, err := s.repo.ScheduleSlot.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		s.logger.Error("查询周时段失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if !slot.IsActive {
		return nil
	}

	slot.UpdatedBy = &callerID
	if err := s.repo.ScheduleSlot.Deactivate(ctx, slot); err != nil {
		s.logger.Error("停用周时段失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助函数 ──

func (s *scheduleSlotService) buildSlot(ctx context.Context, req *dto.ScheduleSlotRequest) (*model.ScheduleSlot, error) {
	if err := timewindow.ValidateWeekday(req.DayOfWeek); err != nil {
		return nil, ErrInvalidDayOfWeek
	}
	w, err := timewindow.ParseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, ErrInvalidTimeWindow
	}

	tolerance, err := resolveTolerance(ctx, s.repo, req.ToleranceMinutes)
	if err != nil {
		return nil, err
	}

	return &model.ScheduleSlot{
		TrimesterID:      req.TrimesterID,
		DayOfWeek:        req.DayOfWeek,
		StartTime:        w.Start.String(),
		EndTime:          w.End.String(),
		Competence:       req.Competence,
		InstructorID:     req.InstructorID,
		CohortID:         req.CohortID,
		ClassroomID:      req.ClassroomID,
		ToleranceMinutes: tolerance,
		IsActive:         true,
	}, nil
}

func (s *scheduleSlotService) validateRefs(ctx context.Context, slot *model.ScheduleSlot) error {
	if _, err := requireTrimester(ctx, s.repo, slot.TrimesterID); err != nil {
		return err
	}
	if _, err := requireProfile(ctx, s.repo, slot.InstructorID, model.RoleInstructor, ErrInstructorNotFound); err != nil {
		return err
	}
	if _, err := requireCohort(ctx, s.repo, slot.CohortID); err != nil {
		return err
	}
	return requireClassroom(ctx, s.repo, slot.ClassroomID)
}

// detect 与同学季同星期的有效周时段比较，另外计入学季内落在该星期、
// 且不属于任何有效周时段的课次（临时课次、已停用时段留下的课次）
func (s *scheduleSlotService) detect(ctx context.Context, repo *repository.Repository, slot *model.ScheduleSlot) (ConflictResult, error) {
	candidate, err := BlockFromSlot(slot)
	if err != nil {
		return ConflictResult{}, ErrInvalidTimeWindow
	}

	existing, err := repo.ScheduleSlot.ListActiveByTrimesterAndDay(ctx, slot.TrimesterID, slot.DayOfWeek)
	if err != nil {
		s.logger.Error("查询已有周时段失败", zap.Error(err))
		return ConflictResult{}, err
	}
	trimester, err := requireTrimester(ctx, repo, slot.TrimesterID)
	if err != nil {
		return ConflictResult{}, err
	}
	sessions, err := repo.ClassSession.ListActiveByRange(ctx, clock.TruncateDate(trimester.StartDate), clock.TruncateDate(trimester.EndDate))
	if err != nil {
		s.logger.Error("查询学季内课次失败", zap.Error(err))
		return ConflictResult{}, err
	}

	activeSlots := make(map[string]bool, len(existing))
	blocks := make([]Block, 0, len(existing))
	for i := range existing {
		activeSlots[existing[i].SlotID] = true
		b, err := BlockFromSlot(&existing[i])
		if err != nil {
			s.logger.Warn("跳过时间段无效的周时段", zap.String("slot_id", existing[i].SlotID), zap.Error(err))
			continue
		}
		blocks = append(blocks, b)
	}
	for i := range sessions {
		sess := &sessions[i]
		if timewindow.ISOWeekday(sess.SessionDate) != slot.DayOfWeek {
			continue
		}
		if sess.SlotID != nil && activeSlots[*sess.SlotID] {
			continue
		}
		b, err := BlockFromSession(sess)
		if err != nil {
			continue
		}
		blocks = append(blocks, b)
	}
	return DetectConflicts(candidate, blocks), nil
}

func (s *scheduleSlotService) recordConflicts(conflicts []dto.ScheduleConflict) {
	for _, c := range conflicts {
		s.metrics.ScheduleConflict(c.Dimension)
	}
}

func toSlotResponse(s *model.ScheduleSlot) *dto.ScheduleSlotResponse {
	return &dto.ScheduleSlotResponse{
		ID:               s.SlotID,
		TrimesterID:      s.TrimesterID,
		DayOfWeek:        s.DayOfWeek,
		StartTime:        wallString(s.StartTime),
		EndTime:          wallString(s.EndTime),
		Competence:       s.Competence,
		InstructorID:     s.InstructorID,
		CohortID:         s.CohortID,
		ClassroomID:      s.ClassroomID,
		ToleranceMinutes: s.ToleranceMinutes,
		IsActive:         s.IsActive,
		Version:          s.Version,
	}
}

// wallString 将数据库 time 列（08:00:00）统一输出为 08:00
func wallString(raw string) string {
	wt, err := timewindow.ParseWallTime(raw)
	if err != nil {
		return raw
	}
	return wt.String()
}
