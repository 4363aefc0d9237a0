package service

import (
	"context"
	"errors"
	"fmt"
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

// ── 课次模块业务错误 ──

var (
	ErrSessionNotFound = errors.New("课次不存在")
	ErrSessionInactive = errors.New("课次已停用")
)

// ClassSessionService 课次业务接口
type ClassSessionService interface {
	// Create 新建临时课次，与当天已有课次及周时段做冲突检测
	Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest) (*dto.PageResponse[dto.SessionResponse], error)
	Deactivate(ctx context.Context, id string, callerID string) error
	// GenerateFromSlots 按学季内有效周时段展开为课次，可重复执行
	GenerateFromSlots(ctx context.Context, req *dto.GenerateSessionsRequest, callerID string) (*dto.GenerateSessionsResponse, error)
}

type classSessionService struct {
	repo     *repository.Repository
	lockWait time.Duration
	backoff  time.Duration
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewClassSessionService 创建 ClassSessionService 实例
func NewClassSessionService(repo *repository.Repository, lockWait, backoff time.Duration, m *metrics.Metrics, logger *zap.Logger) ClassSessionService {
	return &classSessionService{repo: repo, lockWait: lockWait, backoff: backoff, metrics: m, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *classSessionService) Create(ctx context.Context, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	date, err := clock.ParseDate(req.SessionDate)
	if err != nil {
		return nil, ErrInvalidDate
	}
	w, err := timewindow.ParseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, ErrInvalidTimeWindow
	}
	tolerance, err := resolveTolerance(ctx, s.repo, req.ToleranceMinutes)
	if err != nil {
		return nil, err
	}

	if req.TrimesterID != nil {
		trimester, err := requireTrimester(ctx, s.repo, *req.TrimesterID)
		if err != nil {
			return nil, err
		}
		if !trimester.Covers(date) {
			return nil, ErrDateOutOfTrimester
		}
	}
	if _, err := requireProfile(ctx, s.repo, req.InstructorID, model.RoleInstructor, ErrInstructorNotFound); err != nil {
		return nil, err
	}
	if _, err := requireCohort(ctx, s.repo, req.CohortID); err != nil {
		return nil, err
	}
	if err := requireClassroom(ctx, s.repo, req.ClassroomID); err != nil {
		return nil, err
	}

	session := &model.ClassSession{
		TrimesterID:      req.TrimesterID,
		InstructorID:     req.InstructorID,
		CohortID:         req.CohortID,
		Competence:       req.Competence,
		SessionDate:      date,
		StartTime:        w.Start.String(),
		EndTime:          w.End.String(),
		ClassroomID:      req.ClassroomID,
		ToleranceMinutes: tolerance,
		IsActive:         true,
	}
	session.CreatedBy = &callerID
	session.UpdatedBy = &callerID

	candidate, _ := BlockFromSession(session)
	keys, err := s.sessionLockKeys(ctx, candidate, date, req.TrimesterID)
	if err != nil {
		return nil, err
	}

	err = retryConcurrency(ctx, s.backoff, s.metrics, s.logger, "class_session.create", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Locker.LockKeys(ctx, s.lockWait, keys...); err != nil {
				return err
			}
			existing, err := s.dayBlocks(ctx, tx, date)
			if err != nil {
				return err
			}
			result := DetectConflicts(candidate, existing)
			if result.HasConflict() {
				return &ConflictError{Conflicts: result.Conflicts}
			}
			return tx.ClassSession.Create(ctx, session)
		})
	})
	if err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			for _, c := range ce.Conflicts {
				s.metrics.ScheduleConflict(c.Dimension)
			}
			s.logger.Info("课次冲突，拒绝创建",
				zap.String("session_date", formatDate(date)),
				zap.Int("conflicts", len(ce.Conflicts)))
			return nil, err
		}
		s.logger.Error("创建课次失败", zap.Error(err))
		return nil, err
	}

	return toSessionResponse(session), nil
}

// sessionLockKeys 日期键 + 学季星期键
// 未指定学季时取覆盖该日期的全部有效学季，保证与这些学季的周时段创建、批量生成互斥
func (s *classSessionService) sessionLockKeys(ctx context.Context, candidate Block, date time.Time, trimesterID *string) ([]string, error) {
	keys := conflictLockKeys(candidate, formatDate(date))

	var trimesterIDs []string
	if trimesterID != nil {
		trimesterIDs = []string{*trimesterID}
	} else {
		covering, err := s.repo.Trimester.ListActiveCovering(ctx, date)
		if err != nil {
			s.logger.Error("查询覆盖日期的学季失败", zap.Error(err))
			return nil, err
		}
		for i := range covering {
			trimesterIDs = append(trimesterIDs, covering[i].TrimesterID)
		}
	}
	for _, id := range trimesterIDs {
		keys = append(keys, conflictLockKeys(candidate, slotDayKey(id, candidate.DayOfWeek))...)
	}
	return keys, nil
}

// dayBlocks 当天已存在的课次 + 当天应上的周时段（已展开为课次的不重复计入）
func (s *classSessionService) dayBlocks(ctx context.Context, repo *repository.Repository, date time.Time) ([]Block, error) {
	sessions, err := repo.ClassSession.ListActiveByDate(ctx, date)
	if err != nil {
		s.logger.Error("查询当天课次失败", zap.Error(err))
		return nil, err
	}
	slots, err := repo.ScheduleSlot.ListActiveOnDate(ctx, date, timewindow.ISOWeekday(date))
	if err != nil {
		s.logger.Error("查询当天周时段失败", zap.Error(err))
		return nil, err
	}

	materialized := make(map[string]bool, len(sessions))
	blocks := make([]Block, 0, len(sessions)+len(slots))
	for i := range sessions {
		if sessions[i].SlotID != nil {
			materialized[*sessions[i].SlotID] = true
		}
		if b, err := BlockFromSession(&sessions[i]); err == nil {
			blocks = append(blocks, b)
		}
	}
	for i := range slots {
		if materialized[slots[i].SlotID] {
			continue
		}
		if b, err := BlockFromSlot(&slots[i]); err == nil {
			blocks = append(blocks, b)
		}
	}
	return blocks, nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *classSessionService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.repo.ClassSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSessionResponse(session), nil
}

func (s *classSessionService) List(ctx context.Context, req *dto.SessionListRequest) (*dto.PageResponse[dto.SessionResponse], error) {
	filter := repository.ClassSessionFilter{
		CohortID:     req.CohortID,
		InstructorID: req.InstructorID,
		Offset:       req.GetOffset(),
		Limit:        req.GetPageSize(),
	}
	if req.From != "" {
		from, err := clock.ParseDate(req.From)
		if err != nil {
			return nil, ErrInvalidDate
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := clock.ParseDate(req.To)
		if err != nil {
			return nil, ErrInvalidDate
		}
		filter.To = &to
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, ErrInvalidDateRange
	}

	sessions, total, err := s.repo.ClassSession.List(ctx, filter)
	if err != nil {
		s.logger.Error("列出课次失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, *toSessionResponse(&sessions[i]))
	}
	return &dto.PageResponse[dto.SessionResponse]{
		Items:    items,
		Total:    total,
		Page:     req.GetPage(),
		PageSize: req.GetPageSize(),
	}, nil
}

// ────────────────────── Deactivate ──────────────────────

// Deactivate 逻辑停用；已有考勤记录保留
func (s *classSessionService) Deactivate(ctx context.Context, id string, callerID string) error {
	session, err := s.repo.ClassSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if !session.IsActive {
		return nil
	}

	session.UpdatedBy = &callerID
	if err := s.repo.ClassSession.Deactivate(ctx, session); err != nil {
		s.logger.Error("停用课次失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── GenerateFromSlots ──────────────────────

func (s *classSessionService) GenerateFromSlots(ctx context.Context, req *dto.GenerateSessionsRequest, callerID string) (*dto.GenerateSessionsResponse, error) {
	trimester, err := requireTrimester(ctx, s.repo, req.TrimesterID)
	if err != nil {
		return nil, err
	}
	from, to, err := parseDateRange(req.From, req.To, 0)
	if err != nil {
		return nil, err
	}

	// 裁剪到学季范围
	start := clock.TruncateDate(trimester.StartDate)
	end := clock.TruncateDate(trimester.EndDate)
	if from.Before(start) {
		from = start
	}
	if to.After(end) {
		to = end
	}
	resp := &dto.GenerateSessionsResponse{From: formatDate(from), To: formatDate(to), Conflicts: []dto.GenerateConflict{}}
	if from.After(to) {
		return resp, nil
	}

	slots, err := s.repo.ScheduleSlot.List(ctx, repository.ScheduleSlotFilter{TrimesterID: trimester.TrimesterID})
	if err != nil {
		s.logger.Error("查询学季周时段失败", zap.Error(err))
		return nil, err
	}

	// 与周时段创建、临时课次创建使用同一组学季星期键
	var keys []string
	for i := range slots {
		b, err := BlockFromSlot(&slots[i])
		if err != nil {
			continue
		}
		keys = append(keys, conflictLockKeys(b, slotDayKey(slots[i].TrimesterID, slots[i].DayOfWeek))...)
	}

	var plan generationPlan
	err = retryConcurrency(ctx, s.backoff, s.metrics, s.logger, "class_session.generate", func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			if err := tx.Locker.LockKeys(ctx, s.lockWait, keys...); err != nil {
				return err
			}
			existing, err := tx.ClassSession.ListActiveByRange(ctx, from, to)
			if err != nil {
				return err
			}
			plan = planGeneration(slots, existing, from, to, callerID)
			plan.created, err = tx.ClassSession.InsertGenerated(ctx, plan.batch)
			return err
		})
	})
	if err != nil {
		s.logger.Error("批量生成课次失败", zap.Error(err))
		return nil, err
	}

	resp.Candidates = plan.candidates
	resp.Created = plan.created
	resp.Skipped = plan.materialized + int64(len(plan.batch)) - plan.created
	resp.Conflicted = len(plan.conflicts)
	resp.Conflicts = plan.conflicts
	for _, gc := range plan.conflicts {
		for _, c := range gc.Conflicts {
			s.metrics.ScheduleConflict(c.Dimension)
		}
	}

	s.logger.Info("按周时段生成课次",
		zap.String("trimester_id", trimester.TrimesterID),
		zap.String("from", resp.From),
		zap.String("to", resp.To),
		zap.Int64("created", resp.Created),
		zap.Int64("skipped", resp.Skipped),
		zap.Int("conflicted", resp.Conflicted))
	return resp, nil
}

type generationPlan struct {
	candidates   int
	materialized int64
	batch        []model.ClassSession
	conflicts    []dto.GenerateConflict
	created      int64
}

// planGeneration 逐日展开周时段：已展开的 (slot, date) 跳过；
// 与当天已有课次或本批已接受的候选冲突的不生成，逐项记录
func planGeneration(slots []model.ScheduleSlot, existing []model.ClassSession, from, to time.Time, callerID string) generationPlan {
	plan := generationPlan{conflicts: []dto.GenerateConflict{}}

	byDate := make(map[string][]Block)
	materialized := make(map[string]bool, len(existing))
	for i := range existing {
		day := formatDate(existing[i].SessionDate)
		if existing[i].SlotID != nil {
			materialized[*existing[i].SlotID+"@"+day] = true
		}
		if b, err := BlockFromSession(&existing[i]); err == nil {
			byDate[day] = append(byDate[day], b)
		}
	}

	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day := formatDate(d)
		dow := timewindow.ISOWeekday(d)
		for i := range slots {
			slot := &slots[i]
			if slot.DayOfWeek != dow {
				continue
			}
			plan.candidates++
			if materialized[slot.SlotID+"@"+day] {
				plan.materialized++
				continue
			}

			sess := model.ClassSession{
				SlotID:           &slot.SlotID,
				TrimesterID:      &slot.TrimesterID,
				InstructorID:     slot.InstructorID,
				CohortID:         slot.CohortID,
				Competence:       slot.Competence,
				SessionDate:      d,
				StartTime:        wallString(slot.StartTime),
				EndTime:          wallString(slot.EndTime),
				ClassroomID:      slot.ClassroomID,
				ToleranceMinutes: slot.ToleranceMinutes,
				IsActive:         true,
			}
			candidate, err := BlockFromSession(&sess)
			if err != nil {
				continue
			}
			candidate.ID = slot.SlotID
			candidate.Kind = blockKindSlot

			if result := DetectConflicts(candidate, byDate[day]); result.HasConflict() {
				plan.conflicts = append(plan.conflicts, dto.GenerateConflict{
					SlotID:      slot.SlotID,
					SessionDate: day,
					Conflicts:   result.Conflicts,
				})
				continue
			}

			sess.CreatedBy = &callerID
			sess.UpdatedBy = &callerID
			plan.batch = append(plan.batch, sess)
			byDate[day] = append(byDate[day], candidate)
		}
	}
	return plan
}

// ── 辅助函数 ──

// slotDayKey 周时段冲突锁的日键：学季 + 星期
func slotDayKey(trimesterID string, dow int) string {
	return fmt.Sprintf("%s:%d", trimesterID, dow)
}

func toSessionResponse(s *model.ClassSession) *dto.SessionResponse {
	return &dto.SessionResponse{
		ID:               s.SessionID,
		SlotID:           s.SlotID,
		TrimesterID:      s.TrimesterID,
		InstructorID:     s.InstructorID,
		CohortID:         s.CohortID,
		Competence:       s.Competence,
		SessionDate:      formatDate(s.SessionDate),
		StartTime:        wallString(s.StartTime),
		EndTime:          wallString(s.EndTime),
		ClassroomID:      s.ClassroomID,
		ToleranceMinutes: s.ToleranceMinutes,
		IsActive:         s.IsActive,
		Version:          s.Version,
	}
}
