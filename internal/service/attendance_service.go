package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
)

// ── 考勤模块业务错误 ──

var (
	ErrLearnerNotInCohort = errors.New("学员不在该课次所属 ficha 名单中")
)

// AttendanceService 考勤查询、人工标记与缺勤补录
type AttendanceService interface {
	MarkManual(ctx context.Context, sessionID, learnerID string, req *dto.ManualMarkRequest, callerID string) (*dto.AttendanceRecordResponse, error)
	// ListBySession 先补齐默认缺勤，再返回该课次全部记录
	ListBySession(ctx context.Context, sessionID string) (*dto.SessionAttendanceResponse, error)
	ListByCohort(ctx context.Context, cohortID string, req *dto.DateRangeRequest) ([]dto.AttendanceRecordResponse, error)
	// Sweep 为今天已开始的有效课次补齐默认缺勤
	Sweep(ctx context.Context, now time.Time) (*dto.SweepResult, error)
}

type attendanceService struct {
	repo         *repository.Repository
	store        AttendanceStore
	norm         *clock.Normalizer
	maxRangeDays int
	logger       *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(
	repo *repository.Repository,
	store AttendanceStore,
	norm *clock.Normalizer,
	maxRangeDays int,
	logger *zap.Logger,
) AttendanceService {
	return &attendanceService{repo: repo, store: store, norm: norm, maxRangeDays: maxRangeDays, logger: logger}
}

// ────────────────────── MarkManual ──────────────────────

func (s *attendanceService) MarkManual(ctx context.Context, sessionID, learnerID string, req *dto.ManualMarkRequest, callerID string) (*dto.AttendanceRecordResponse, error) {
	status, err := model.ParseAttendanceStatus(req.Status)
	if err != nil {
		return nil, ErrInvalidStatus
	}

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	enrolled, err := s.repo.Cohort.IsEnrolled(ctx, session.CohortID, learnerID)
	if err != nil {
		s.logger.Error("查询在册名单失败", zap.Error(err))
		return nil, err
	}
	if !enrolled {
		return nil, ErrLearnerNotInCohort
	}

	rec, err := s.store.SetManual(ctx, ManualMark{
		SessionID: sessionID,
		LearnerID: learnerID,
		Status:    status,
		MarkedBy:  callerID,
		Notes:     req.Notes,
	})
	if err != nil {
		s.logger.Error("人工标记考勤失败",
			zap.String("session_id", sessionID),
			zap.String("learner_id", learnerID),
			zap.Error(err))
		return nil, err
	}

	resp := toRecordResponse(rec)
	resp.SessionDate = formatDate(session.SessionDate)
	return &resp, nil
}

// ────────────────────── ListBySession ──────────────────────

func (s *attendanceService) ListBySession(ctx context.Context, sessionID string) (*dto.SessionAttendanceResponse, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	created, err := s.store.EnsureDefaults(ctx, sessionID)
	if err != nil {
		s.logger.Error("补齐默认缺勤失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次考勤失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		r := toRecordResponse(&records[i])
		r.SessionDate = formatDate(session.SessionDate)
		items = append(items, r)
	}
	sortRecords(items)

	return &dto.SessionAttendanceResponse{
		Session:         *toSessionResponse(session),
		DefaultsCreated: created,
		Records:         items,
	}, nil
}

// ────────────────────── ListByCohort ──────────────────────

func (s *attendanceService) ListByCohort(ctx context.Context, cohortID string, req *dto.DateRangeRequest) ([]dto.AttendanceRecordResponse, error) {
	from, to, err := parseDateRange(req.From, req.To, s.maxRangeDays)
	if err != nil {
		return nil, err
	}
	if _, err := requireCohort(ctx, s.repo, cohortID); err != nil {
		return nil, err
	}

	sessions, err := s.repo.ClassSession.ListActiveByCohortAndRange(ctx, cohortID, from, to)
	if err != nil {
		s.logger.Error("查询区间课次失败", zap.String("cohort_id", cohortID), zap.Error(err))
		return nil, err
	}
	dates := make(map[string]string, len(sessions))
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
		dates[sessions[i].SessionID] = formatDate(sessions[i].SessionDate)
	}

	records, err := s.repo.Attendance.ListBySessions(ctx, ids)
	if err != nil {
		s.logger.Error("查询区间考勤失败", zap.String("cohort_id", cohortID), zap.Error(err))
		return nil, err
	}

	items := make([]dto.AttendanceRecordResponse, 0, len(records))
	for i := range records {
		r := toRecordResponse(&records[i])
		r.SessionDate = dates[records[i].SessionID]
		items = append(items, r)
	}
	sortRecords(items)
	return items, nil
}

// ────────────────────── Sweep ──────────────────────

func (s *attendanceService) Sweep(ctx context.Context, now time.Time) (*dto.SweepResult, error) {
	today := s.norm.Normalize(now).Date
	result := &dto.SweepResult{Date: formatDate(today)}

	sessions, err := s.repo.ClassSession.ListActiveByDate(ctx, today)
	if err != nil {
		s.logger.Error("查询当天课次失败", zap.Error(err))
		return nil, err
	}
	result.SessionsChecked = len(sessions)

	var errs []error
	for i := range sessions {
		sess := &sessions[i]
		w, err := sess.Window()
		if err != nil {
			continue
		}
		if s.norm.Combine(sess.SessionDate, w.Start).After(now) {
			continue // 尚未开始
		}

		n, err := s.store.EnsureDefaults(ctx, sess.SessionID)
		result.DefaultsCreated += n
		if err != nil {
			result.Failed++
			errs = append(errs, err)
			s.logger.Error("课次缺勤补录失败", zap.String("session_id", sess.SessionID), zap.Error(err))
			continue
		}
		result.SessionsSwept++
	}

	s.logger.Info("缺勤补录完成",
		zap.String("date", result.Date),
		zap.Int("sessions_swept", result.SessionsSwept),
		zap.Int("defaults_created", result.DefaultsCreated),
		zap.Int("failed", result.Failed))
	return result, errors.Join(errs...)
}

// ── 辅助函数 ──

func (s *attendanceService) getSession(ctx context.Context, id string) (*model.ClassSession, error) {
	session, err := s.repo.ClassSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func toRecordResponse(r *model.AttendanceRecord) dto.AttendanceRecordResponse {
	resp := dto.AttendanceRecordResponse{
		RecordID:    r.RecordID,
		SessionID:   r.SessionID,
		LearnerID:   r.LearnerID,
		Status:      string(r.Status),
		StatusLabel: r.Status.SpanishLabel(),
		Source:      string(r.Source),
		MarkedBy:    r.MarkedBy,
		MarkedAt:    formatTimestamp(r.MarkedAt),
		Notes:       r.Notes,
		Version:     r.Version,
	}
	if r.Learner != nil {
		resp.LearnerName = r.Learner.FullName
	}
	if r.ArrivedAt != nil {
		at := formatTimestamp(*r.ArrivedAt)
		resp.ArrivedAt = &at
	}
	return resp
}

func sortRecords(items []dto.AttendanceRecordResponse) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].SessionDate != items[j].SessionDate {
			return items[i].SessionDate < items[j].SessionDate
		}
		if items[i].LearnerName != items[j].LearnerName {
			return items[i].LearnerName < items[j].LearnerName
		}
		return items[i].LearnerID < items[j].LearnerID
	})
}
