package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
)

// ── 门禁模块业务错误 ──

var (
	ErrEventIDReused = errors.New("event_id 已被其他事件使用")
)

// AccessService 门禁事件接入
type AccessService interface {
	// CheckIn 保存入门事件并匹配考勤；相同 event_id 重放时不重复写入事件
	CheckIn(ctx context.Context, req *dto.AccessEventRequest) (*dto.MatchOutcome, error)
	// CheckOut 仅保存出门事件
	CheckOut(ctx context.Context, req *dto.AccessEventRequest) (*dto.AccessEventResponse, error)
}

type accessService struct {
	repo    *repository.Repository
	matcher AttendanceMatcher
	clock   clock.Clock
	logger  *zap.Logger
}

// NewAccessService 创建 AccessService 实例
func NewAccessService(repo *repository.Repository, matcher AttendanceMatcher, clk clock.Clock, logger *zap.Logger) AccessService {
	return &accessService{repo: repo, matcher: matcher, clock: clk, logger: logger}
}

// ────────────────────── CheckIn ──────────────────────

func (s *accessService) CheckIn(ctx context.Context, req *dto.AccessEventRequest) (*dto.MatchOutcome, error) {
	event, created, err := s.record(ctx, req, model.DirectionEntry)
	if err != nil {
		return nil, err
	}

	outcome, err := s.matcher.MatchAndMark(ctx, event)
	if err != nil {
		return nil, err
	}
	outcome.Duplicate = !created
	return outcome, nil
}

// ────────────────────── CheckOut ──────────────────────

func (s *accessService) CheckOut(ctx context.Context, req *dto.AccessEventRequest) (*dto.AccessEventResponse, error) {
	event, created, err := s.record(ctx, req, model.DirectionExit)
	if err != nil {
		return nil, err
	}

	return &dto.AccessEventResponse{
		EventID:    event.EventID,
		ProfileID:  event.ProfileID,
		Direction:  string(event.Direction),
		OccurredAt: formatTimestamp(event.OccurredAt),
		Duplicate:  !created,
	}, nil
}

// record 幂等写入事件；重放时返回已存储的事件
func (s *accessService) record(ctx context.Context, req *dto.AccessEventRequest, dir model.AccessDirection) (*model.AccessEvent, bool, error) {
	if _, err := requireProfile(ctx, s.repo, req.ProfileID, "", ErrProfileNotFound); err != nil {
		return nil, false, err
	}

	event := &model.AccessEvent{
		EventID:    uuid.NewString(),
		ProfileID:  req.ProfileID,
		OccurredAt: req.OccurredAt,
		Direction:  dir,
		DeviceID:   req.DeviceID,
	}
	if req.EventID != nil && *req.EventID != "" {
		event.EventID = *req.EventID
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now()
	}

	created, err := s.repo.AccessEvent.Create(ctx, event)
	if err != nil {
		s.logger.Error("保存门禁事件失败", zap.String("event_id", event.EventID), zap.Error(err))
		return nil, false, err
	}
	if created {
		return event, true, nil
	}

	stored, err := s.repo.AccessEvent.GetByID(ctx, event.EventID)
	if err != nil {
		s.logger.Error("读取已存在的门禁事件失败", zap.String("event_id", event.EventID), zap.Error(err))
		return nil, false, err
	}
	// 未带 occurred_at 的重放只比对人员与方向
	if stored.ProfileID != event.ProfileID || stored.Direction != dir ||
		(!req.OccurredAt.IsZero() && !sameInstant(stored.OccurredAt, req.OccurredAt)) {
		s.logger.Warn("事件 ID 被不同内容复用",
			zap.String("event_id", stored.EventID),
			zap.Time("stored_occurred_at", stored.OccurredAt),
			zap.Time("occurred_at", event.OccurredAt))
		return nil, false, ErrEventIDReused
	}
	s.logger.Info("门禁事件重放", zap.String("event_id", stored.EventID))
	return stored, false, nil
}

// sameInstant 按 timestamptz 的微秒精度比较
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Microsecond).Equal(b.Truncate(time.Microsecond))
}
