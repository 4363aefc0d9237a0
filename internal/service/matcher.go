package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/metrics"
	"ficha-attendance/backend/pkg/timewindow"
)

// ErrNotEntryEvent 只有入门事件参与考勤匹配
var ErrNotEntryEvent = errors.New("只有入门事件可以匹配考勤")

// AttendanceMatcher 将门禁入门事件匹配到当天课次并写入考勤
type AttendanceMatcher interface {
	MatchAndMark(ctx context.Context, event *model.AccessEvent) (*dto.MatchOutcome, error)
}

type attendanceMatcher struct {
	repo      *repository.Repository
	store     AttendanceStore
	tolerance *ToleranceCalculator
	norm      *clock.Normalizer
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAttendanceMatcher 创建 AttendanceMatcher 实例
func NewAttendanceMatcher(
	repo *repository.Repository,
	store AttendanceStore,
	norm *clock.Normalizer,
	m *metrics.Metrics,
	logger *zap.Logger,
) AttendanceMatcher {
	return &attendanceMatcher{
		repo:      repo,
		store:     store,
		tolerance: NewToleranceCalculator(norm),
		norm:      norm,
		metrics:   m,
		logger:    logger,
	}
}

type matchCandidate struct {
	session *model.ClassSession
	window  timewindow.Window
	start   time.Time
}

func (m *attendanceMatcher) MatchAndMark(ctx context.Context, event *model.AccessEvent) (*dto.MatchOutcome, error) {
	if event.Direction != model.DirectionEntry {
		return nil, ErrNotEntryEvent
	}
	learnerID := event.ProfileID
	t := event.OccurredAt

	// 1. 通过在册名单找到学员所属 ficha
	cohortIDs, err := m.repo.Cohort.ListCohortIDsByLearner(ctx, learnerID)
	if err != nil {
		m.logger.Error("查询学员所属 ficha 失败", zap.String("learner_id", learnerID), zap.Error(err))
		return nil, err
	}

	// 2. 事件归一到机构本地日期，取当天有效课次
	local := m.norm.Normalize(t)
	var sessions []model.ClassSession
	if len(cohortIDs) > 0 {
		sessions, err = m.repo.ClassSession.ListActiveByCohortsAndDate(ctx, cohortIDs, local.Date)
		if err != nil {
			m.logger.Error("查询当天课次失败", zap.String("learner_id", learnerID), zap.Error(err))
			return nil, err
		}
	}
	if len(sessions) == 0 {
		return m.unmatched(ctx, event, dto.ReasonNoSessionToday, nil)
	}

	// 3. 窗口过滤：start - 提前量 <= t <= end
	cfg, err := loadSystemConfig(ctx, m.repo)
	if err != nil {
		m.logger.Error("读取系统配置失败", zap.Error(err))
		return nil, err
	}
	margin := time.Duration(cfg.EarlyArrivalMarginMinutes) * time.Minute

	candidates := make([]matchCandidate, 0, len(sessions))
	for i := range sessions {
		w, err := sessions[i].Window()
		if err != nil {
			m.logger.Warn("跳过时间段无效的课次", zap.String("session_id", sessions[i].SessionID), zap.Error(err))
			continue
		}
		start := m.norm.Combine(sessions[i].SessionDate, w.Start)
		end := m.norm.Combine(sessions[i].SessionDate, w.End)
		if t.Before(start.Add(-margin)) || t.After(end) {
			continue
		}
		candidates = append(candidates, matchCandidate{session: &sessions[i], window: w, start: start})
	}
	if len(candidates) == 0 {
		return m.unmatched(ctx, event, dto.ReasonOutsideWindow, sessionIDs(sessions))
	}

	// 4. 多个候选时取开始时间最近者
	chosen := pickNearest(candidates, t)
	ambiguous := len(candidates) > 1
	candidateIDs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		candidateIDs = append(candidateIDs, c.session.SessionID)
	}

	// 5. 判定状态并写入
	boundary, err := m.tolerance.LateBoundary(chosen.session.SessionDate, chosen.window.Start, chosen.session.ToleranceMinutes)
	if err != nil {
		return nil, err
	}
	status := DeriveStatus(&t, boundary)

	eventID := event.EventID
	arrived := t
	rec, err := m.store.UpsertAutomatic(ctx, AutomaticMark{
		SessionID:     chosen.session.SessionID,
		LearnerID:     learnerID,
		Status:        status,
		AccessEventID: &eventID,
		ArrivedAt:     &arrived,
	})
	if err != nil {
		return nil, err
	}

	outcome := model.MatchMatched
	metricLabel := "matched"
	if ambiguous {
		outcome = model.MatchAmbiguous
		metricLabel = "ambiguous"
		m.logger.Info("门禁事件匹配到多个课次，按开始时间最近选择",
			zap.String("event_id", event.EventID),
			zap.String("chosen_session_id", chosen.session.SessionID),
			zap.Strings("candidate_session_ids", candidateIDs))
	}
	sessionID := chosen.session.SessionID
	if err := m.audit(ctx, event, outcome, &sessionID, candidateIDs); err != nil {
		return nil, err
	}
	m.metrics.MatchOutcome(metricLabel)

	// 返回记录的当前状态（可能是先前更高的状态或人工状态）
	return &dto.MatchOutcome{
		EventID:             event.EventID,
		Matched:             true,
		SessionID:           &sessionID,
		Status:              string(rec.Status),
		StatusLabel:         rec.Status.SpanishLabel(),
		Source:              string(rec.Source),
		Ambiguous:           ambiguous,
		CandidateSessionIDs: candidateIDs,
	}, nil
}

func (m *attendanceMatcher) unmatched(ctx context.Context, event *model.AccessEvent, reason string, candidates []string) (*dto.MatchOutcome, error) {
	outcome, label := model.MatchNoSessionToday, "unmatched_no_session"
	if reason == dto.ReasonOutsideWindow {
		outcome, label = model.MatchOutsideWindow, "unmatched_outside_window"
	}

	m.logger.Info("门禁事件未匹配到课次",
		zap.String("event_id", event.EventID),
		zap.String("profile_id", event.ProfileID),
		zap.Time("occurred_at", event.OccurredAt),
		zap.String("reason", reason))

	if err := m.audit(ctx, event, outcome, nil, candidates); err != nil {
		return nil, err
	}
	m.metrics.MatchOutcome(label)

	return &dto.MatchOutcome{
		EventID: event.EventID,
		Matched: false,
		Reason:  reason,
	}, nil
}

func (m *attendanceMatcher) audit(ctx context.Context, event *model.AccessEvent, outcome string, chosen *string, candidates []string) error {
	if candidates == nil {
		candidates = []string{}
	}
	raw, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	if err := m.repo.MatchAudit.Create(ctx, &model.MatchAudit{
		AccessEventID:       event.EventID,
		LearnerID:           event.ProfileID,
		Outcome:             outcome,
		ChosenSessionID:     chosen,
		CandidateSessionIDs: datatypes.JSON(raw),
	}); err != nil {
		m.logger.Error("写入匹配审计失败", zap.String("event_id", event.EventID), zap.Error(err))
		return err
	}
	return nil
}

// pickNearest |start - t| 最小者；距离相同时优先尚未开始的课次，再按 session_id
func pickNearest(candidates []matchCandidate, t time.Time) matchCandidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		di, dj := absDuration(candidates[i].start.Sub(t)), absDuration(candidates[j].start.Sub(t))
		if di != dj {
			return di < dj
		}
		ui, uj := !candidates[i].start.Before(t), !candidates[j].start.Before(t)
		if ui != uj {
			return ui
		}
		return candidates[i].session.SessionID < candidates[j].session.SessionID
	})
	return candidates[0]
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func sessionIDs(sessions []model.ClassSession) []string {
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
	}
	return ids
}
