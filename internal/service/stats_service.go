package service

import (
	"context"
	"errors"
	"math"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ficha-attendance/backend/internal/dto"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
)

// StatsService 考勤汇总（只读，不补写默认记录）
type StatsService interface {
	SessionStats(ctx context.Context, sessionID string) (*dto.SessionStatsResponse, error)
	CohortStats(ctx context.Context, cohortID string, req *dto.DateRangeRequest) (*dto.CohortStatsResponse, error)
}

type statsService struct {
	repo         *repository.Repository
	maxRangeDays int
	logger       *zap.Logger
}

// NewStatsService 创建 StatsService 实例
func NewStatsService(repo *repository.Repository, maxRangeDays int, logger *zap.Logger) StatsService {
	return &statsService{repo: repo, maxRangeDays: maxRangeDays, logger: logger}
}

// StatsCounter 累加状态计数
type StatsCounter struct {
	present, late, absent, excused int
}

// Add 计入一条状态
func (c *StatsCounter) Add(st model.AttendanceStatus) {
	switch st {
	case model.StatusPresent:
		c.present++
	case model.StatusLate:
		c.late++
	case model.StatusExcused:
		c.excused++
	default:
		c.absent++
	}
}

// Result 出勤率 = (PRESENT + LATE [+ EXCUSED]) / total × 100，保留一位小数；total 为 0 时为 0
func (c *StatsCounter) Result(excusedCountsAsAttended bool) dto.AttendanceStats {
	total := c.present + c.late + c.absent + c.excused
	out := dto.AttendanceStats{
		Total:   total,
		Present: c.present,
		Late:    c.late,
		Absent:  c.absent,
		Excused: c.excused,
	}
	if total == 0 {
		return out
	}
	attended := c.present + c.late
	if excusedCountsAsAttended {
		attended += c.excused
	}
	out.Percentage = math.Round(float64(attended)/float64(total)*1000) / 10
	return out
}

// ────────────────────── SessionStats ──────────────────────

func (s *statsService) SessionStats(ctx context.Context, sessionID string) (*dto.SessionStatsResponse, error) {
	session, err := s.repo.ClassSession.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", sessionID), zap.Error(err))
		return nil, err
	}
	cfg, err := loadSystemConfig(ctx, s.repo)
	if err != nil {
		return nil, err
	}

	roster, err := s.repo.Cohort.ListLearnerIDs(ctx, session.CohortID)
	if err != nil {
		s.logger.Error("查询在册名单失败", zap.Error(err))
		return nil, err
	}
	records, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次考勤失败", zap.Error(err))
		return nil, err
	}

	var c StatsCounter
	for _, st := range effectiveStatuses(roster, records) {
		c.Add(st)
	}
	return &dto.SessionStatsResponse{
		SessionID:       sessionID,
		AttendanceStats: c.Result(cfg.ExcusedCountsAsAttended),
	}, nil
}

// ────────────────────── CohortStats ──────────────────────

func (s *statsService) CohortStats(ctx context.Context, cohortID string, req *dto.DateRangeRequest) (*dto.CohortStatsResponse, error) {
	from, to, err := parseDateRange(req.From, req.To, s.maxRangeDays)
	if err != nil {
		return nil, err
	}
	if _, err := requireCohort(ctx, s.repo, cohortID); err != nil {
		return nil, err
	}
	cfg, err := loadSystemConfig(ctx, s.repo)
	if err != nil {
		return nil, err
	}

	sessions, err := s.repo.ClassSession.ListActiveByCohortAndRange(ctx, cohortID, from, to)
	if err != nil {
		s.logger.Error("查询区间课次失败", zap.Error(err))
		return nil, err
	}
	roster, err := s.repo.Cohort.ListLearnerIDs(ctx, cohortID)
	if err != nil {
		s.logger.Error("查询在册名单失败", zap.Error(err))
		return nil, err
	}
	ids := make([]string, 0, len(sessions))
	for i := range sessions {
		ids = append(ids, sessions[i].SessionID)
	}
	records, err := s.repo.Attendance.ListBySessions(ctx, ids)
	if err != nil {
		s.logger.Error("查询区间考勤失败", zap.Error(err))
		return nil, err
	}

	bySession := make(map[string][]model.AttendanceRecord, len(sessions))
	names := make(map[string]string)
	for _, r := range records {
		bySession[r.SessionID] = append(bySession[r.SessionID], r)
		if r.Learner != nil {
			names[r.LearnerID] = r.Learner.FullName
		}
	}

	var overall StatsCounter
	learnerCounters := make(map[string]*StatsCounter)
	dateCounters := make(map[string]*StatsCounter)
	for i := range sessions {
		date := formatDate(sessions[i].SessionDate)
		dc := dateCounters[date]
		if dc == nil {
			dc = &StatsCounter{}
			dateCounters[date] = dc
		}
		for learnerID, st := range effectiveStatuses(roster, bySession[sessions[i].SessionID]) {
			lc := learnerCounters[learnerID]
			if lc == nil {
				lc = &StatsCounter{}
				learnerCounters[learnerID] = lc
			}
			lc.Add(st)
			dc.Add(st)
			overall.Add(st)
		}
	}

	resp := &dto.CohortStatsResponse{
		CohortID:  cohortID,
		From:      formatDate(from),
		To:        formatDate(to),
		Sessions:  len(sessions),
		Overall:   overall.Result(cfg.ExcusedCountsAsAttended),
		ByLearner: make([]dto.LearnerStats, 0, len(learnerCounters)),
		ByDate:    make([]dto.DateStats, 0, len(dateCounters)),
	}
	for learnerID, c := range learnerCounters {
		resp.ByLearner = append(resp.ByLearner, dto.LearnerStats{
			LearnerID:       learnerID,
			LearnerName:     names[learnerID],
			AttendanceStats: c.Result(cfg.ExcusedCountsAsAttended),
		})
	}
	for date, c := range dateCounters {
		resp.ByDate = append(resp.ByDate, dto.DateStats{Date: date, AttendanceStats: c.Result(cfg.ExcusedCountsAsAttended)})
	}
	sort.Slice(resp.ByLearner, func(i, j int) bool { return resp.ByLearner[i].LearnerID < resp.ByLearner[j].LearnerID })
	sort.Slice(resp.ByDate, func(i, j int) bool { return resp.ByDate[i].Date < resp.ByDate[j].Date })
	return resp, nil
}

// effectiveStatuses 在册学员 ∪ 已有记录的学员；在册但无记录按 ABSENT 计
func effectiveStatuses(roster []string, records []model.AttendanceRecord) map[string]model.AttendanceStatus {
	out := make(map[string]model.AttendanceStatus, len(roster)+len(records))
	for _, id := range roster {
		out[id] = model.StatusAbsent
	}
	for _, r := range records {
		out[r.LearnerID] = r.Status
	}
	return out
}
