package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/pkg/clock"
)

// ── 主数据校验错误 ──

var (
	ErrTrimesterNotFound  = errors.New("学季不存在或未启用")
	ErrInstructorNotFound = errors.New("讲师不存在或未启用")
	ErrLearnerNotFound    = errors.New("学员不存在或未启用")
	ErrProfileNotFound    = errors.New("人员档案不存在或未启用")
	ErrCohortNotFound     = errors.New("ficha 不存在或未启用")
	ErrClassroomNotFound  = errors.New("教室不存在或未启用")
)

// ── 参数校验错误 ──

var (
	ErrInvalidTimeWindow  = errors.New("时间段无效：开始时间必须早于结束时间")
	ErrInvalidDayOfWeek   = errors.New("星期必须在 1-7 之间")
	ErrInvalidDate        = errors.New("日期格式无效，应为 YYYY-MM-DD")
	ErrInvalidDateRange   = errors.New("日期区间无效：开始日期不能晚于结束日期")
	ErrDateRangeTooLarge  = errors.New("日期区间超出允许范围")
	ErrDateOutOfTrimester = errors.New("日期不在学季范围内")
)

func requireTrimester(ctx context.Context, repo *repository.Repository, id string) (*model.Trimester, error) {
	t, err := repo.Trimester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTrimesterNotFound
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrTrimesterNotFound
	}
	return t, nil
}

func requireProfile(ctx context.Context, repo *repository.Repository, id, role string, notFound error) (*model.Profile, error) {
	p, err := repo.Profile.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	if !p.IsActive || (role != "" && p.Role != role) {
		return nil, notFound
	}
	return p, nil
}

func requireCohort(ctx context.Context, repo *repository.Repository, id string) (*model.Cohort, error) {
	c, err := repo.Cohort.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCohortNotFound
		}
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrCohortNotFound
	}
	return c, nil
}

func requireClassroom(ctx context.Context, repo *repository.Repository, id *string) error {
	if id == nil {
		return nil
	}
	c, err := repo.Classroom.GetByID(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassroomNotFound
		}
		return err
	}
	if !c.IsActive {
		return ErrClassroomNotFound
	}
	return nil
}

// loadSystemConfig 读取系统配置，未初始化时使用默认值
func loadSystemConfig(ctx context.Context, repo *repository.Repository) (*model.SystemConfig, error) {
	cfg, err := repo.SystemConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefaultSystemConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// resolveTolerance 显式值优先，为空时取系统默认容忍分钟
func resolveTolerance(ctx context.Context, repo *repository.Repository, tolerance *int) (int, error) {
	if tolerance != nil {
		if *tolerance < 0 {
			return 0, ErrInvalidTolerance
		}
		return *tolerance, nil
	}
	cfg, err := loadSystemConfig(ctx, repo)
	if err != nil {
		return 0, err
	}
	return cfg.DefaultToleranceMinutes, nil
}

// parseDateRange 解析闭区间 [from, to]，maxDays<=0 表示不限
func parseDateRange(from, to string, maxDays int) (time.Time, time.Time, error) {
	f, err := clock.ParseDate(from)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	t, err := clock.ParseDate(to)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if f.After(t) {
		return time.Time{}, time.Time{}, ErrInvalidDateRange
	}
	if maxDays > 0 && int(t.Sub(f).Hours()/24)+1 > maxDays {
		return time.Time{}, time.Time{}, ErrDateRangeTooLarge
	}
	return f, t, nil
}

func formatDate(t time.Time) string { return t.Format("2006-01-02") }

func formatTimestamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }
