package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ficha-attendance/backend/internal/model"
	pkgerrors "ficha-attendance/backend/pkg/errors"
)

// AttendanceRepository 考勤记录数据访问接口
// 写操作由调用方在 (session, learner) 锁内执行
type AttendanceRepository interface {
	GetByPair(ctx context.Context, sessionID, learnerID string) (*model.AttendanceRecord, error)
	// InsertIfAbsent 唯一键 (session_id, learner_id) 已存在时不写入并返回 false
	InsertIfAbsent(ctx context.Context, rec *model.AttendanceRecord) (bool, error)
	Update(ctx context.Context, rec *model.AttendanceRecord) error
	ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error)
	ListBySessions(ctx context.Context, sessionIDs []string) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) GetByPair(ctx context.Context, sessionID, learnerID string) (*model.AttendanceRecord, error) {
	var rec model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND learner_id = ?", sessionID, learnerID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *attendanceRepo) InsertIfAbsent(ctx context.Context, rec *model.AttendanceRecord) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "learner_id"}},
			DoNothing: true,
		}).
		Create(rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Update 按版本号更新状态字段
func (r *attendanceRepo) Update(ctx context.Context, rec *model.AttendanceRecord) error {
	oldVersion := rec.Version
	result := r.db.WithContext(ctx).
		Model(&model.AttendanceRecord{}).
		Where("record_id = ? AND version = ?", rec.RecordID, oldVersion).
		Updates(map[string]interface{}{
			"status":          rec.Status,
			"source":          rec.Source,
			"access_event_id": rec.AccessEventID,
			"arrived_at":      rec.ArrivedAt,
			"marked_by":       rec.MarkedBy,
			"marked_at":       rec.MarkedAt,
			"notes":           rec.Notes,
			"updated_by":      rec.UpdatedBy,
			"updated_at":      gorm.Expr("NOW()"),
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	rec.Version = oldVersion + 1
	return nil
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	err := r.db.WithContext(ctx).
		Preload("Learner").
		Where("session_id = ?", sessionID).
		Order("learner_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListBySessions(ctx context.Context, sessionIDs []string) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	if len(sessionIDs) == 0 {
		return records, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Learner").
		Where("session_id IN ?", sessionIDs).
		Order("session_id ASC, learner_id ASC").
		Find(&records).Error
	return records, err
}
