package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ficha-attendance/backend/internal/model"
	pkgerrors "ficha-attendance/backend/pkg/errors"
)

const dateLayout = "2006-01-02"

// ClassSessionFilter 课次列表过滤条件
type ClassSessionFilter struct {
	CohortID     string
	InstructorID string
	From         *time.Time
	To           *time.Time
	Offset       int
	Limit        int
}

// ClassSessionRepository 课次数据访问接口
type ClassSessionRepository interface {
	Create(ctx context.Context, session *model.ClassSession) error
	GetByID(ctx context.Context, id string) (*model.ClassSession, error)
	List(ctx context.Context, filter ClassSessionFilter) ([]model.ClassSession, int64, error)
	ListActiveByDate(ctx context.Context, date time.Time) ([]model.ClassSession, error)
	ListActiveByCohortsAndDate(ctx context.Context, cohortIDs []string, date time.Time) ([]model.ClassSession, error)
	ListActiveByCohortAndRange(ctx context.Context, cohortID string, from, to time.Time) ([]model.ClassSession, error)
	// ListActiveByRange 日期闭区间内全部有效课次（批量生成与周时段冲突检测用）
	ListActiveByRange(ctx context.Context, from, to time.Time) ([]model.ClassSession, error)
	// InsertGenerated 批量插入由周时段生成的课次，(slot_id, session_date) 已存在的跳过
	InsertGenerated(ctx context.Context, sessions []model.ClassSession) (int64, error)
	Deactivate(ctx context.Context, session *model.ClassSession) error
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) Create(ctx context.Context, session *model.ClassSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *classSessionRepo) GetByID(ctx context.Context, id string) (*model.ClassSession, error) {
	var s model.ClassSession
	err := r.db.WithContext(ctx).Where("session_id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *classSessionRepo) List(ctx context.Context, filter ClassSessionFilter) ([]model.ClassSession, int64, error) {
	var sessions []model.ClassSession
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ClassSession{})
	if filter.CohortID != "" {
		db = db.Where("cohort_id = ?", filter.CohortID)
	}
	if filter.InstructorID != "" {
		db = db.Where("instructor_id = ?", filter.InstructorID)
	}
	if filter.From != nil {
		db = db.Where("session_date >= ?", filter.From.Format(dateLayout))
	}
	if filter.To != nil {
		db = db.Where("session_date <= ?", filter.To.Format(dateLayout))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}
	err := db.Order("session_date ASC, start_time ASC").Find(&sessions).Error
	return sessions, total, err
}

func (r *classSessionRepo) ListActiveByDate(ctx context.Context, date time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("session_date = ? AND is_active = ?", date.Format(dateLayout), true).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) ListActiveByCohortsAndDate(ctx context.Context, cohortIDs []string, date time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	if len(cohortIDs) == 0 {
		return sessions, nil
	}
	err := r.db.WithContext(ctx).
		Where("cohort_id IN ? AND session_date = ? AND is_active = ?", cohortIDs, date.Format(dateLayout), true).
		Order("start_time ASC, session_id ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) ListActiveByCohortAndRange(ctx context.Context, cohortID string, from, to time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("cohort_id = ? AND is_active = ?", cohortID, true).
		Where("session_date BETWEEN ? AND ?", from.Format(dateLayout), to.Format(dateLayout)).
		Order("session_date ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) ListActiveByRange(ctx context.Context, from, to time.Time) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("session_date BETWEEN ? AND ? AND is_active = ?", from.Format(dateLayout), to.Format(dateLayout), true).
		Order("session_date ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) InsertGenerated(ctx context.Context, sessions []model.ClassSession) (int64, error) {
	if len(sessions) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "slot_id"}, {Name: "session_date"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "slot_id IS NOT NULL"}}},
			DoNothing:   true,
		}).
		CreateInBatches(&sessions, 200)
	return result.RowsAffected, result.Error
}

// Deactivate 逻辑停用，带乐观锁
func (r *classSessionRepo) Deactivate(ctx context.Context, session *model.ClassSession) error {
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": session.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.IsActive = false
	session.Version = oldVersion + 1
	return nil
}
