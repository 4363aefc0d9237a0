package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
	pkgerrors "ficha-attendance/backend/pkg/errors"
)

// ScheduleSlotFilter 时段列表过滤条件，空字段不参与过滤
type ScheduleSlotFilter struct {
	TrimesterID  string
	CohortID     string
	InstructorID string
}

// ScheduleSlotRepository 周排课时段数据访问接口
type ScheduleSlotRepository interface {
	Create(ctx context.Context, slot *model.ScheduleSlot) error
	GetByID(ctx context.Context, id string) (*model.ScheduleSlot, error)
	List(ctx context.Context, filter ScheduleSlotFilter) ([]model.ScheduleSlot, error)
	ListActiveByTrimesterAndDay(ctx context.Context, trimesterID string, dayOfWeek int) ([]model.ScheduleSlot, error)
	// ListActiveOnDate 覆盖该日期的学季中、星期匹配的有效时段
	ListActiveOnDate(ctx context.Context, date time.Time, dayOfWeek int) ([]model.ScheduleSlot, error)
	Deactivate(ctx context.Context, slot *model.ScheduleSlot) error
}

type scheduleSlotRepo struct {
	db *gorm.DB
}

// NewScheduleSlotRepo 创建 ScheduleSlotRepository 实例
func NewScheduleSlotRepo(db *gorm.DB) ScheduleSlotRepository {
	return &scheduleSlotRepo{db: db}
}

func (r *scheduleSlotRepo) Create(ctx context.Context, slot *model.ScheduleSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

func (r *scheduleSlotRepo) GetByID(ctx context.Context, id string) (*model.ScheduleSlot, error) {
	var slot model.ScheduleSlot
	err := r.db.WithContext(ctx).Where("slot_id = ?", id).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *scheduleSlotRepo) List(ctx context.Context, filter ScheduleSlotFilter) ([]model.ScheduleSlot, error) {
	var slots []model.ScheduleSlot
	db := r.db.WithContext(ctx).Where("is_active = ?", true)

	if filter.TrimesterID != "" {
		db = db.Where("trimester_id = ?", filter.TrimesterID)
	}
	if filter.CohortID != "" {
		db = db.Where("cohort_id = ?", filter.CohortID)
	}
	if filter.InstructorID != "" {
		db = db.Where("instructor_id = ?", filter.InstructorID)
	}

	err := db.Order("day_of_week ASC, start_time ASC").Find(&slots).Error
	return slots, err
}

func (r *scheduleSlotRepo) ListActiveByTrimesterAndDay(ctx context.Context, trimesterID string, dayOfWeek int) ([]model.ScheduleSlot, error) {
	var slots []model.ScheduleSlot
	err := r.db.WithContext(ctx).
		Where("trimester_id = ? AND day_of_week = ? AND is_active = ?", trimesterID, dayOfWeek, true).
		Order("start_time ASC").
		Find(&slots).Error
	return slots, err
}

func (r *scheduleSlotRepo) ListActiveOnDate(ctx context.Context, date time.Time, dayOfWeek int) ([]model.ScheduleSlot, error) {
	var slots []model.ScheduleSlot
	day := date.Format(dateLayout)
	err := r.db.WithContext(ctx).
		Select("schedule_slots.*").
		Joins("JOIN trimesters ON trimesters.trimester_id = schedule_slots.trimester_id").
		Where("schedule_slots.day_of_week = ? AND schedule_slots.is_active = ?", dayOfWeek, true).
		Where("trimesters.start_date <= ? AND trimesters.end_date >= ?", day, day).
		Order("schedule_slots.start_time ASC").
		Find(&slots).Error
	return slots, err
}

// Deactivate 逻辑停用，带乐观锁
func (r *scheduleSlotRepo) Deactivate(ctx context.Context, slot *model.ScheduleSlot) error {
	oldVersion := slot.Version
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleSlot{}).
		Where("slot_id = ? AND version = ?", slot.SlotID, oldVersion).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": slot.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	slot.IsActive = false
	slot.Version = oldVersion + 1
	return nil
}
