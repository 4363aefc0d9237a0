package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ficha-attendance/backend/internal/model"
)

// AccessEventRepository 门禁事件数据访问接口（只增不改）
type AccessEventRepository interface {
	// Create 以 event_id 幂等写入，已存在时返回 created=false
	Create(ctx context.Context, event *model.AccessEvent) (bool, error)
	GetByID(ctx context.Context, id string) (*model.AccessEvent, error)
}

type accessEventRepo struct {
	db *gorm.DB
}

// NewAccessEventRepo 创建 AccessEventRepository 实例
func NewAccessEventRepo(db *gorm.DB) AccessEventRepository {
	return &accessEventRepo{db: db}
}

func (r *accessEventRepo) Create(ctx context.Context, event *model.AccessEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *accessEventRepo) GetByID(ctx context.Context, id string) (*model.AccessEvent, error) {
	var ev model.AccessEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", id).First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
