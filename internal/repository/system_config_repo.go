package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ficha-attendance/backend/internal/model"
)

// SystemConfigRepository 系统配置数据访问接口（单行表）
type SystemConfigRepository interface {
	// Get 行不存在时返回 gorm.ErrRecordNotFound，由调用方回落到默认值
	Get(ctx context.Context) (*model.SystemConfig, error)
	// Update 写入唯一一行，不存在则插入
	Update(ctx context.Context, cfg *model.SystemConfig) error
}

type systemConfigRepo struct {
	db *gorm.DB
}

// NewSystemConfigRepo 创建 SystemConfigRepository 实例
func NewSystemConfigRepo(db *gorm.DB) SystemConfigRepository {
	return &systemConfigRepo{db: db}
}

func (r *systemConfigRepo) Get(ctx context.Context) (*model.SystemConfig, error) {
	var cfg model.SystemConfig
	if err := r.db.WithContext(ctx).Take(&cfg, "singleton = ?", true).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *systemConfigRepo) Update(ctx context.Context, cfg *model.SystemConfig) error {
	cfg.Singleton = true
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "singleton"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"default_tolerance_minutes",
				"early_arrival_margin_minutes",
				"excused_counts_as_attended",
				"updated_at",
				"updated_by",
			}),
		}).
		Create(cfg).Error
}
