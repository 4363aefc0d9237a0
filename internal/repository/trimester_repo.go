package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
)

// TrimesterRepository 学季数据访问接口
type TrimesterRepository interface {
	GetByID(ctx context.Context, id string) (*model.Trimester, error)
	// ListActiveCovering 覆盖该日期的有效学季
	ListActiveCovering(ctx context.Context, date time.Time) ([]model.Trimester, error)
}

type trimesterRepo struct {
	db *gorm.DB
}

// NewTrimesterRepo 创建 TrimesterRepository 实例
func NewTrimesterRepo(db *gorm.DB) TrimesterRepository {
	return &trimesterRepo{db: db}
}

func (r *trimesterRepo) GetByID(ctx context.Context, id string) (*model.Trimester, error) {
	var t model.Trimester
	err := r.db.WithContext(ctx).Where("trimester_id = ?", id).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *trimesterRepo) ListActiveCovering(ctx context.Context, date time.Time) ([]model.Trimester, error) {
	var trimesters []model.Trimester
	day := date.Format(dateLayout)
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND start_date <= ? AND end_date >= ?", true, day, day).
		Order("trimester_id ASC").
		Find(&trimesters).Error
	return trimesters, err
}
