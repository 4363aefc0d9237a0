package repository

import (
	"context"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
)

// ProfileRepository 人员档案数据访问接口（只读）
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var p model.Profile
	err := r.db.WithContext(ctx).Where("profile_id = ?", id).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepo) ListByIDs(ctx context.Context, ids []string) ([]model.Profile, error) {
	var profiles []model.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	err := r.db.WithContext(ctx).
		Where("profile_id IN ?", ids).
		Order("full_name ASC").
		Find(&profiles).Error
	return profiles, err
}
