package repository

import (
	"context"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
)

// ClassroomRepository 教室数据访问接口
type ClassroomRepository interface {
	GetByID(ctx context.Context, id string) (*model.Classroom, error)
}

type classroomRepo struct {
	db *gorm.DB
}

// NewClassroomRepo 创建 ClassroomRepository 实例
func NewClassroomRepo(db *gorm.DB) ClassroomRepository {
	return &classroomRepo{db: db}
}

func (r *classroomRepo) GetByID(ctx context.Context, id string) (*model.Classroom, error) {
	var c model.Classroom
	err := r.db.WithContext(ctx).Where("classroom_id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
