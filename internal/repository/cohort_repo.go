package repository

import (
	"context"

	"gorm.io/gorm"

	"ficha-attendance/backend/internal/model"
)

// CohortRepository ficha 与在册名单数据访问接口
type CohortRepository interface {
	GetByID(ctx context.Context, id string) (*model.Cohort, error)
	// ListLearnerIDs ficha 当前在册学员
	ListLearnerIDs(ctx context.Context, cohortID string) ([]string, error)
	// ListCohortIDsByLearner 学员当前所属的有效 ficha
	ListCohortIDsByLearner(ctx context.Context, learnerID string) ([]string, error)
	IsEnrolled(ctx context.Context, cohortID, learnerID string) (bool, error)
}

type cohortRepo struct {
	db *gorm.DB
}

// NewCohortRepo 创建 CohortRepository 实例
func NewCohortRepo(db *gorm.DB) CohortRepository {
	return &cohortRepo{db: db}
}

func (r *cohortRepo) GetByID(ctx context.Context, id string) (*model.Cohort, error) {
	var c model.Cohort
	err := r.db.WithContext(ctx).Where("cohort_id = ?", id).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cohortRepo) ListLearnerIDs(ctx context.Context, cohortID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CohortEnrollment{}).
		Where("cohort_id = ? AND is_active = ?", cohortID, true).
		Order("learner_id ASC").
		Pluck("learner_id", &ids).Error
	return ids, err
}

func (r *cohortRepo) ListCohortIDsByLearner(ctx context.Context, learnerID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.CohortEnrollment{}).
		Joins("JOIN cohorts ON cohorts.cohort_id = cohort_enrollments.cohort_id").
		Where("cohort_enrollments.learner_id = ? AND cohort_enrollments.is_active = ? AND cohorts.is_active = ?", learnerID, true, true).
		Pluck("cohort_enrollments.cohort_id", &ids).Error
	return ids, err
}

func (r *cohortRepo) IsEnrolled(ctx context.Context, cohortID, learnerID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.CohortEnrollment{}).
		Where("cohort_id = ? AND learner_id = ? AND is_active = ?", cohortID, learnerID, true).
		Count(&n).Error
	return n > 0, err
}
