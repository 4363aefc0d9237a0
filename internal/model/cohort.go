package model

// Cohort 教学班（ficha），对应 cohorts
type Cohort struct {
	CohortID    string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"cohort_id"`
	Code        string `gorm:"type:varchar(20);not null;uniqueIndex"          json:"code"` // ficha 编号
	ProgramName string `gorm:"type:varchar(200);not null"                     json:"program_name"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Cohort) TableName() string { return "cohorts" }

// CohortEnrollment 学员在册名单，对应 cohort_enrollments
type CohortEnrollment struct {
	EnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	CohortID     string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"cohort_id"`
	LearnerID    string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"learner_id"`
	IsActive     bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel

	// 关联
	Learner *Profile `gorm:"foreignKey:LearnerID;references:ProfileID" json:"learner,omitempty"`
}

// TableName 指定表名
func (CohortEnrollment) TableName() string { return "cohort_enrollments" }
