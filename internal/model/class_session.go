package model

import (
	"time"

	"ficha-attendance/backend/pkg/timewindow"
)

// ClassSession 具体某一天的一次课，对应 class_sessions
// 由周时段生成或临时创建；被考勤记录引用后只做逻辑停用
type ClassSession struct {
	SessionID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	SlotID           *string   `gorm:"type:uuid"                                      json:"slot_id,omitempty"` // 临时课为空
	TrimesterID      *string   `gorm:"type:uuid"                                      json:"trimester_id,omitempty"`
	InstructorID     string    `gorm:"type:uuid;not null"                             json:"instructor_id"`
	CohortID         string    `gorm:"type:uuid;not null;index:idx_session_cohort_date" json:"cohort_id"`
	Competence       string    `gorm:"type:varchar(200);not null"                     json:"competence"`
	SessionDate      time.Time `gorm:"type:date;not null;index:idx_session_cohort_date" json:"session_date"`
	StartTime        string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime          string    `gorm:"type:time;not null"                             json:"end_time"`
	ClassroomID      *string   `gorm:"type:uuid"                                      json:"classroom_id,omitempty"`
	ToleranceMinutes int       `gorm:"not null"                                       json:"tolerance_minutes"` // 0 合法，不能用 gorm default
	IsActive         bool      `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Cohort    *Cohort    `gorm:"foreignKey:CohortID;references:CohortID"       json:"cohort,omitempty"`
	Classroom *Classroom `gorm:"foreignKey:ClassroomID;references:ClassroomID" json:"classroom,omitempty"`
}

// TableName 指定表名
func (ClassSession) TableName() string { return "class_sessions" }

// Window 解析上课区间
func (s *ClassSession) Window() (timewindow.Window, error) {
	return timewindow.ParseWindow(s.StartTime, s.EndTime)
}
