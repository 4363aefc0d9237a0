package model

import "ficha-attendance/backend/pkg/timewindow"

// ScheduleSlot 周循环排课时段，对应 schedule_slots
// 同一学季内，同一 (讲师 | 教室 | ficha, 星期, 时间段) 只允许一个有效时段
type ScheduleSlot struct {
	SlotID           string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"slot_id"`
	TrimesterID      string  `gorm:"type:uuid;not null;index:idx_slot_lookup"       json:"trimester_id"`
	DayOfWeek        int     `gorm:"type:smallint;not null;index:idx_slot_lookup"   json:"day_of_week"` // 1-7（ISO）
	StartTime        string  `gorm:"type:time;not null"                             json:"start_time"`
	EndTime          string  `gorm:"type:time;not null"                             json:"end_time"`
	Competence       string  `gorm:"type:varchar(200);not null"                     json:"competence"`
	InstructorID     string  `gorm:"type:uuid;not null"                             json:"instructor_id"`
	CohortID         string  `gorm:"type:uuid;not null"                             json:"cohort_id"`
	ClassroomID      *string `gorm:"type:uuid"                                      json:"classroom_id,omitempty"`
	ToleranceMinutes int     `gorm:"not null"                                       json:"tolerance_minutes"` // 0 合法，不能用 gorm default
	IsActive         bool    `gorm:"not null;default:true"                          json:"is_active"`
	VersionedModel

	// 关联
	Instructor *Profile   `gorm:"foreignKey:InstructorID;references:ProfileID" json:"instructor,omitempty"`
	Cohort     *Cohort    `gorm:"foreignKey:CohortID;references:CohortID"      json:"cohort,omitempty"`
	Classroom  *Classroom `gorm:"foreignKey:ClassroomID;references:ClassroomID" json:"classroom,omitempty"`
}

// TableName 指定表名
func (ScheduleSlot) TableName() string { return "schedule_slots" }

// Window 解析时段区间
func (s *ScheduleSlot) Window() (timewindow.Window, error) {
	return timewindow.ParseWindow(s.StartTime, s.EndTime)
}
