package dto

// ExportAttendanceRequest 考勤报表导出参数
type ExportAttendanceRequest struct {
	CohortID string `form:"cohort_id" binding:"required,uuid"`
	DateRangeRequest
}

// ExportCalendarRequest 周课表 ICS 导出参数（cohort_id 与 instructor_id 二选一）
type ExportCalendarRequest struct {
	TrimesterID  string `form:"trimester_id"  binding:"required,uuid"`
	CohortID     string `form:"cohort_id"     binding:"omitempty,uuid"`
	InstructorID string `form:"instructor_id" binding:"omitempty,uuid"`
}
