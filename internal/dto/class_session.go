package dto

// ── 课次模块 DTO ──

// CreateSessionRequest 新建临时课次请求
type CreateSessionRequest struct {
	TrimesterID      *string `json:"trimester_id"      binding:"omitempty,uuid"`
	InstructorID     string  `json:"instructor_id"     binding:"required,uuid"`
	CohortID         string  `json:"cohort_id"         binding:"required,uuid"`
	Competence       string  `json:"competence"        binding:"required,min=1,max=200"`
	SessionDate      string  `json:"session_date"      binding:"required"` // YYYY-MM-DD
	StartTime        string  `json:"start_time"        binding:"required"`
	EndTime          string  `json:"end_time"          binding:"required"`
	ClassroomID      *string `json:"classroom_id"      binding:"omitempty,uuid"`
	ToleranceMinutes *int    `json:"tolerance_minutes"`
}

// SessionListRequest 课次列表查询参数
type SessionListRequest struct {
	CohortID     string `form:"cohort_id"     binding:"omitempty,uuid"`
	InstructorID string `form:"instructor_id" binding:"omitempty,uuid"`
	From         string `form:"from"`
	To           string `form:"to"`
	PaginationRequest
}

// SessionResponse 课次响应
type SessionResponse struct {
	ID               string  `json:"id"`
	SlotID           *string `json:"slot_id,omitempty"`
	TrimesterID      *string `json:"trimester_id,omitempty"`
	InstructorID     string  `json:"instructor_id"`
	CohortID         string  `json:"cohort_id"`
	Competence       string  `json:"competence"`
	SessionDate      string  `json:"session_date"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	ClassroomID      *string `json:"classroom_id,omitempty"`
	ToleranceMinutes int     `json:"tolerance_minutes"`
	IsActive         bool    `json:"is_active"`
	Version          int     `json:"version"`
}
