package dto

// ── 周排课时段模块 DTO ──

// ScheduleSlotRequest 新建时段 / 冲突预检请求
type ScheduleSlotRequest struct {
	TrimesterID      string  `json:"trimester_id"      binding:"required,uuid"`
	DayOfWeek        int     `json:"day_of_week"       binding:"required"`
	StartTime        string  `json:"start_time"        binding:"required"` // HH:MM
	EndTime          string  `json:"end_time"          binding:"required"`
	Competence       string  `json:"competence"        binding:"required,min=1,max=200"`
	InstructorID     string  `json:"instructor_id"     binding:"required,uuid"`
	CohortID         string  `json:"cohort_id"         binding:"required,uuid"`
	ClassroomID      *string `json:"classroom_id"      binding:"omitempty,uuid"`
	ToleranceMinutes *int    `json:"tolerance_minutes"` // 为空时取系统默认
}

// ScheduleSlotListRequest 时段列表查询参数
type ScheduleSlotListRequest struct {
	TrimesterID  string `form:"trimester_id"  binding:"omitempty,uuid"`
	CohortID     string `form:"cohort_id"     binding:"omitempty,uuid"`
	InstructorID string `form:"instructor_id" binding:"omitempty,uuid"`
}

// GenerateSessionsRequest 按周时段批量生成课次
type GenerateSessionsRequest struct {
	TrimesterID string `json:"trimester_id" binding:"required,uuid"`
	From        string `json:"from"         binding:"required"`
	To          string `json:"to"           binding:"required"`
}

// ── 响应 ──

// ScheduleSlotResponse 时段响应
type ScheduleSlotResponse struct {
	ID               string  `json:"id"`
	TrimesterID      string  `json:"trimester_id"`
	DayOfWeek        int     `json:"day_of_week"`
	StartTime        string  `json:"start_time"`
	EndTime          string  `json:"end_time"`
	Competence       string  `json:"competence"`
	InstructorID     string  `json:"instructor_id"`
	CohortID         string  `json:"cohort_id"`
	ClassroomID      *string `json:"classroom_id,omitempty"`
	ToleranceMinutes int     `json:"tolerance_minutes"`
	IsActive         bool    `json:"is_active"`
	Version          int     `json:"version"`
}

// BlockSummary 已占用时段概要（冲突明细中使用）
type BlockSummary struct {
	ID           string  `json:"id"`
	Kind         string  `json:"kind"` // slot | session
	DayOfWeek    int     `json:"day_of_week"`
	Date         string  `json:"date,omitempty"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	InstructorID string  `json:"instructor_id"`
	ClassroomID  *string `json:"classroom_id,omitempty"`
	CohortID     string  `json:"cohort_id"`
	Competence   string  `json:"competence"`
}

// ScheduleConflict 单项冲突
type ScheduleConflict struct {
	Dimension           string       `json:"dimension"` // INSTRUCTOR_BUSY | CLASSROOM_OCCUPIED | FICHA_BUSY
	ExistingSlotSummary BlockSummary `json:"existing_slot_summary"`
}

// ConflictCheckResponse 冲突预检结果
type ConflictCheckResponse struct {
	HasConflict bool               `json:"has_conflict"`
	Conflicts   []ScheduleConflict `json:"conflicts"`
}

// GenerateSessionsResponse 批量生成课次结果
type GenerateSessionsResponse struct {
	From       string             `json:"from"`
	To         string             `json:"to"`
	Candidates int                `json:"candidates"`
	Created    int64              `json:"created"`
	Skipped    int64              `json:"skipped"` // 已存在的 (slot, date)
	Conflicted int                `json:"conflicted"`
	Conflicts  []GenerateConflict `json:"conflicts"`
}

// GenerateConflict 因与当天已有课次冲突而未生成的 (slot, date)
type GenerateConflict struct {
	SlotID      string             `json:"slot_id"`
	SessionDate string             `json:"session_date"`
	Conflicts   []ScheduleConflict `json:"conflicts"`
}
