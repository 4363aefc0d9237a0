package dto

// ── 考勤模块 DTO ──

// ManualMarkRequest 讲师人工标记考勤
// status 接受规范值及西语别名（presente / tarde / ausente / excusado ...）
type ManualMarkRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"  binding:"omitempty,max=500"`
}

// AttendanceRecordResponse 考勤记录响应
type AttendanceRecordResponse struct {
	RecordID    string  `json:"record_id"`
	SessionID   string  `json:"session_id"`
	SessionDate string  `json:"session_date,omitempty"`
	LearnerID   string  `json:"learner_id"`
	LearnerName string  `json:"learner_name,omitempty"`
	Status      string  `json:"status"`
	StatusLabel string  `json:"status_label"`
	Source      string  `json:"source"`
	ArrivedAt   *string `json:"arrived_at,omitempty"`
	MarkedBy    *string `json:"marked_by,omitempty"`
	MarkedAt    string  `json:"marked_at"`
	Notes       *string `json:"notes,omitempty"`
	Version     int     `json:"version"`
}

// SessionAttendanceResponse 单个课次的考勤明细
type SessionAttendanceResponse struct {
	Session         SessionResponse            `json:"session"`
	DefaultsCreated int                        `json:"defaults_created"`
	Records         []AttendanceRecordResponse `json:"records"`
}

// SweepResult 缺勤补录执行结果
type SweepResult struct {
	Date            string `json:"date"`
	SessionsChecked int    `json:"sessions_checked"`
	SessionsSwept   int    `json:"sessions_swept"`
	DefaultsCreated int    `json:"defaults_created"`
	Failed          int    `json:"failed"`
}
