package dto

// ── 考勤统计 DTO ──

// AttendanceStats 计数与出勤率
type AttendanceStats struct {
	Total      int     `json:"total"`
	Present    int     `json:"present"`
	Late       int     `json:"late"`
	Absent     int     `json:"absent"`
	Excused    int     `json:"excused"`
	Percentage float64 `json:"percentage"` // 一位小数
}

// SessionStatsResponse 单课次统计
type SessionStatsResponse struct {
	SessionID string `json:"session_id"`
	AttendanceStats
}

// LearnerStats 学员维度统计
type LearnerStats struct {
	LearnerID   string `json:"learner_id"`
	LearnerName string `json:"learner_name,omitempty"`
	AttendanceStats
}

// DateStats 日期维度统计
type DateStats struct {
	Date string `json:"date"`
	AttendanceStats
}

// CohortStatsResponse ficha 区间统计
type CohortStatsResponse struct {
	CohortID  string          `json:"cohort_id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Sessions  int             `json:"sessions"`
	Overall   AttendanceStats `json:"overall"`
	ByLearner []LearnerStats  `json:"by_learner"`
	ByDate    []DateStats     `json:"by_date"`
}
