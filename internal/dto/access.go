package dto

import "time"

// ── 门禁事件模块 DTO ──

// AccessEventRequest 刷卡事件上报
// event_id 由设备生成时可安全重放
type AccessEventRequest struct {
	EventID    *string   `json:"event_id"    binding:"omitempty,uuid"`
	ProfileID  string    `json:"profile_id"  binding:"required,uuid"`
	OccurredAt time.Time `json:"occurred_at"` // 为空时取服务端当前时间
	DeviceID   string    `json:"device_id"   binding:"omitempty,max=60"`
}

// AccessEventResponse 出门事件响应
type AccessEventResponse struct {
	EventID    string `json:"event_id"`
	ProfileID  string `json:"profile_id"`
	Direction  string `json:"direction"`
	OccurredAt string `json:"occurred_at"`
	Duplicate  bool   `json:"duplicate"`
}

// MatchOutcome 入门事件匹配结果
// matched=false 时 reason 为 NoSessionToday | OutsideWindow
type MatchOutcome struct {
	EventID             string   `json:"event_id"`
	Matched             bool     `json:"matched"`
	SessionID           *string  `json:"session_id,omitempty"`
	Status              string   `json:"status,omitempty"`
	StatusLabel         string   `json:"status_label,omitempty"`
	Source              string   `json:"source,omitempty"`
	Ambiguous           bool     `json:"ambiguous"`
	CandidateSessionIDs []string `json:"candidate_session_ids,omitempty"`
	Reason              string   `json:"reason,omitempty"`
	Duplicate           bool     `json:"duplicate"`
}

// 未匹配原因
const (
	ReasonNoSessionToday = "NoSessionToday"
	ReasonOutsideWindow  = "OutsideWindow"
)
