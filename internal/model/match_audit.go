package model

import (
	"time"

	"gorm.io/datatypes"
)

// 匹配结论
const (
	MatchMatched        = "MATCHED"
	MatchAmbiguous      = "AMBIGUOUS"
	MatchNoSessionToday = "NO_SESSION_TODAY"
	MatchOutsideWindow  = "OUTSIDE_WINDOW"
)

// MatchAudit 门禁事件匹配审计，对应 match_audits
type MatchAudit struct {
	AuditID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"audit_id"`
	AccessEventID       string         `gorm:"type:uuid;not null;index"                       json:"access_event_id"`
	LearnerID           string         `gorm:"type:uuid;not null"                             json:"learner_id"`
	Outcome             string         `gorm:"type:varchar(20);not null"                      json:"outcome"`
	ChosenSessionID     *string        `gorm:"type:uuid"                                      json:"chosen_session_id,omitempty"`
	CandidateSessionIDs datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'"               json:"candidate_session_ids"`
	CreatedAt           time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (MatchAudit) TableName() string { return "match_audits" }
