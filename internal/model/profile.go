package model

// 人员角色
const (
	RoleAdmin         = "admin"
	RoleInstructor    = "instructor"
	RoleLearner       = "learner"
	RoleAccessControl = "access_control" // 门禁签到服务账号
)

// Profile 人员档案，对应 profiles（由外部档案服务维护，本服务只读）
type Profile struct {
	ProfileID      string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"profile_id"`
	FullName       string `gorm:"type:varchar(150);not null"                     json:"full_name"`
	DocumentNumber string `gorm:"type:varchar(30);not null;uniqueIndex"          json:"document_number"`
	Role           string `gorm:"type:varchar(20);not null"                      json:"role"` // admin | instructor | learner
	IsActive       bool   `gorm:"not null;default:true"                          json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// [自证通过] internal/model/profile.go
