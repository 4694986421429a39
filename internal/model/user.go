package model

// User 用户表，对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string  `gorm:"type:varchar(150);not null;uniqueIndex"          json:"username"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	Role         string  `gorm:"type:varchar(20);not null"                      json:"role"` // student | faculty | office_admin
	IsVerified   bool    `gorm:"not null;default:false"                         json:"is_verified"`
	StudentCode  *string `gorm:"type:varchar(100);uniqueIndex"                  json:"student_code,omitempty"`
	Stamp
}

// TableName 指定表名
func (User) TableName() string { return "users" }
