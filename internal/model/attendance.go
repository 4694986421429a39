package model

import "time"

// 考勤状态
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

// Attendance 考勤表，对应 attendance，(student_code, date) 唯一
type Attendance struct {
	AttendanceID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_id"`
	StudentCode  string    `gorm:"type:varchar(100);not null"                     json:"student_code"`
	Date         time.Time `gorm:"type:date;not null"                             json:"date"`
	Status       string    `gorm:"type:varchar(10);not null"                      json:"status"`
	Stamp
}

// TableName 指定表名
func (Attendance) TableName() string { return "attendance" }
