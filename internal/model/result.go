package model

import (
	"errors"
	"math"
)

var (
	ErrMarksNegative    = errors.New("marks must not be negative")
	ErrMarksExceedTotal = errors.New("marks must not exceed total marks")
	ErrTotalNegative    = errors.New("total marks must not be negative")
)

// Result 成绩表，对应 results
// 通过 result_lock（标题）关联成绩窗口，百分比在读取时计算，不落库
type Result struct {
	ResultID    string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"result_id"`
	ResultLock  string   `gorm:"column:result_lock;type:varchar(100);not null"  json:"result_lock"`
	StudentCode string   `gorm:"type:varchar(100);not null"                     json:"student_code"`
	Subject     string   `gorm:"type:varchar(255);not null"                     json:"subject"`
	Marks       float64  `gorm:"not null"                                       json:"marks"`
	TotalMarks  *float64 `gorm:""                                               json:"total_marks,omitempty"`
	Version     int      `gorm:"not null;default:1"                             json:"version"`
	Stamp
}

// TableName 指定表名
func (Result) TableName() string { return "results" }

// Percentage marks*100/total_marks，保留两位小数；无满分或满分为 0 时返回 0
func (r *Result) Percentage() float64 {
	if r.TotalMarks == nil || *r.TotalMarks == 0 {
		return 0
	}
	p := r.Marks * 100 / *r.TotalMarks
	return math.Round(p*100) / 100
}

// Validate 分数约束
func (r *Result) Validate() error {
	if r.Marks < 0 {
		return ErrMarksNegative
	}
	if r.TotalMarks != nil {
		if *r.TotalMarks < 0 {
			return ErrTotalNegative
		}
		if r.Marks > *r.TotalMarks {
			return ErrMarksExceedTotal
		}
	}
	return nil
}
