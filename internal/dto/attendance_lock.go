package dto

import "time"

// CreateAttendanceLockRequest 创建考勤日锁
type CreateAttendanceLockRequest struct {
	Date     string `json:"date"      binding:"required,datetime=2006-01-02"`
	IsLocked bool   `json:"is_locked"`
}

// UpdateAttendanceLockRequest 更新考勤日锁（只能从未锁定变为锁定）
type UpdateAttendanceLockRequest struct {
	Date     string `json:"date"      binding:"required,datetime=2006-01-02"`
	IsLocked *bool  `json:"is_locked" binding:"required"`
}

// AttendanceLockQuery GET /attendance-locks 查询参数，缺省为当天
type AttendanceLockQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// AttendanceLockResponse 考勤日锁响应
type AttendanceLockResponse struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	IsLocked     bool      `json:"is_locked"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
}

// LastModifiedAt 实现 condcache.Stamped
func (r AttendanceLockResponse) LastModifiedAt() time.Time { return r.LastModified }

// AttendanceDaysResponse 已锁定（上课日）与未锁定（非上课日）的日期
type AttendanceDaysResponse struct {
	WorkingDays    []string `json:"working_days"`
	NonWorkingDays []string `json:"non_working_days"`

	LastModified time.Time `json:"-"`
}

// LastModifiedAt 实现 condcache.Stamped
func (r AttendanceDaysResponse) LastModifiedAt() time.Time { return r.LastModified }
