package model

import (
	"errors"
	"time"
)

// ErrAlreadyLocked 闩锁已锁定，拒绝任何修改
var ErrAlreadyLocked = errors.New("attendance lock already set")

// LatchState 考勤闩锁状态：Open → Locked，Locked 为终态
type LatchState int

const (
	LatchOpen LatchState = iota
	LatchLocked
)

func (s LatchState) String() string {
	if s == LatchLocked {
		return "locked"
	}
	return "open"
}

// AttendanceLock 考勤日锁，对应 attendance_locks，每个日期至多一条
type AttendanceLock struct {
	AttendanceLockID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"attendance_lock_id"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex"                 json:"date"`
	IsLocked         bool      `gorm:"not null;default:false"                         json:"is_locked"`
	Stamp
}

// TableName 指定表名
func (AttendanceLock) TableName() string { return "attendance_locks" }

// State 当前状态
func (a *AttendanceLock) State() LatchState {
	if a.IsLocked {
		return LatchLocked
	}
	return LatchOpen
}

// Apply 受保护的状态迁移
//   - Locked：任何更新都返回 ErrAlreadyLocked
//   - Open + false：无变化
//   - Open + true：迁移到 Locked
func (a *AttendanceLock) Apply(want bool) (changed bool, err error) {
	if a.State() == LatchLocked {
		return false, ErrAlreadyLocked
	}
	if !want {
		return false, nil
	}
	a.IsLocked = true
	return true, nil
}
