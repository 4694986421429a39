package model

import "time"

// ResultLock 成绩录入时间窗口，对应 result_locks
// 仅在 [StartDate, EndDate]（两端均含）内允许教师录入或修改成绩
type ResultLock struct {
	ResultLockID string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"result_lock_id"`
	Title        string    `gorm:"type:varchar(100);not null;uniqueIndex"          json:"title"`
	StartDate    time.Time `gorm:"type:timestamptz;not null"                      json:"start_date"`
	EndDate      time.Time `gorm:"type:timestamptz;not null"                      json:"end_date"`
	Stamp
}

// TableName 指定表名
func (ResultLock) TableName() string { return "result_locks" }

// IsActive t 是否落在窗口内
func (l *ResultLock) IsActive(t time.Time) bool {
	return !t.Before(l.StartDate) && !t.After(l.EndDate)
}

// LastTransition now 之前最近一次 IsActive 发生翻转的时刻；尚未开始时返回零值
// 窗口在 StartDate 打开，在 EndDate 之后的第一个微秒关闭
func (l *ResultLock) LastTransition(now time.Time) time.Time {
	closed := l.EndDate.Add(time.Microsecond)
	switch {
	case !now.Before(closed):
		return closed
	case !now.Before(l.StartDate):
		return l.StartDate
	default:
		return time.Time{}
	}
}

// EffectiveModifiedAt 表示层的有效修改时间：IsActive 随时间变化，窗口边界也计入
func (l *ResultLock) EffectiveModifiedAt(now time.Time) time.Time {
	at := l.LastModified
	if tr := l.LastTransition(now); tr.After(at) {
		at = tr
	}
	return at
}
