package model

import "time"

// Stamp 审计时间戳，由数据库触发器分配（touch_last_modified），应用层只读
// 同一行的每次更新都会让 last_modified 严格递增
type Stamp struct {
	CreatedAt    time.Time `gorm:"<-:false;not null;default:CURRENT_TIMESTAMP"                       json:"created_at"`
	LastModified time.Time `gorm:"column:last_modified;<-:false;not null;default:CURRENT_TIMESTAMP" json:"last_modified"`
}

// LastModifiedAt 实现 condcache.Stamped
func (s Stamp) LastModifiedAt() time.Time { return s.LastModified }

// CollectionStamp 集合级时间戳，对应 collection_stamps
// 任一行增删改后由语句级触发器推进，用于感知删除与空结果集
type CollectionStamp struct {
	Collection   string    `gorm:"type:varchar(64);primaryKey" json:"collection"`
	LastModified time.Time `gorm:"column:last_modified;not null" json:"last_modified"`
}

// TableName 指定表名
func (CollectionStamp) TableName() string { return "collection_stamps" }

// LastModifiedAt 实现 condcache.Stamped
func (c CollectionStamp) LastModifiedAt() time.Time { return c.LastModified }

// 集合名称，与迁移脚本中 bump_collection_stamp 的参数一致
const (
	CollectionResultLocks     = "result_locks"
	CollectionAttendanceLocks = "attendance_locks"
	CollectionResults         = "results"
	CollectionAttendance      = "attendance"
)

// CivilDate 取 t 在其时区中的日历日期，规范化为 UTC 零点（对应 DATE 列）
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
