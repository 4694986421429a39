package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User           UserRepository
	ResultLock     ResultLockRepository
	AttendanceLock AttendanceLockRepository
	Result         ResultRepository
	Attendance     AttendanceRepository
	Stamp          StampRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:             db,
		User:           NewUserRepo(db),
		ResultLock:     NewResultLockRepo(db),
		AttendanceLock: NewAttendanceLockRepo(db),
		Result:         NewResultRepo(db),
		Attendance:     NewAttendanceRepo(db),
		Stamp:          NewStampRepo(db),
	}
}

// BeginTx 开启事务；单元测试中 db 为 nil，返回 nil 事务
func (r *Repository) BeginTx(ctx context.Context, opts ...*sql.TxOptions) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin(opts...)
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在事务中执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error, opts ...*sql.TxOptions) error {
	tx, err := r.BeginTx(ctx, opts...)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return translate(tx.Commit().Error)
}

// ReadSnapshot 在只读 REPEATABLE READ 事务中执行 fn
// 集合时间戳与列表在同一快照中读取，校验器不会领先于响应内容
func (r *Repository) ReadSnapshot(ctx context.Context, fn func(txRepo *Repository) error) error {
	return r.Transaction(ctx, fn, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

// ListOptions 列表查询的通用参数
type ListOptions struct {
	// Since 非空时只返回 last_modified 晚于该时间的记录（条件请求收窄）
	Since  *time.Time
	Offset int
	Limit  int // <= 0 表示不分页
}

func (o ListOptions) apply(db *gorm.DB) *gorm.DB {
	if o.Offset > 0 {
		db = db.Offset(o.Offset)
	}
	if o.Limit > 0 {
		db = db.Limit(o.Limit)
	}
	return db
}

// DATE 列参数统一以 YYYY-MM-DD 传入，避免会话时区影响
func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}
