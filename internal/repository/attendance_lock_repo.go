package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
)

// AttendanceLockRepository 考勤日锁数据访问接口
type AttendanceLockRepository interface {
	Create(ctx context.Context, lock *model.AttendanceLock) error
	GetByDate(ctx context.Context, date time.Time) (*model.AttendanceLock, error)
	// GetByDatesForShare SELECT ... FOR SHARE，须在事务中调用
	GetByDatesForShare(ctx context.Context, dates []time.Time) ([]model.AttendanceLock, error)
	// GetByDateForUpdate SELECT ... FOR UPDATE，须在事务中调用
	GetByDateForUpdate(ctx context.Context, date time.Time) (*model.AttendanceLock, error)
	// Lock 条件更新 is_locked=false → true；返回 false 表示该日期不存在或已锁定
	Lock(ctx context.Context, lock *model.AttendanceLock) (bool, error)
	List(ctx context.Context, since *time.Time) ([]model.AttendanceLock, error)
}

type attendanceLockRepo struct {
	db *gorm.DB
}

// NewAttendanceLockRepo 创建 AttendanceLockRepository 实例
func NewAttendanceLockRepo(db *gorm.DB) AttendanceLockRepository {
	return &attendanceLockRepo{db: db}
}

func (r *attendanceLockRepo) Create(ctx context.Context, lock *model.AttendanceLock) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(lock).Error)
}

func (r *attendanceLockRepo) GetByDate(ctx context.Context, date time.Time) (*model.AttendanceLock, error) {
	var lock model.AttendanceLock
	err := r.db.WithContext(ctx).
		Where("date = ?", dateParam(date)).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *attendanceLockRepo) GetByDatesForShare(ctx context.Context, dates []time.Time) ([]model.AttendanceLock, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	params := make([]string, 0, len(dates))
	for _, d := range dates {
		params = append(params, dateParam(d))
	}
	var locks []model.AttendanceLock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("date IN ?", params).
		Find(&locks).Error
	return locks, err
}

func (r *attendanceLockRepo) GetByDateForUpdate(ctx context.Context, date time.Time) (*model.AttendanceLock, error) {
	var lock model.AttendanceLock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("date = ?", dateParam(date)).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *attendanceLockRepo) Lock(ctx context.Context, lock *model.AttendanceLock) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(lock).
		Clauses(clause.Returning{}).
		Where("date = ? AND is_locked = ?", dateParam(lock.Date), false).
		Update("is_locked", true)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *attendanceLockRepo) List(ctx context.Context, since *time.Time) ([]model.AttendanceLock, error) {
	var locks []model.AttendanceLock
	db := r.db.WithContext(ctx)
	if since != nil {
		db = db.Where("last_modified > ?", *since)
	}
	err := db.Order("date ASC").Find(&locks).Error
	return locks, err
}
