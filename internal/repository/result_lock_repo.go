package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
)

// ResultLockRepository 成绩窗口数据访问接口
type ResultLockRepository interface {
	Create(ctx context.Context, lock *model.ResultLock) error
	GetByID(ctx context.Context, id string) (*model.ResultLock, error)
	// GetByTitleForShare SELECT ... FOR SHARE，须在事务中调用
	// 持锁期间管理员对该窗口的修改会被阻塞，直到依赖写入提交
	GetByTitleForShare(ctx context.Context, title string) (*model.ResultLock, error)
	// List since 非空时返回有效修改时间晚于 since 的窗口（含 since 之后越过边界的窗口）
	List(ctx context.Context, since *time.Time, now time.Time) ([]model.ResultLock, error)
	Update(ctx context.Context, lock *model.ResultLock) error
	Delete(ctx context.Context, id string) error
}

type resultLockRepo struct {
	db *gorm.DB
}

// NewResultLockRepo 创建 ResultLockRepository 实例
func NewResultLockRepo(db *gorm.DB) ResultLockRepository {
	return &resultLockRepo{db: db}
}

func (r *resultLockRepo) Create(ctx context.Context, lock *model.ResultLock) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(lock).Error)
}

func (r *resultLockRepo) GetByID(ctx context.Context, id string) (*model.ResultLock, error) {
	var lock model.ResultLock
	err := r.db.WithContext(ctx).
		Where("result_lock_id = ?", id).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *resultLockRepo) GetByTitleForShare(ctx context.Context, title string) (*model.ResultLock, error) {
	var lock model.ResultLock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "SHARE"}).
		Where("title = ?", title).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *resultLockRepo) List(ctx context.Context, since *time.Time, now time.Time) ([]model.ResultLock, error) {
	var locks []model.ResultLock
	db := r.db.WithContext(ctx)
	if since != nil {
		// 行被修改，或窗口在 (since, now] 内打开 / 关闭（关闭时刻为 end_date 之后 1µs）
		db = db.Where(
			"last_modified > ? OR (start_date > ? AND start_date <= ?) OR (end_date >= ? AND end_date < ?)",
			*since, *since, now, *since, now,
		)
	}
	err := db.Order("last_modified ASC").Find(&locks).Error
	return locks, err
}

func (r *resultLockRepo) Update(ctx context.Context, lock *model.ResultLock) error {
	result := r.db.WithContext(ctx).
		Model(lock).
		Clauses(clause.Returning{}).
		Where("result_lock_id = ?", lock.ResultLockID).
		Updates(map[string]interface{}{
			"title":      lock.Title,
			"start_date": lock.StartDate,
			"end_date":   lock.EndDate,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *resultLockRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("result_lock_id = ?", id).
		Delete(&model.ResultLock{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
