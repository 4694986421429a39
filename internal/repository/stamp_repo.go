package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
)

// StampRepository 集合级时间戳（由 bump_collection_stamp 触发器维护，只读）
type StampRepository interface {
	// Get 集合从未写入过时 ok=false
	Get(ctx context.Context, collection string) (at time.Time, ok bool, err error)
	// Now 数据库事务时刻；在 ReadSnapshot 中调用时与快照一致，不受应用服务器时钟偏差影响
	Now(ctx context.Context) (time.Time, error)
}

type stampRepo struct {
	db *gorm.DB
}

// NewStampRepo 创建 StampRepository 实例
func NewStampRepo(db *gorm.DB) StampRepository {
	return &stampRepo{db: db}
}

func (r *stampRepo) Get(ctx context.Context, collection string) (time.Time, bool, error) {
	var stamp model.CollectionStamp
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		First(&stamp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return stamp.LastModified, true, nil
}

func (r *stampRepo) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.WithContext(ctx).Raw("SELECT now()").Scan(&now).Error; err != nil {
		return time.Time{}, err
	}
	return now.UTC(), nil
}
