package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
)

// ResultFilter 成绩过滤条件，空字段不参与过滤
type ResultFilter struct {
	ResultLock  string
	StudentCode string
	Subject     string
}

func (f ResultFilter) apply(db *gorm.DB) *gorm.DB {
	if f.ResultLock != "" {
		db = db.Where("result_lock = ?", f.ResultLock)
	}
	if f.StudentCode != "" {
		db = db.Where("student_code = ?", f.StudentCode)
	}
	if f.Subject != "" {
		db = db.Where("subject = ?", f.Subject)
	}
	return db
}

// ResultRepository 成绩数据访问接口
type ResultRepository interface {
	Create(ctx context.Context, result *model.Result) error
	GetByID(ctx context.Context, id string) (*model.Result, error)
	// GetByIDForUpdate SELECT ... FOR UPDATE，须在事务中调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Result, error)
	List(ctx context.Context, filter ResultFilter, opts ListOptions) ([]model.Result, int64, error)
	// Update expectedVersion 非空时按版本号条件更新，不匹配返回 ErrOptimisticLock
	Update(ctx context.Context, result *model.Result, expectedVersion *int) error
	Delete(ctx context.Context, id string) error
}

type resultRepo struct {
	db *gorm.DB
}

// NewResultRepo 创建 ResultRepository 实例
func NewResultRepo(db *gorm.DB) ResultRepository {
	return &resultRepo{db: db}
}

func (r *resultRepo) Create(ctx context.Context, result *model.Result) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(result).Error)
}

func (r *resultRepo) GetByID(ctx context.Context, id string) (*model.Result, error) {
	var result model.Result
	err := r.db.WithContext(ctx).
		Where("result_id = ?", id).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Result, error) {
	var result model.Result
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("result_id = ?", id).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *resultRepo) List(ctx context.Context, filter ResultFilter, opts ListOptions) ([]model.Result, int64, error) {
	var results []model.Result
	var total int64

	db := filter.apply(r.db.WithContext(ctx).Model(&model.Result{}))
	if opts.Since != nil {
		db = db.Where("last_modified > ?", *opts.Since)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := opts.apply(db).
		Order("result_lock ASC, student_code ASC, subject ASC").
		Find(&results).Error; err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (r *resultRepo) Update(ctx context.Context, result *model.Result, expectedVersion *int) error {
	db := r.db.WithContext(ctx).
		Model(result).
		Clauses(clause.Returning{}).
		Where("result_id = ?", result.ResultID)
	if expectedVersion != nil {
		db = db.Where("version = ?", *expectedVersion)
	}

	tx := db.Updates(map[string]interface{}{
		"result_lock": result.ResultLock,
		"subject":     result.Subject,
		"marks":       result.Marks,
		"total_marks": result.TotalMarks,
		"version":     gorm.Expr("version + 1"),
	})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		if expectedVersion != nil {
			return pkgerrors.ErrOptimisticLock
		}
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *resultRepo) Delete(ctx context.Context, id string) error {
	tx := r.db.WithContext(ctx).
		Where("result_id = ?", id).
		Delete(&model.Result{})
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
