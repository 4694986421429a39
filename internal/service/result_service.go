package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

// ResultService 成绩业务接口
//
// 写入规则：
//   - 教师的创建、修改、删除都必须落在所引用成绩窗口的开放期内
//   - 教务管理员删除成绩不受窗口限制
//   - 学生只能读取自己的成绩
type ResultService interface {
	Create(ctx context.Context, pr *authz.Principal, req *dto.CreateResultRequest) (*dto.ResultResponse, error)
	GetByID(ctx context.Context, pr *authz.Principal, id string) (*dto.ResultResponse, error)
	List(ctx context.Context, pr *authz.Principal, q *dto.ResultListQuery, since *time.Time) (*Listing[dto.ResultResponse], error)
	Update(ctx context.Context, pr *authz.Principal, id string, req *dto.UpdateResultRequest) (*dto.ResultResponse, error)
	Delete(ctx context.Context, pr *authz.Principal, id string) error
}

type resultService struct {
	repo   *repository.Repository
	guard  *MutationGuard
	logger *zap.Logger
}

// NewResultService 创建 ResultService 实例
func NewResultService(repo *repository.Repository, guard *MutationGuard, logger *zap.Logger) ResultService {
	return &resultService{repo: repo, guard: guard, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *resultService) Create(ctx context.Context, pr *authz.Principal, req *dto.CreateResultRequest) (*dto.ResultResponse, error) {
	result := &model.Result{
		ResultLock:  req.ResultLock,
		StudentCode: req.StudentCode,
		Subject:     req.Subject,
		Marks:       *req.Marks,
		TotalMarks:  req.TotalMarks,
	}
	if err := validateResult(result); err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, req.StudentCode); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := s.checkLock(ctx, tx, result.ResultLock); err != nil {
			return err
		}
		return tx.Result.Create(ctx, result)
	})
	if err != nil {
		return nil, s.translateWriteErr(err, "创建成绩失败")
	}

	s.logger.Info("成绩已录入",
		zap.String("id", result.ResultID),
		zap.String("result_lock", result.ResultLock),
		zap.String("operator", pr.UserID),
	)
	return toResultResponse(result), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *resultService) GetByID(ctx context.Context, pr *authz.Principal, id string) (*dto.ResultResponse, error) {
	result, err := s.repo.Result.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultNotFound
		}
		s.logger.Error("查询成绩失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	// 学生查看他人成绩按不存在处理
	if pr.Role == authz.RoleStudent && result.StudentCode != pr.StudentCode {
		return nil, ErrResultNotFound
	}
	return toResultResponse(result), nil
}

// ────────────────────── List ──────────────────────

func (s *resultService) List(ctx context.Context, pr *authz.Principal, q *dto.ResultListQuery, since *time.Time) (*Listing[dto.ResultResponse], error) {
	filter := repository.ResultFilter{
		ResultLock:  q.ResultLock,
		StudentCode: q.StudentCode,
		Subject:     q.Subject,
	}
	if pr.Role == authz.RoleStudent {
		if pr.StudentCode == "" {
			return &Listing[dto.ResultResponse]{Items: []dto.ResultResponse{}}, nil
		}
		filter.StudentCode = pr.StudentCode
	}
	opts := repository.ListOptions{
		Since:  since,
		Offset: q.GetOffset(),
		Limit:  q.GetPageSize(),
	}

	var results []model.Result
	var total int64
	var stamp *time.Time
	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		at, ok, err := tx.Stamp.Get(ctx, model.CollectionResults)
		if err != nil {
			return err
		}
		if ok {
			stamp = &at
		}
		results, total, err = tx.Result.List(ctx, filter, opts)
		return err
	})
	if err != nil {
		s.logger.Error("查询成绩列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.ResultResponse, 0, len(results))
	for i := range results {
		items = append(items, *toResultResponse(&results[i]))
	}
	return &Listing[dto.ResultResponse]{Items: items, Total: total, Stamp: stamp}, nil
}

// ────────────────────── Update ──────────────────────

func (s *resultService) Update(ctx context.Context, pr *authz.Principal, id string, req *dto.UpdateResultRequest) (*dto.ResultResponse, error) {
	var result *model.Result

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		result, err = tx.Result.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResultNotFound
			}
			return err
		}
		if req.Version != nil && *req.Version != result.Version {
			return pkgerrors.ErrOptimisticLock
		}

		original := result.ResultLock
		if req.ResultLock != nil {
			result.ResultLock = *req.ResultLock
		}
		if req.Subject != nil {
			result.Subject = *req.Subject
		}
		if req.Marks != nil {
			result.Marks = *req.Marks
		}
		if req.TotalMarks.Set {
			result.TotalMarks = req.TotalMarks.Value
		}
		if err := validateResult(result); err != nil {
			return err
		}

		// 移出原窗口与移入新窗口都算对两个窗口的修改
		if original != result.ResultLock {
			if err := s.checkLock(ctx, tx, original); err != nil {
				return err
			}
		}
		if err := s.checkLock(ctx, tx, result.ResultLock); err != nil {
			return err
		}
		return tx.Result.Update(ctx, result, req.Version)
	})
	if err != nil {
		return nil, s.translateWriteErr(err, "更新成绩失败")
	}

	s.logger.Info("成绩已修改", zap.String("id", id), zap.String("operator", pr.UserID))
	return toResultResponse(result), nil
}

// ────────────────────── Delete ──────────────────────

func (s *resultService) Delete(ctx context.Context, pr *authz.Principal, id string) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		result, err := tx.Result.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResultNotFound
			}
			return err
		}
		if pr.Role != authz.RoleOfficeAdmin {
			if err := s.checkLock(ctx, tx, result.ResultLock); err != nil {
				return err
			}
		}
		return tx.Result.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResultNotFound
		}
		return s.translateWriteErr(err, "删除成绩失败")
	}

	s.logger.Info("成绩已删除", zap.String("id", id), zap.String("operator", pr.UserID))
	return nil
}

// ── 辅助函数 ──

// checkLock 在事务内以 FOR SHARE 读取窗口并立即校验
func (s *resultService) checkLock(ctx context.Context, tx *repository.Repository, title string) error {
	lock, err := tx.ResultLock.GetByTitleForShare(ctx, title)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResultLockRefNotFound
		}
		return err
	}
	return s.guard.ResultLockOpen(lock)
}

func (s *resultService) ensureStudent(ctx context.Context, code string) error {
	found, err := s.repo.User.ExistingStudentCodes(ctx, []string{code})
	if err != nil {
		s.logger.Error("校验学号失败", zap.Error(err))
		return err
	}
	if len(found) == 0 {
		return ErrUnknownStudent.WithMessage("学生 %s 不存在", code)
	}
	return nil
}

func (s *resultService) translateWriteErr(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrResultDuplicate
	case errors.Is(err, repository.ErrForeignKey):
		return ErrResultLockRefNotFound
	case errors.Is(err, repository.ErrCheckViolation):
		return ErrResultMarksExceed
	}
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func validateResult(r *model.Result) error {
	switch err := r.Validate(); {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrMarksNegative):
		return ErrResultMarksNegative
	case errors.Is(err, model.ErrTotalNegative):
		return ErrResultTotalNegative
	default:
		return ErrResultMarksExceed.WithMessage("分数 %v 超过满分 %v", r.Marks, *r.TotalMarks)
	}
}

func toResultResponse(r *model.Result) *dto.ResultResponse {
	return &dto.ResultResponse{
		ID:           r.ResultID,
		ResultLock:   r.ResultLock,
		StudentCode:  r.StudentCode,
		Subject:      r.Subject,
		Marks:        r.Marks,
		TotalMarks:   r.TotalMarks,
		Percentage:   r.Percentage(),
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		LastModified: r.LastModified,
	}
}
