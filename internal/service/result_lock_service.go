package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
)

// ResultLockService 成绩窗口业务接口
type ResultLockService interface {
	Create(ctx context.Context, req *dto.CreateResultLockRequest) (*dto.ResultLockResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ResultLockResponse, error)
	// List since 非空时只返回 since 之后有变化的窗口
	List(ctx context.Context, since *time.Time) (*Listing[dto.ResultLockResponse], error)
	// ListActive 当前开放的窗口；校验器覆盖全部窗口，任一窗口开闭都会改变结果
	ListActive(ctx context.Context) (*Listing[dto.ResultLockResponse], error)
	Update(ctx context.Context, id string, req *dto.UpdateResultLockRequest) (*dto.ResultLockResponse, error)
	Delete(ctx context.Context, id string) error
}

type resultLockService struct {
	repo   *repository.Repository
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewResultLockService 创建 ResultLockService 实例
// loc 用于解释仅含日期的 start_date / end_date
func NewResultLockService(repo *repository.Repository, loc *time.Location, clock Clock, logger *zap.Logger) ResultLockService {
	return &resultLockService{repo: repo, loc: loc, clock: clock, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *resultLockService) Create(ctx context.Context, req *dto.CreateResultLockRequest) (*dto.ResultLockResponse, error) {
	start, err := parseLockInstant(req.StartDate, s.loc, false)
	if err != nil {
		return nil, ErrResultLockDateInvalid.WithField("start_date")
	}
	end, err := parseLockInstant(req.EndDate, s.loc, true)
	if err != nil {
		return nil, ErrResultLockDateInvalid.WithField("end_date")
	}
	if start.After(end) {
		return nil, ErrResultLockWindowInvalid
	}

	lock := &model.ResultLock{
		Title:     req.Title,
		StartDate: start,
		EndDate:   end,
	}
	if err := s.repo.ResultLock.Create(ctx, lock); err != nil {
		return nil, s.translateWriteErr(err, "创建成绩窗口失败")
	}

	s.logger.Info("成绩窗口已创建", zap.String("id", lock.ResultLockID), zap.String("title", lock.Title))
	return s.toResponse(lock, s.clock()), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *resultLockService) GetByID(ctx context.Context, id string) (*dto.ResultLockResponse, error) {
	var lock *model.ResultLock
	var now time.Time

	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		var err error
		if now, err = tx.Stamp.Now(ctx); err != nil {
			return err
		}
		lock, err = tx.ResultLock.GetByID(ctx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultLockNotFound
		}
		s.logger.Error("查询成绩窗口失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toResponse(lock, now), nil
}

// ────────────────────── List ──────────────────────

func (s *resultLockService) List(ctx context.Context, since *time.Time) (*Listing[dto.ResultLockResponse], error) {
	locks, stamp, now, err := s.list(ctx, since)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ResultLockResponse, 0, len(locks))
	for i := range locks {
		items = append(items, *s.toResponse(&locks[i], now))
	}
	return &Listing[dto.ResultLockResponse]{Items: items, Total: int64(len(items)), Stamp: stamp}, nil
}

func (s *resultLockService) ListActive(ctx context.Context) (*Listing[dto.ResultLockResponse], error) {
	locks, stamp, now, err := s.list(ctx, nil)
	if err != nil {
		return nil, err
	}

	// 已关闭窗口不出现在结果中，但其关闭时刻必须计入校验器
	items := make([]dto.ResultLockResponse, 0, len(locks))
	for i := range locks {
		if !locks[i].IsActive(now) {
			if at := locks[i].EffectiveModifiedAt(now); stamp == nil || at.After(*stamp) {
				stamp = &at
			}
			continue
		}
		items = append(items, *s.toResponse(&locks[i], now))
	}
	return &Listing[dto.ResultLockResponse]{Items: items, Total: int64(len(items)), Stamp: stamp}, nil
}

// list 在同一快照中读取数据库时刻、集合时间戳与窗口
// 窗口开闭按数据库时刻判定，多实例对同一状态给出相同的校验器
func (s *resultLockService) list(ctx context.Context, since *time.Time) ([]model.ResultLock, *time.Time, time.Time, error) {
	var locks []model.ResultLock
	var stamp *time.Time
	var now time.Time

	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		var err error
		if now, err = tx.Stamp.Now(ctx); err != nil {
			return err
		}
		at, ok, err := tx.Stamp.Get(ctx, model.CollectionResultLocks)
		if err != nil {
			return err
		}
		if ok {
			stamp = &at
		}
		locks, err = tx.ResultLock.List(ctx, since, now)
		return err
	})
	if err != nil {
		s.logger.Error("查询成绩窗口列表失败", zap.Error(err))
		return nil, nil, time.Time{}, err
	}
	return locks, stamp, now, nil
}

// ────────────────────── Update ──────────────────────

func (s *resultLockService) Update(ctx context.Context, id string, req *dto.UpdateResultLockRequest) (*dto.ResultLockResponse, error) {
	var lock *model.ResultLock

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		lock, err = tx.ResultLock.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrResultLockNotFound
			}
			return err
		}

		if req.Title != nil {
			lock.Title = *req.Title
		}
		if req.StartDate != nil {
			if lock.StartDate, err = parseLockInstant(*req.StartDate, s.loc, false); err != nil {
				return ErrResultLockDateInvalid.WithField("start_date")
			}
		}
		if req.EndDate != nil {
			if lock.EndDate, err = parseLockInstant(*req.EndDate, s.loc, true); err != nil {
				return ErrResultLockDateInvalid.WithField("end_date")
			}
		}
		if lock.StartDate.After(lock.EndDate) {
			return ErrResultLockWindowInvalid
		}

		return tx.ResultLock.Update(ctx, lock)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResultLockNotFound
		}
		return nil, s.translateWriteErr(err, "更新成绩窗口失败")
	}

	s.logger.Info("成绩窗口已更新", zap.String("id", id))
	return s.toResponse(lock, s.clock()), nil
}

// ────────────────────── Delete ──────────────────────

func (s *resultLockService) Delete(ctx context.Context, id string) error {
	if err := s.repo.ResultLock.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResultLockNotFound
		}
		if errors.Is(err, repository.ErrForeignKey) {
			return ErrResultLockInUse
		}
		s.logger.Error("删除成绩窗口失败", zap.String("id", id), zap.Error(err))
		return err
	}
	s.logger.Info("成绩窗口已删除", zap.String("id", id))
	return nil
}

// ── 辅助函数 ──

func (s *resultLockService) translateWriteErr(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		return ErrResultLockTitleTaken
	case errors.Is(err, repository.ErrCheckViolation):
		return ErrResultLockWindowInvalid
	}
	if _, ok := pkgerrors.As(err); ok {
		return err
	}
	s.logger.Error(msg, zap.Error(err))
	return err
}

func (s *resultLockService) toResponse(lock *model.ResultLock, now time.Time) *dto.ResultLockResponse {
	return &dto.ResultLockResponse{
		ID:           lock.ResultLockID,
		Title:        lock.Title,
		StartDate:    lock.StartDate,
		EndDate:      lock.EndDate,
		IsActive:     lock.IsActive(now),
		CreatedAt:    lock.CreatedAt,
		LastModified: lock.LastModified,
		EffectiveAt:  lock.EffectiveModifiedAt(now),
	}
}

// parseLockInstant 接受 RFC3339 时间点或 YYYY-MM-DD 日期
// 仅日期时：起始取当天第一个时刻，结束取当天最后一个微秒（按 loc 解释）
func parseLockInstant(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC().Truncate(time.Microsecond), nil
	}
	d, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Microsecond)
	}
	return d.UTC(), nil
}
