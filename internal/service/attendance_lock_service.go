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
	"github.com/KoushikCodesWebpages/SappBackend/pkg/metrics"
)

// AttendanceLockService 考勤日锁业务接口
type AttendanceLockService interface {
	Create(ctx context.Context, req *dto.CreateAttendanceLockRequest) (*dto.AttendanceLockResponse, error)
	// GetByDate date 为空时取 locks.timezone 下的当天
	GetByDate(ctx context.Context, date string) (*dto.AttendanceLockResponse, error)
	// Update 只允许 false → true；已锁定时任何更新都被拒绝
	Update(ctx context.Context, req *dto.UpdateAttendanceLockRequest) (*dto.AttendanceLockResponse, error)
	// Days 已锁定（上课日）与未锁定（非上课日）的日期
	Days(ctx context.Context) (*dto.AttendanceDaysResponse, error)
}

type attendanceLockService struct {
	repo   *repository.Repository
	loc    *time.Location
	clock  Clock
	logger *zap.Logger
}

// NewAttendanceLockService 创建 AttendanceLockService 实例
func NewAttendanceLockService(repo *repository.Repository, loc *time.Location, clock Clock, logger *zap.Logger) AttendanceLockService {
	return &attendanceLockService{repo: repo, loc: loc, clock: clock, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *attendanceLockService) Create(ctx context.Context, req *dto.CreateAttendanceLockRequest) (*dto.AttendanceLockResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrAttendanceLockDate
	}

	lock := &model.AttendanceLock{Date: date, IsLocked: req.IsLocked}
	if err := s.repo.AttendanceLock.Create(ctx, lock); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAttendanceLockExists
		}
		s.logger.Error("创建考勤锁失败", zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}

	s.logger.Info("考勤锁已创建", zap.String("date", req.Date), zap.Bool("is_locked", lock.IsLocked))
	return toAttendanceLockResponse(lock), nil
}

// ────────────────────── GetByDate ──────────────────────

func (s *attendanceLockService) GetByDate(ctx context.Context, date string) (*dto.AttendanceLockResponse, error) {
	day := model.CivilDate(s.clock().In(s.loc))
	if date != "" {
		var err error
		if day, err = parseDate(date); err != nil {
			return nil, ErrAttendanceLockDate
		}
	}

	lock, err := s.repo.AttendanceLock.GetByDate(ctx, day)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceLockNotFound
		}
		s.logger.Error("查询考勤锁失败", zap.Time("date", day), zap.Error(err))
		return nil, err
	}
	return toAttendanceLockResponse(lock), nil
}

// ────────────────────── Update ──────────────────────

func (s *attendanceLockService) Update(ctx context.Context, req *dto.UpdateAttendanceLockRequest) (*dto.AttendanceLockResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, ErrAttendanceLockDate
	}

	var lock *model.AttendanceLock
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		var err error
		lock, err = tx.AttendanceLock.GetByDateForUpdate(ctx, date)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAttendanceLockNotFound
			}
			return err
		}

		changed, err := lock.Apply(*req.IsLocked)
		if err != nil {
			return ErrAttendanceLockAlreadySet
		}
		if !changed {
			return nil
		}

		// 条件更新：WHERE is_locked = false，并发锁定时只有一个成功
		ok, err := tx.AttendanceLock.Lock(ctx, lock)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAttendanceLockAlreadySet
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAttendanceLockAlreadySet) || errors.Is(err, repository.ErrCheckViolation) {
			metrics.GuardRejections.WithLabelValues("latch_already_set").Inc()
			return nil, ErrAttendanceLockAlreadySet
		}
		if errors.Is(err, ErrAttendanceLockNotFound) {
			return nil, err
		}
		s.logger.Error("更新考勤锁失败", zap.String("date", req.Date), zap.Error(err))
		return nil, err
	}

	return toAttendanceLockResponse(lock), nil
}

// ────────────────────── Days ──────────────────────

func (s *attendanceLockService) Days(ctx context.Context) (*dto.AttendanceDaysResponse, error) {
	var locks []model.AttendanceLock
	var stamp time.Time

	err := s.repo.ReadSnapshot(ctx, func(tx *repository.Repository) error {
		at, ok, err := tx.Stamp.Get(ctx, model.CollectionAttendanceLocks)
		if err != nil {
			return err
		}
		if ok {
			stamp = at
		}
		locks, err = tx.AttendanceLock.List(ctx, nil)
		return err
	})
	if err != nil {
		s.logger.Error("查询考勤日列表失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.AttendanceDaysResponse{
		WorkingDays:    []string{},
		NonWorkingDays: []string{},
		LastModified:   stamp,
	}
	for i := range locks {
		day := locks[i].Date.Format("2006-01-02")
		if locks[i].IsLocked {
			resp.WorkingDays = append(resp.WorkingDays, day)
		} else {
			resp.NonWorkingDays = append(resp.NonWorkingDays, day)
		}
		if locks[i].LastModified.After(resp.LastModified) {
			resp.LastModified = locks[i].LastModified
		}
	}
	return resp, nil
}

// ── 辅助函数 ──

func toAttendanceLockResponse(lock *model.AttendanceLock) *dto.AttendanceLockResponse {
	return &dto.AttendanceLockResponse{
		ID:           lock.AttendanceLockID,
		Date:         lock.Date.Format("2006-01-02"),
		IsLocked:     lock.IsLocked,
		CreatedAt:    lock.CreatedAt,
		LastModified: lock.LastModified,
	}
}

// parseDate YYYY-MM-DD → UTC 零点（DATE 列的规范形式）
func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}
