package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/KoushikCodesWebpages/SappBackend/config"
	"github.com/KoushikCodesWebpages/SappBackend/internal/repository"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/jwt"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/redis"
)

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time

// SystemClock 系统时钟
func SystemClock() time.Time { return time.Now() }

// Listing 列表结果
// Stamp 为集合级时间戳（集合从未写入时为 nil），与 Items 在同一快照中读取
type Listing[T any] struct {
	Items []T
	Total int64
	Stamp *time.Time
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth           AuthService
	ResultLock     ResultLockService
	AttendanceLock AttendanceLockService
	Result         ResultService
	Attendance     AttendanceService
	Export         ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	clock := Clock(SystemClock)
	loc := cfg.Locks.Location()
	guard := NewMutationGuard(clock, logger)

	return &Service{
		Auth:           NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		ResultLock:     NewResultLockService(repo, loc, clock, logger),
		AttendanceLock: NewAttendanceLockService(repo, loc, clock, logger),
		Result:         NewResultService(repo, guard, logger),
		Attendance:     NewAttendanceService(repo, guard, logger),
		Export:         NewExportService(repo, logger),
	}
}
