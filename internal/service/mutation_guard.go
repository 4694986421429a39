package service

import (
	"go.uber.org/zap"

	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/metrics"
)

// MutationGuard 依赖写入前的最后一道锁校验
//
// 调用约定：在写入所在的事务内、锁行以 FOR SHARE 读出之后、写入之前调用。
// 不缓存任何结论，每次调用都重新读取时钟。
type MutationGuard struct {
	clock  Clock
	logger *zap.Logger
}

// NewMutationGuard 创建 MutationGuard
func NewMutationGuard(clock Clock, logger *zap.Logger) *MutationGuard {
	return &MutationGuard{clock: clock, logger: logger}
}

// ResultLockOpen 成绩窗口在当前时刻必须处于开放状态
func (g *MutationGuard) ResultLockOpen(lock *model.ResultLock) error {
	now := g.clock()
	if lock.IsActive(now) {
		return nil
	}
	metrics.GuardRejections.WithLabelValues("result_lock_inactive").Inc()
	g.logger.Info("成绩窗口未开放，拒绝写入",
		zap.String("result_lock", lock.Title),
		zap.Time("now", now),
		zap.Time("start_date", lock.StartDate),
		zap.Time("end_date", lock.EndDate),
	)
	return ErrResultLockInactive.WithMessage("lock inactive: 成绩窗口「%s」当前未开放", lock.Title)
}

// AttendanceDatesOpen 涉及的日期均未锁定；没有考勤锁的日期视为开放
func (g *MutationGuard) AttendanceDatesOpen(latches []model.AttendanceLock) error {
	for i := range latches {
		if latches[i].State() == model.LatchLocked {
			metrics.GuardRejections.WithLabelValues("attendance_locked").Inc()
			day := latches[i].Date.Format("2006-01-02")
			g.logger.Info("考勤日期已锁定，拒绝写入", zap.String("date", day))
			return ErrAttendanceDateLocked.WithMessage("%s 的考勤已锁定，不允许修改", day)
		}
	}
	return nil
}
