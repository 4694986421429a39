package handler

import (
	"github.com/KoushikCodesWebpages/SappBackend/config"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth           *AuthHandler
	ResultLock     *ResultLockHandler
	AttendanceLock *AttendanceLockHandler
	Result         *ResultHandler
	Attendance     *AttendanceHandler
	Export         *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, cacheCfg *config.CacheConfig) *Handler {
	narrow := cacheCfg != nil && cacheCfg.NarrowQueries
	return &Handler{
		Auth:           NewAuthHandler(svc.Auth),
		ResultLock:     NewResultLockHandler(svc.ResultLock, narrow),
		AttendanceLock: NewAttendanceLockHandler(svc.AttendanceLock),
		Result:         NewResultHandler(svc.Result, narrow),
		Attendance:     NewAttendanceHandler(svc.Attendance, narrow),
		Export:         NewExportHandler(svc.Export),
	}
}
