package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// AttendanceLockHandler 考勤日锁模块 HTTP 处理器
type AttendanceLockHandler struct {
	lockSvc service.AttendanceLockService
}

// NewAttendanceLockHandler 创建 AttendanceLockHandler
func NewAttendanceLockHandler(lockSvc service.AttendanceLockService) *AttendanceLockHandler {
	return &AttendanceLockHandler{lockSvc: lockSvc}
}

// GetAttendanceLock 查询某日考勤锁，缺省为当天
// GET /api/v1/attendance-locks?date=YYYY-MM-DD
func (h *AttendanceLockHandler) GetAttendanceLock(c *gin.Context) {
	var q dto.AttendanceLockQuery
	if !bindQuery(c, &q) {
		return
	}

	lock, err := h.lockSvc.GetByDate(c.Request.Context(), q.Date)
	if err != nil {
		response.FromError(c, err)
		return
	}

	writeConditional(c, model.CollectionAttendanceLocks, condcache.Of(*lock), nil, lock)
}

// ListDays 上课日与非上课日
// GET /api/v1/attendance-locks/days
func (h *AttendanceLockHandler) ListDays(c *gin.Context) {
	days, err := h.lockSvc.Days(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	writeConditional(c, model.CollectionAttendanceLocks, condcache.Of(*days), nil, days)
}

// CreateAttendanceLock 创建考勤日锁
// POST /api/v1/attendance-locks
func (h *AttendanceLockHandler) CreateAttendanceLock(c *gin.Context) {
	var req dto.CreateAttendanceLockRequest
	if !bindJSON(c, &req) {
		return
	}

	lock, err := h.lockSvc.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, lock)
}

// UpdateAttendanceLock 锁定某日考勤（只能从未锁定变为锁定）
// PUT /api/v1/attendance-locks
func (h *AttendanceLockHandler) UpdateAttendanceLock(c *gin.Context) {
	var req dto.UpdateAttendanceLockRequest
	if !bindJSON(c, &req) {
		return
	}

	lock, err := h.lockSvc.Update(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, lock)
}
