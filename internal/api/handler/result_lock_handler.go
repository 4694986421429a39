package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// ResultLockHandler 成绩窗口模块 HTTP 处理器
type ResultLockHandler struct {
	lockSvc service.ResultLockService
	narrow  bool
}

// NewResultLockHandler 创建 ResultLockHandler
func NewResultLockHandler(lockSvc service.ResultLockService, narrow bool) *ResultLockHandler {
	return &ResultLockHandler{lockSvc: lockSvc, narrow: narrow}
}

// ListResultLocks 成绩窗口列表
// GET /api/v1/result-locks
func (h *ResultLockHandler) ListResultLocks(c *gin.Context) {
	since := narrowSince(c, h.narrow)
	listing, err := h.lockSvc.List(c.Request.Context(), since)
	if err != nil {
		response.FromError(c, err)
		return
	}

	snap := condcache.Of(listing.Items...)
	snap.IncludePtr(listing.Stamp)
	writeConditional(c, model.CollectionResultLocks, snap, since, gin.H{"list": listing.Items})
}

// ListActiveResultLocks 当前开放的成绩窗口
// GET /api/v1/result-locks/active
func (h *ResultLockHandler) ListActiveResultLocks(c *gin.Context) {
	listing, err := h.lockSvc.ListActive(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	snap := condcache.Of(listing.Items...)
	snap.IncludePtr(listing.Stamp)
	writeConditional(c, model.CollectionResultLocks, snap, nil, gin.H{"list": listing.Items})
}

// GetResultLock 成绩窗口详情
// GET /api/v1/result-locks/:id
func (h *ResultLockHandler) GetResultLock(c *gin.Context) {
	lock, err := h.lockSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	writeConditional(c, model.CollectionResultLocks, condcache.Of(*lock), nil, lock)
}

// CreateResultLock 创建成绩窗口
// POST /api/v1/result-locks
func (h *ResultLockHandler) CreateResultLock(c *gin.Context) {
	var req dto.CreateResultLockRequest
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

// UpdateResultLock 更新成绩窗口
// PUT /api/v1/result-locks/:id
func (h *ResultLockHandler) UpdateResultLock(c *gin.Context) {
	var req dto.UpdateResultLockRequest
	if !bindJSON(c, &req) {
		return
	}

	lock, err := h.lockSvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, lock)
}

// DeleteResultLock 删除成绩窗口（仍被成绩引用时拒绝）
// DELETE /api/v1/result-locks/:id
func (h *ResultLockHandler) DeleteResultLock(c *gin.Context) {
	if err := h.lockSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}
