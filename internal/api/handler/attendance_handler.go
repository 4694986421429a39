package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// AttendanceHandler 考勤模块 HTTP 处理器
type AttendanceHandler struct {
	attendanceSvc service.AttendanceService
	narrow        bool
}

// NewAttendanceHandler 创建 AttendanceHandler
func NewAttendanceHandler(attendanceSvc service.AttendanceService, narrow bool) *AttendanceHandler {
	return &AttendanceHandler{attendanceSvc: attendanceSvc, narrow: narrow}
}

// ListAttendance 考勤列表
// GET /api/v1/attendance?date=&student_code=&standard=&section=&page=&page_size=
func (h *AttendanceHandler) ListAttendance(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var q dto.AttendanceListQuery
	if !bindQuery(c, &q) {
		return
	}

	since := narrowSince(c, h.narrow)
	listing, err := h.attendanceSvc.List(c.Request.Context(), pr, &q, since)
	if err != nil {
		response.FromError(c, err)
		return
	}

	snap := condcache.Of(listing.Items...)
	snap.IncludePtr(listing.Stamp)
	page := response.NewPageData(listing.Items, listing.Total, q.GetPage(), q.GetPageSize())
	writeConditional(c, model.CollectionAttendance, snap, since, page)
}

// CreateAttendance 批量录入考勤，请求体为 JSON 数组
// POST /api/v1/attendance
func (h *AttendanceHandler) CreateAttendance(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.BatchAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attendanceSvc.Create(c.Request.Context(), pr, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, result)
}

// UpsertAttendance 批量写入考勤，已存在的记录更新状态
// PUT /api/v1/attendance
func (h *AttendanceHandler) UpsertAttendance(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.BatchAttendanceRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attendanceSvc.Upsert(c.Request.Context(), pr, req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}
