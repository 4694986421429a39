package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/model"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// ResultHandler 成绩模块 HTTP 处理器
type ResultHandler struct {
	resultSvc service.ResultService
	narrow    bool
}

// NewResultHandler 创建 ResultHandler
func NewResultHandler(resultSvc service.ResultService, narrow bool) *ResultHandler {
	return &ResultHandler{resultSvc: resultSvc, narrow: narrow}
}

// ListResults 成绩列表（学生只能看到自己的成绩）
// GET /api/v1/results?result_lock=&student_code=&subject=&page=&page_size=
func (h *ResultHandler) ListResults(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var q dto.ResultListQuery
	if !bindQuery(c, &q) {
		return
	}

	since := narrowSince(c, h.narrow)
	listing, err := h.resultSvc.List(c.Request.Context(), pr, &q, since)
	if err != nil {
		response.FromError(c, err)
		return
	}

	snap := condcache.Of(listing.Items...)
	snap.IncludePtr(listing.Stamp)
	page := response.NewPageData(listing.Items, listing.Total, q.GetPage(), q.GetPageSize())
	writeConditional(c, model.CollectionResults, snap, since, page)
}

// GetResult 成绩详情
// GET /api/v1/results/:id
func (h *ResultHandler) GetResult(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	result, err := h.resultSvc.GetByID(c.Request.Context(), pr, c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	writeConditional(c, model.CollectionResults, condcache.Of(*result), nil, result)
}

// CreateResult 录入成绩（须在成绩窗口开放期内）
// POST /api/v1/results
func (h *ResultHandler) CreateResult(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.CreateResultRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.resultSvc.Create(c.Request.Context(), pr, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateResult 修改成绩
// PUT /api/v1/results/:id
func (h *ResultHandler) UpdateResult(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}
	var req dto.UpdateResultRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.resultSvc.Update(c.Request.Context(), pr, c.Param("id"), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteResult 删除成绩
// DELETE /api/v1/results/:id
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	pr, ok := MustGetPrincipal(c)
	if !ok {
		return
	}

	if err := h.resultSvc.Delete(c.Request.Context(), pr, c.Param("id")); err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, nil)
}
