package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/dto"
	"github.com/KoushikCodesWebpages/SappBackend/internal/service"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportResults 导出成绩
// GET /api/v1/results/export?result_lock=&student_code=&subject=
func (h *ExportHandler) ExportResults(c *gin.Context) {
	var q dto.ResultListQuery
	if !bindQuery(c, &q) {
		return
	}

	buf, filename, err := h.exportSvc.ExportResults(c.Request.Context(), &q)
	if err != nil {
		response.FromError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
