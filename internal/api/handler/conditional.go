package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/api/middleware"
	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/metrics"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// headerNarrowedSince 收窄响应只包含水位线之后变化的记录，不包含删除
const headerNarrowedSince = "X-Narrowed-Since"

// narrowSince narrow 开启且请求携带 If-Modified-Since 时返回水位线
func narrowSince(c *gin.Context, narrow bool) *time.Time {
	if !narrow {
		return nil
	}
	return middleware.ConditionalFrom(c).Since()
}

// writeConditional 依据快照给出 304 或带校验器的完整响应
func writeConditional(c *gin.Context, resource string, snap condcache.Snapshot, since *time.Time, data interface{}) {
	d := condcache.Decide(middleware.ConditionalFrom(c), snap)
	metrics.ConditionalResponses.WithLabelValues(resource, d.Outcome.String()).Inc()

	c.Header("Cache-Control", "private, no-cache")
	c.Writer.Header().Add("Vary", "Authorization")
	if d.Outcome != condcache.OutcomeUnvalidated {
		c.Header("ETag", d.Validator.ETag())
		c.Header("Last-Modified", d.Validator.LastModifiedHeader())
	}
	if d.Outcome == condcache.OutcomeNotModified {
		response.NotModified(c)
		return
	}
	if since != nil {
		c.Header(headerNarrowedSince, since.UTC().Format(time.RFC3339Nano))
	}
	response.OK(c, data)
}
