package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/condcache"
)

const contextKeyConditional = "conditional"

// Conditional 解析 If-Modified-Since / If-None-Match 并注入上下文
// 只对 GET / HEAD 生效；无法解析的 If-Modified-Since 按未携带处理
func Conditional() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" {
			req := condcache.ParseRequest(
				c.GetHeader("If-Modified-Since"),
				c.GetHeader("If-None-Match"),
			)
			c.Set(contextKeyConditional, req)
		}
		c.Next()
	}
}

// ConditionalFrom 读取当前请求的条件头；未经过 Conditional 时返回空请求
func ConditionalFrom(c *gin.Context) condcache.Request {
	if v, ok := c.Get(contextKeyConditional); ok {
		if req, ok := v.(condcache.Request); ok {
			return req
		}
	}
	return condcache.Request{}
}
