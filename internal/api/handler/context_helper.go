package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/api/middleware"
	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/jwt"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// MustGetPrincipal 从 Gin 上下文中安全提取当前主体。
// 如果 JWT 中间件未注入主体，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetPrincipal(c *gin.Context) (*authz.Principal, bool) {
	pr := middleware.PrincipalFrom(c)
	if pr == nil || pr.UserID == "" {
		response.FromError(c, pkgerrors.ErrUnauthenticated)
		return nil, false
	}
	return pr, true
}

// MustGetClaims 从 Gin 上下文中安全提取 Access Token 声明。
func MustGetClaims(c *gin.Context) (*jwt.Claims, bool) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		response.FromError(c, pkgerrors.ErrUnauthenticated)
		return nil, false
	}
	return claims, true
}
