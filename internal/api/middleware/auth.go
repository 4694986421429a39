package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	pkgerrors "github.com/KoushikCodesWebpages/SappBackend/pkg/errors"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/jwt"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/metrics"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/redis"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/response"
)

// 上下文键
const (
	ContextKeyClaims    = "claims"
	ContextKeyPrincipal = "principal"
	ContextKeyUserID    = "user_id"
)

// PrincipalLoader 按用户 ID 加载当前角色与验证状态
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID string) (*authz.Principal, error)
}

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token，
// 再从数据库加载主体注入上下文。rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthenticated(c, "缺少认证头")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthenticated(c, "认证头格式无效")
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			abortUnauthenticated(c, "Token 无效或已过期")
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			abortUnauthenticated(c, "Token 类型无效")
			return
		}

		if rdb != nil && claims.ID != "" {
			// Redis 出错时降级放行
			if revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
				abortUnauthenticated(c, "Token 已吊销")
				return
			}
		}

		pr, err := loader.LoadPrincipal(c.Request.Context(), claims.UserID)
		if err != nil {
			if pkgerrors.KindOf(err) == pkgerrors.KindUnauthenticated {
				abortUnauthenticated(c, "用户不存在")
				return
			}
			_ = c.Error(err)
			response.InternalError(c)
			c.Abort()
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyPrincipal, pr)
		c.Set(ContextKeyUserID, claims.UserID)

		c.Next()
	}
}

// Authorize 按策略表对 (resource, HTTP 动词) 求值
// 必须挂在 JWTAuth 之后；未注入主体时按未认证处理
func Authorize(policy *authz.Policy, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		pr := PrincipalFrom(c)
		d := policy.Check(pr, resource, c.Request.Method)
		if d == nil {
			metrics.AuthzDecisions.WithLabelValues(resource, "granted").Inc()
			c.Next()
			return
		}

		metrics.AuthzDecisions.WithLabelValues(resource, d.Reason.String()).Inc()
		response.FromError(c, authz.DenialError(d))
		c.Abort()
	}
}

// PrincipalFrom 读取 JWTAuth 注入的主体；未认证时返回 nil
func PrincipalFrom(c *gin.Context) *authz.Principal {
	v, ok := c.Get(ContextKeyPrincipal)
	if !ok {
		return nil
	}
	pr, _ := v.(*authz.Principal)
	return pr
}

// ClaimsFrom 读取 JWTAuth 注入的 Access Token 声明
func ClaimsFrom(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}

func abortUnauthenticated(c *gin.Context, msg string) {
	response.FromError(c, pkgerrors.ErrUnauthenticated.WithMessage("%s", msg))
	c.Abort()
}
