package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KoushikCodesWebpages/SappBackend/config"
	"github.com/KoushikCodesWebpages/SappBackend/internal/api/handler"
	"github.com/KoushikCodesWebpages/SappBackend/internal/api/middleware"
	"github.com/KoushikCodesWebpages/SappBackend/internal/authz"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/jwt"
	"github.com/KoushikCodesWebpages/SappBackend/pkg/redis"
)

// Deps 路由所需的外部依赖
type Deps struct {
	JWT    *jwt.Manager
	Redis  *redis.Client // 可为 nil：黑名单与限流降级
	Loader middleware.PrincipalLoader
	Policy *authz.Policy // 为 nil 时使用 DefaultPolicy
	// Ping 健康检查时探测数据库；为 nil 时只报告进程存活
	Ping   func(ctx context.Context) error
	Logger *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handler.RegisterValidatorTagNames()

	policy := deps.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}
	allow := func(resource string) gin.HandlerFunc {
		return middleware.Authorize(policy, resource)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Conditional())
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(deps.Redis, cfg.RateLimit.LoginPerMinute, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(deps.JWT, deps.Redis, deps.Loader))
		{
			// 认证模块（需要认证）
			session := authorized.Group("/auth", allow(ResourceSession))
			{
				session.POST("/logout", h.Auth.Logout)
				session.GET("/me", h.Auth.Me)
			}

			// 成绩窗口模块
			resultLocks := authorized.Group("/result-locks", allow(ResourceResultLocks))
			{
				getAndHead(resultLocks, "", h.ResultLock.ListResultLocks)
				getAndHead(resultLocks, "/active", h.ResultLock.ListActiveResultLocks)
				getAndHead(resultLocks, "/:id", h.ResultLock.GetResultLock)
				resultLocks.POST("", h.ResultLock.CreateResultLock)
				resultLocks.PUT("/:id", h.ResultLock.UpdateResultLock)
				resultLocks.DELETE("/:id", h.ResultLock.DeleteResultLock)
			}

			// 考勤日锁模块
			attendanceLocks := authorized.Group("/attendance-locks", allow(ResourceAttendanceLocks))
			{
				getAndHead(attendanceLocks, "", h.AttendanceLock.GetAttendanceLock)
				getAndHead(attendanceLocks, "/days", h.AttendanceLock.ListDays)
				attendanceLocks.POST("", h.AttendanceLock.CreateAttendanceLock)
				attendanceLocks.PUT("", h.AttendanceLock.UpdateAttendanceLock)
			}

			// 成绩导出（独立资源：学生不可导出）
			getAndHead(authorized, "/results/export", allow(ResourceResultsExport), h.Export.ExportResults)

			// 成绩模块
			results := authorized.Group("/results", allow(ResourceResults))
			{
				getAndHead(results, "", h.Result.ListResults)
				getAndHead(results, "/:id", h.Result.GetResult)
				results.POST("", h.Result.CreateResult)
				results.PUT("/:id", h.Result.UpdateResult)
				results.DELETE("/:id", h.Result.DeleteResult)
			}

			// 考勤模块
			attendance := authorized.Group("/attendance", allow(ResourceAttendance))
			{
				getAndHead(attendance, "", h.Attendance.ListAttendance)
				attendance.POST("", h.Attendance.CreateAttendance)
				attendance.PUT("", h.Attendance.UpsertAttendance)
			}
		}
	}

	return r
}

// getAndHead 读接口同时注册 HEAD，共用 GET 的处理器与授权规则
func getAndHead(g *gin.RouterGroup, path string, handlers ...gin.HandlerFunc) {
	g.GET(path, handlers...)
	g.HEAD(path, handlers...)
}
