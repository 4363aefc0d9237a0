package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ficha-attendance/backend/config"
	"ficha-attendance/backend/internal/api/handler"
	"ficha-attendance/backend/internal/api/middleware"
	"ficha-attendance/backend/internal/model"
	"ficha-attendance/backend/pkg/jwt"
	"ficha-attendance/backend/pkg/metrics"
	"ficha-attendance/backend/pkg/redis"
)

// maxBodyBytes 请求体上限
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时限流与 Token 黑名单均降级
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// 避免把 nil *redis.Client 装进非 nil 接口
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	staff := middleware.RoleAuth(model.RoleAdmin, model.RoleInstructor)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, blacklist))
	{
		// 门禁事件
		access := v1.Group("/access")
		access.Use(
			middleware.RoleAuth(model.RoleAccessControl, model.RoleAdmin),
			middleware.RateLimit(limiter, cfg.RateLimit.CheckInPerMinute, time.Minute),
		)
		{
			access.POST("/check-in", h.Access.CheckIn)
			access.POST("/check-out", h.Access.CheckOut)
		}

		// 周时段
		slots := v1.Group("/schedule-slots")
		{
			slots.GET("", staff, h.ScheduleSlot.ListSlots)
			slots.POST("/conflict-check", admin, h.ScheduleSlot.CheckConflict)
			slots.POST("", admin, h.ScheduleSlot.CreateSlot)
			slots.DELETE("/:id", admin, h.ScheduleSlot.DeactivateSlot)
			slots.POST("/generate-sessions", admin, h.ScheduleSlot.GenerateSessions)
		}

		// 课次与考勤
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", staff, h.ClassSession.ListSessions)
			sessions.POST("", staff, h.ClassSession.CreateSession)
			sessions.PUT("/:id/deactivate", admin, h.ClassSession.DeactivateSession)
			sessions.GET("/:id/attendance", staff, h.Attendance.GetSessionAttendance)
			sessions.PUT("/:id/attendance/:learner_id", staff, h.Attendance.MarkAttendance)
			sessions.GET("/:id/stats", staff, h.Stats.GetSessionStats)
		}

		// ficha
		cohorts := v1.Group("/cohorts")
		cohorts.Use(staff)
		{
			cohorts.GET("/:id/attendance", h.Attendance.GetCohortAttendance)
			cohorts.GET("/:id/stats", h.Stats.GetCohortStats)
		}

		v1.POST("/attendance/sweep", admin, h.Attendance.Sweep)

		// 导出
		export := v1.Group("/export")
		export.Use(staff)
		{
			export.GET("/attendance", h.Export.ExportAttendance)
			export.GET("/calendar", h.Export.ExportCalendar)
		}

		// 系统配置
		systemConfig := v1.Group("/system-config")
		{
			systemConfig.GET("", staff, h.SystemConfig.GetConfig)
			systemConfig.PUT("", admin, h.SystemConfig.UpdateConfig)
		}
	}

	return r
}
