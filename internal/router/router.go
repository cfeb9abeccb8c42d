package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"SafeCircle/internal/handler"
	"SafeCircle/internal/middleware"
)

func Register(h *server.Hertz) {

	h.Use(middleware.RecoverMiddleware())
	h.Use(middleware.OpenTelemetryMiddleware())
	h.Use(middleware.CORSMiddleware())

	v1 := h.Group("/v1")

	// 认证相关路由
	auth := v1.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware()) // 认证接口限流
	{
		auth.POST("/phone/request-code", handler.RequestLoginCode)
		auth.POST("/phone/verify", handler.VerifyLoginCode)
		auth.POST("/token/refresh", handler.RefreshToken)
	}

	// 用户相关路由
	users := v1.Group("/users")
	users.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		users.PUT("/me/push-token", handler.UpdatePushToken)
	}

	// 平安打卡路由
	checkIns := v1.Group("/check-ins")
	checkIns.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		checkIns.GET("/today", handler.GetTodayCheckIn)
		checkIns.POST("", handler.CompleteCheckIn)
		checkIns.GET("/history", handler.GetCheckInHistory)
	}

	// 打卡窗口设置路由
	schedules := v1.Group("/schedules")
	schedules.Use(middleware.AuthMiddleware())
	{
		schedules.GET("/me", handler.GetSchedule)
		schedules.PUT("/me", middleware.ScheduleRateLimitMiddleware(), handler.UpdateSchedule)
	}

	// 守护圈路由
	circle := v1.Group("/circle")
	circle.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		circle.GET("", handler.ListCircle)
		circle.POST("", handler.AddSupporter)
		circle.DELETE("/:supporter_id", handler.RemoveSupporter)
		circle.GET("/watching", handler.ListWatching)
	}

	// 警报路由
	alerts := v1.Group("/alerts")
	alerts.Use(middleware.AuthMiddleware(), middleware.GeneralRateLimitMiddleware())
	{
		alerts.POST("/trigger", handler.TriggerAlert)
		alerts.POST("/:alert_id/acknowledge", handler.AcknowledgeAlert)
		alerts.POST("/:alert_id/resolve", handler.ResolveAlert)
		alerts.GET("/active", handler.GetActiveAlerts)
		alerts.GET("/attention", handler.GetAlertsNeedingAttention)
	}
}
