package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"

	"SafeCircle/internal/middleware"
	"SafeCircle/internal/model"
	"SafeCircle/internal/model/dto"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/response"
)

// TriggerAlert 手动触发一条测试警报
// POST /v1/alerts/trigger
func TriggerAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	alert, err := service.Alert().TriggerManual(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toAlertItem(alert))
}

// AcknowledgeAlert 守护人确认已看到警报，重复确认是成功的 no-op
// POST /v1/alerts/:alert_id/acknowledge
func AcknowledgeAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	alertID, err := strconv.ParseInt(c.Param("alert_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, errors.AlertNotFound)
		return
	}

	alert, err := service.Alert().Acknowledge(ctx, alertID, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toAlertItem(alert))
}

// ResolveAlert 解除警报
// POST /v1/alerts/:alert_id/resolve
func ResolveAlert(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	alertID, err := strconv.ParseInt(c.Param("alert_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, errors.AlertNotFound)
		return
	}

	var req dto.ResolveAlertRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	alert, err := service.Alert().Resolve(ctx, alertID, userID, model.AlertResolution(req.Resolution))
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toAlertItem(alert))
}

// GetActiveAlerts 我自己名下的非终态警报
// GET /v1/alerts/active
func GetActiveAlerts(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	alerts, err := service.Alert().ActiveAlerts(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toAlertItems(alerts))
}

// GetAlertsNeedingAttention 我作为守护人待处理的警报
// GET /v1/alerts/attention
func GetAlertsNeedingAttention(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	alerts, err := service.Alert().AlertsNeedingAttention(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toAlertItems(alerts))
}

func toAlertItem(a *model.AlertEvent) *dto.AlertItem {
	item := &dto.AlertItem{
		AlertID:           a.PublicID,
		CheckerID:         a.CheckerID,
		CheckerName:       a.CheckerName,
		Level:             string(a.Level),
		Status:            string(a.Status),
		TriggeredAt:       a.TriggeredAt,
		MissedWindowAt:    a.MissedWindowAt,
		LastCheckInAt:     a.LastCheckInAt,
		LastKnownLocation: a.LastKnownLocation,
		AcknowledgedAt:    a.AcknowledgedAt,
		ResolvedAt:        a.ResolvedAt,
	}
	if a.Resolution != nil {
		item.Resolution = string(*a.Resolution)
	}
	return item
}

func toAlertItems(alerts []*model.AlertEvent) []*dto.AlertItem {
	items := make([]*dto.AlertItem, 0, len(alerts))
	for _, a := range alerts {
		items = append(items, toAlertItem(a))
	}
	return items
}
