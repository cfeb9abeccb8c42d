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

// GetTodayCheckIn 查询当天打卡状态，客户端每次启动时加载
// GET /v1/check-ins/today
func GetTodayCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	checkIn, err := service.CheckIn().Today(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	resp := dto.TodayCheckInResponse{CheckedIn: checkIn != nil}
	if checkIn != nil {
		resp.CheckIn = toCheckInItem(checkIn)
	}
	response.Success(ctx, c, resp)
}

// CompleteCheckIn 提交今日打卡，同日重复提交覆盖分数
// POST /v1/check-ins
func CompleteCheckIn(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.CompleteCheckInRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	checkIn, resolved, err := service.CheckIn().Complete(ctx, userID, req.MoodScore, req.EnergyScore, req.SafetyScore, req.Location)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.SuccessWithMeta(ctx, c, toCheckInItem(checkIn), map[string]interface{}{
		"resolved_alerts": resolved,
	})
}

// GetCheckInHistory 查询历史打卡记录
// GET /v1/check-ins/history?limit=30
func GetCheckInHistory(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	history, err := service.CheckIn().History(ctx, userID, limit)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	items := make([]*dto.CheckInItem, 0, len(history))
	for _, ci := range history {
		items = append(items, toCheckInItem(ci))
	}
	response.Success(ctx, c, items)
}

func toCheckInItem(ci *model.CheckIn) *dto.CheckInItem {
	return &dto.CheckInItem{
		CheckedInAt: ci.CheckedInAt,
		MoodScore:   ci.MoodScore,
		EnergyScore: ci.EnergyScore,
		SafetyScore: ci.SafetyScore,
		Location:    ci.Location,
	}
}
