package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SafeCircle/internal/middleware"
	"SafeCircle/internal/model"
	"SafeCircle/internal/model/dto"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/response"
)

// GetSchedule 获取自己的打卡窗口设置
// GET /v1/schedules/me
func GetSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	schedule, err := service.Schedule().Get(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toScheduleResponse(schedule))
}

// UpdateSchedule 创建或更新打卡窗口设置
// PUT /v1/schedules/me
func UpdateSchedule(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.UpdateScheduleRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	schedule, err := service.Schedule().Upsert(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, toScheduleResponse(schedule))
}

func toScheduleResponse(s *model.CheckInSchedule) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		WindowStartHour:   s.WindowStartHour,
		WindowStartMinute: s.WindowStartMinute,
		WindowEndHour:     s.WindowEndHour,
		WindowEndMinute:   s.WindowEndMinute,
		Timezone:          s.Timezone,
		ActiveDays:        []int(s.ActiveDays),
		GraceMinutes:      s.GraceMinutes,

		ReminderEnabled:          s.ReminderEnabled,
		ReminderMinutesBeforeEnd: s.ReminderMinutesBeforeEnd,

		Active: s.Active,
	}
}
