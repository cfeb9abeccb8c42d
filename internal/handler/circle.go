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

// ListCircle 我的守护圈
// GET /v1/circle
func ListCircle(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	links, users, err := service.Circle().ListCircle(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	// 按内部 ID 对齐守护人资料
	byID := make(map[int64]*model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	items := make([]*dto.SupporterItem, 0, len(links))
	for _, link := range links {
		item := &dto.SupporterItem{
			AlertPriority:      link.AlertPriority,
			NotifyPush:         link.NotifyPush,
			NotifySMS:          link.NotifySMS,
			NotifyEmail:        link.NotifyEmail,
			IsEmergencyContact: link.IsEmergencyContact,
			CreatedAt:          link.CreatedAt,
		}
		if u, ok := byID[link.SupporterID]; ok {
			item.SupporterID = u.PublicID
			item.DisplayName = u.DisplayName
		}
		items = append(items, item)
	}
	response.Success(ctx, c, items)
}

// AddSupporter 添加守护人
// POST /v1/circle
func AddSupporter(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.AddSupporterRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	link, err := service.Circle().AddSupporter(ctx, userID, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, link)
}

// RemoveSupporter 移除守护人
// DELETE /v1/circle/:supporter_id
func RemoveSupporter(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	supporterID, err := strconv.ParseInt(c.Param("supporter_id"), 10, 64)
	if err != nil {
		response.Error(ctx, c, errors.CircleLinkNotFound)
		return
	}

	if err := service.Circle().RemoveSupporter(ctx, userID, supporterID); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.NoContent(ctx, c)
}

// ListWatching 我正在守护的人
// GET /v1/circle/watching
func ListWatching(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	links, err := service.Circle().ListWatching(ctx, userID)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, links)
}
