package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"SafeCircle/internal/middleware"
	"SafeCircle/internal/model/dto"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/response"
)

// RequestLoginCode 发送登录验证码
// POST /v1/auth/phone/request-code
func RequestLoginCode(ctx context.Context, c *app.RequestContext) {
	var req dto.RequestLoginCodeRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Auth().RequestLoginCode(ctx, req.Phone); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"sent": true})
}

// VerifyLoginCode 验证码登录，手机号未注册时自动注册
// POST /v1/auth/phone/verify
func VerifyLoginCode(ctx context.Context, c *app.RequestContext) {
	var req dto.VerifyLoginCodeRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	pair, user, err := service.Auth().VerifyLoginCode(ctx, req.Phone, req.Code, req.DisplayName, req.Timezone)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		UserID:       user.PublicID,
		DisplayName:  user.DisplayName,
	})
}

// RefreshToken 刷新访问令牌
// POST /v1/auth/token/refresh
func RefreshToken(ctx context.Context, c *app.RequestContext) {
	var req dto.RefreshTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	pair, err := service.Auth().Refresh(ctx, req.RefreshToken)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, pair)
}

// UpdatePushToken 上报推送设备标识
// PUT /v1/users/me/push-token
func UpdatePushToken(ctx context.Context, c *app.RequestContext) {
	userID, ok := middleware.GetUserIDInt64(ctx, c)
	if !ok {
		response.Error(ctx, c, errors.Unauthorized)
		return
	}

	var req dto.UpdatePushTokenRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.BindError(ctx, c, err)
		return
	}

	if err := service.Auth().UpdatePushToken(ctx, userID, req.PushToken); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"updated": true})
}
