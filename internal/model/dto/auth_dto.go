package dto

// ========== Auth 相关 DTO ==========

// RequestLoginCodeRequest 请求登录验证码
type RequestLoginCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyLoginCodeRequest 验证码登录（新手机号即注册）
type VerifyLoginCodeRequest struct {
	Phone       string `json:"phone" binding:"required"`
	Code        string `json:"code" binding:"required"`
	DisplayName string `json:"display_name"`
	Timezone    string `json:"timezone"`
}

// RefreshTokenRequest 刷新访问令牌
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UpdatePushTokenRequest 上报推送设备标识
type UpdatePushTokenRequest struct {
	PushToken string `json:"push_token"`
}

// LoginResponse 登录结果
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       int64  `json:"user_id"`
	DisplayName  string `json:"display_name"`
}
