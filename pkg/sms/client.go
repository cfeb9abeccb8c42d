package sms

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// Client SMS 客户端接口
type Client interface {
	// SendSingle 发送单条短信
	// phone: 手机号
	// signName: 短信签名名称
	// templateCode: 模板代码
	// templateParam: 模板参数（JSON 字符串）
	SendSingle(ctx context.Context, phone, signName, templateCode, templateParam string) (*SendResponse, error)
}

// SendResponse 短信发送响应
type SendResponse struct {
	MessageID string // 云厂商返回的 MessageID（BizId）
	Code      string // 业务状态码（如 "OK", "isv.BUSINESS_LIMIT_CONTROL"）
	Message   string // 错误消息（如果有）
	RequestID string // 请求ID
	Provider  string // 服务提供商
	Template  string // 模板代码（用于监控）
}

// SendError 带厂商业务码的发送失败。派发层按 Code 决定
// 是否换通道，所以这里必须把码原样带出来。
type SendError struct {
	Code    string
	Message string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sms send failed: %s - %s", e.Code, e.Message)
}

var (
	smsClient Client
	smsOnce   sync.Once
	smsErr    error
)

// Init 初始化 SMS 客户端
func Init() error {
	smsOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.SMSProvider {
		case "aliyun":
			smsClient, smsErr = NewAliyunClient()
		case "mock":
			smsClient = NewMockClient()
		default:
			smsErr = fmt.Errorf("unsupported SMS provider: %s", cfg.SMSProvider)
		}

		if smsErr != nil {
			logger.Logger.Error("Failed to initialize SMS client", zap.Error(smsErr))
			return
		}

		logger.Logger.Info("SMS client initialized successfully",
			zap.String("provider", cfg.SMSProvider),
		)
	})

	return smsErr
}

func GetClient() Client {
	if smsClient == nil {
		panic("SMS client not initialized, call sms.Init() first")
	}
	return smsClient
}
