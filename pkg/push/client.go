package push

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// Client 推送客户端接口。推送是首选通道，失败后由派发层
// 降级到短信。
type Client interface {
	// Send 向设备推送一条通知
	// token: 设备推送令牌
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// SendError 网关返回的推送失败
type SendError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("push send failed: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
}

var (
	pushClient Client
	pushOnce   sync.Once
	pushErr    error
)

func Init() error {
	pushOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.PushProvider {
		case "gateway":
			pushClient, pushErr = NewGatewayClient()
		case "mock":
			pushClient = NewMockClient()
		default:
			pushErr = fmt.Errorf("unsupported push provider: %s", cfg.PushProvider)
		}

		if pushErr != nil {
			logger.Logger.Error("Failed to initialize push client", zap.Error(pushErr))
			return
		}

		logger.Logger.Info("Push client initialized successfully",
			zap.String("provider", cfg.PushProvider),
		)
	})

	return pushErr
}

func GetClient() Client {
	if pushClient == nil {
		panic("push client not initialized, call push.Init() first")
	}
	return pushClient
}
