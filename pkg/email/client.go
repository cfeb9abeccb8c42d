package email

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// Client 邮件客户端接口。邮件是兜底通道：短信对不可达号码
// 降级时走这里，最高等级警报也会直接抄送。
type Client interface {
	Send(ctx context.Context, to, subject, plainText, htmlBody string) error
}

// SendError 带状态码的发送失败
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email send failed: status=%d body=%s", e.StatusCode, e.Body)
}

var (
	emailClient Client
	emailOnce   sync.Once
	emailErr    error
)

func Init() error {
	emailOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.EmailProvider {
		case "sendgrid":
			emailClient, emailErr = NewSendGridClient()
		case "mock":
			emailClient = NewMockClient()
		default:
			emailErr = fmt.Errorf("unsupported email provider: %s", cfg.EmailProvider)
		}

		if emailErr != nil {
			logger.Logger.Error("Failed to initialize email client", zap.Error(emailErr))
			return
		}

		logger.Logger.Info("Email client initialized successfully",
			zap.String("provider", cfg.EmailProvider),
		)
	})

	return emailErr
}

func GetClient() Client {
	if emailClient == nil {
		panic("email client not initialized, call email.Init() first")
	}
	return emailClient
}
