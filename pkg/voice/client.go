package voice

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// Client 语音通知客户端接口。升级到高等级警报时对紧急联系人
// 发起 TTS 外呼。
type Client interface {
	// CallTts 发起一通 TTS 语音呼叫
	// phone: 被叫号码
	// ttsCode: 语音模板代码
	// ttsParam: 模板参数（JSON 字符串）
	CallTts(ctx context.Context, phone, ttsCode, ttsParam string) (*CallResponse, error)
}

// CallResponse 呼叫发起结果
type CallResponse struct {
	CallID    string
	Code      string
	Message   string
	RequestID string
}

// CallError 带厂商业务码的呼叫失败
type CallError struct {
	Code    string
	Message string
}

func (e *CallError) Error() string {
	return fmt.Sprintf("voice call failed: %s - %s", e.Code, e.Message)
}

var (
	voiceClient Client
	voiceOnce   sync.Once
	voiceErr    error
)

func Init() error {
	voiceOnce.Do(func() {
		cfg := config.Cfg

		switch cfg.VoiceProvider {
		case "aliyun":
			voiceClient, voiceErr = NewAliyunClient()
		case "mock":
			voiceClient = NewMockClient()
		default:
			voiceErr = fmt.Errorf("unsupported voice provider: %s", cfg.VoiceProvider)
		}

		if voiceErr != nil {
			logger.Logger.Error("Failed to initialize voice client", zap.Error(voiceErr))
			return
		}

		logger.Logger.Info("Voice client initialized successfully",
			zap.String("provider", cfg.VoiceProvider),
		)
	})

	return voiceErr
}

func GetClient() Client {
	if voiceClient == nil {
		panic("voice client not initialized, call voice.Init() first")
	}
	return voiceClient
}
