package voice

import (
	"context"
	"encoding/json"
	"fmt"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// AliyunClient 阿里云语音服务（Dyvmsapi），走通用 OpenAPI 网关
type AliyunClient struct {
	client       *openapi.Client
	calledShowNo string
}

func NewAliyunClient() (*AliyunClient, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	openapiConfig := &openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dyvmsapi.aliyuncs.com"),
	}

	client, err := openapi.NewClient(openapiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun voice client: %w", err)
	}

	return &AliyunClient{
		client:       client,
		calledShowNo: config.Cfg.VoiceCalledShowNo,
	}, nil
}

func (c *AliyunClient) createApiInfo(action string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String("2017-05-25"),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

// CallTts 发起 SingleCallByTts。厂商业务码非 OK 时返回 *CallError。
func (c *AliyunClient) CallTts(ctx context.Context, phone, ttsCode, ttsParam string) (*CallResponse, error) {
	if ttsCode == "" {
		return nil, fmt.Errorf("ttsCode is required")
	}

	params := c.createApiInfo("SingleCallByTts")

	queries := map[string]interface{}{
		"CalledNumber": tea.String(phone),
		"TtsCode":      tea.String(ttsCode),
		"TtsParam":     tea.String(ttsParam),
	}
	if c.calledShowNo != "" {
		queries["CalledShowNumber"] = tea.String(c.calledShowNo)
	}

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := c.client.CallApi(params, request, runtime)
	if err != nil {
		logger.Logger.Error("Failed to place voice call",
			zap.String("tts_code", ttsCode),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to place voice call: %w", err)
	}

	response := &CallResponse{}

	if resp["body"] != nil {
		bodyBytes, err := json.Marshal(resp["body"])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response body: %w", err)
		}

		var bodyMap map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &bodyMap); err == nil {
			if callID, ok := bodyMap["CallId"].(string); ok {
				response.CallID = callID
			}
			if code, ok := bodyMap["Code"].(string); ok {
				response.Code = code
			}
			if msg, ok := bodyMap["Message"].(string); ok {
				response.Message = msg
			}
			if requestID, ok := bodyMap["RequestId"].(string); ok {
				response.RequestID = requestID
			}

			if response.Code != "OK" {
				logger.Logger.Error("Voice call rejected",
					zap.String("code", response.Code),
					zap.String("message", response.Message),
					zap.String("request_id", response.RequestID),
				)
				return nil, &CallError{Code: response.Code, Message: response.Message}
			}
		}
	}

	logger.Logger.Debug("Voice call placed",
		zap.String("call_id", response.CallID),
		zap.String("tts_code", ttsCode),
	)

	return response, nil
}
