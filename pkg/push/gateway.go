package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/pkg/logger"
)

// GatewayClient 走内部推送网关（网关再分发到 APNs/FCM）
type GatewayClient struct {
	http *client.Client
	url  string
	key  string
}

type gatewayRequest struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type gatewayResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewGatewayClient() (*GatewayClient, error) {
	cfg := config.Cfg
	if cfg.PushGatewayURL == "" {
		return nil, fmt.Errorf("PUSH_GATEWAY_URL is required")
	}

	c, err := client.NewClient(
		client.WithDialTimeout(3*time.Second),
		client.WithClientReadTimeout(10*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create push http client: %w", err)
	}

	return &GatewayClient{
		http: c,
		url:  cfg.PushGatewayURL,
		key:  cfg.PushGatewayKey,
	}, nil
}

func (c *GatewayClient) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if token == "" {
		return &SendError{Code: "NO_TOKEN", Message: "recipient has no push token"}
	}

	payload, err := json.Marshal(gatewayRequest{
		Token: token,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req := protocol.AcquireRequest()
	res := protocol.AcquireResponse()
	defer func() {
		protocol.ReleaseRequest(req)
		protocol.ReleaseResponse(res)
	}()

	req.SetMethod(consts.MethodPost)
	req.SetRequestURI(c.url)
	req.Header.SetContentTypeBytes([]byte("application/json"))
	if c.key != "" {
		req.SetHeader("Authorization", "Bearer "+c.key)
	}
	req.SetBody(payload)

	if err := c.http.Do(ctx, req, res); err != nil {
		logger.Logger.Error("Failed to reach push gateway", zap.Error(err))
		return fmt.Errorf("failed to reach push gateway: %w", err)
	}

	if res.StatusCode() >= 400 {
		var gwResp gatewayResponse
		_ = json.Unmarshal(res.Body(), &gwResp)

		logger.Logger.Warn("Push gateway rejected notification",
			zap.Int("status_code", res.StatusCode()),
			zap.String("code", gwResp.Code),
		)
		return &SendError{
			StatusCode: res.StatusCode(),
			Code:       gwResp.Code,
			Message:    gwResp.Message,
		}
	}

	logger.Logger.Debug("Push notification sent", zap.String("title", title))
	return nil
}
