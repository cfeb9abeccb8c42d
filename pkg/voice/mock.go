package voice

import (
	"context"
	"sync"
)

type MockCall struct {
	Phone    string
	TtsCode  string
	TtsParam string
}

// MockClient 语音客户端 mock，实现 Client 接口
type MockClient struct {
	mu    sync.Mutex
	Calls []MockCall

	// NextErr 非空时，下一次调用返回该错误并自动复位
	NextErr error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Calls: make([]MockCall, 0),
	}
}

func (m *MockClient) CallTts(ctx context.Context, phone, ttsCode, ttsParam string) (*CallResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.Calls = append(m.Calls, MockCall{
		Phone:    phone,
		TtsCode:  ttsCode,
		TtsParam: ttsParam,
	})

	if m.NextErr != nil {
		err := m.NextErr
		m.NextErr = nil
		return nil, err
	}

	return &CallResponse{
		CallID:    "mock-call-id",
		Code:      "OK",
		RequestID: "mock-request-id",
	}, nil
}

func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
