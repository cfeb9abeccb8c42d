package email

import (
	"context"
	"sync"
)

type MockMessage struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

// MockClient 邮件客户端 mock，实现 Client 接口
type MockClient struct {
	mu       sync.Mutex
	Messages []MockMessage

	// NextErr 非空时，下一次调用返回该错误并自动复位
	NextErr error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Messages: make([]MockMessage, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, to, subject, plainText, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.Messages = append(m.Messages, MockMessage{
		To:      to,
		Subject: subject,
		Plain:   plainText,
		HTML:    htmlBody,
	})

	if m.NextErr != nil {
		err := m.NextErr
		m.NextErr = nil
		return err
	}
	return nil
}

func (m *MockClient) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Messages)
}
