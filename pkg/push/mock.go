package push

import (
	"context"
	"sync"
)

type MockPush struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// MockClient 推送客户端 mock，实现 Client 接口
type MockClient struct {
	mu     sync.Mutex
	Pushes []MockPush

	// NextErr 非空时，下一次调用返回该错误并自动复位
	NextErr error
}

func NewMockClient() *MockClient {
	return &MockClient{
		Pushes: make([]MockPush, 0),
	}
}

func (m *MockClient) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m.Pushes = append(m.Pushes, MockPush{
		Token: token,
		Title: title,
		Body:  body,
		Data:  data,
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
	return len(m.Pushes)
}
