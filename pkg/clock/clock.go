package clock

import (
	"sync"
	"time"
)

// Clock 提供可注入的时间源。扫描器和状态机只通过这里取 "now"，
// 这样升级阈值相关的行为才可以在测试中确定性重放。
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// System 返回真实时钟。
func System() Clock {
	return systemClock{}
}

// Mock 可手动拨动的时钟，测试用。
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set 将时钟拨到给定时刻。
func (m *Mock) Set(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance 将时钟前进 d。
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}
