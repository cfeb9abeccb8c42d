package queue

import (
	"context"
	"fmt"

	"SafeCircle/internal/model"
	"SafeCircle/storage/mq"
)

const (
	// DelayedExchange 扫描器的出口 exchange（x-delayed-message）
	DelayedExchange = "scheduler.delayed"

	// AlertQueue worker 消费的警报通知队列
	AlertQueue = "notification.alert"
)

// alertRoutingKey 按等级路由：notification.alert.<level>
func alertRoutingKey(level string) string {
	return fmt.Sprintf("notification.alert.%s", level)
}

// MQPublisher 扫描器 Publisher 接口的 RabbitMQ 实现
type MQPublisher struct{}

func (MQPublisher) PublishAlertNotify(ctx context.Context, msg *model.AlertNotifyMessage) error {
	if err := mq.PublishMessage(DelayedExchange, alertRoutingKey(msg.Level), msg); err != nil {
		return fmt.Errorf("failed to publish alert notify message: %w", err)
	}
	return nil
}
