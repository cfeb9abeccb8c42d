package model

// AlertNotifyMessage 警报通知消息，扫描器按收件人扇出，worker 消费后
// 交给 Dispatcher 执行 push -> sms -> email 的失败转移投递。
type AlertNotifyMessage struct {
	MessageID   string `json:"message_id"` // 消息唯一ID，用于幂等性检查
	AlertID     int64  `json:"alert_id"`   // AlertEvent.PublicID
	CheckerID   int64  `json:"checker_id"`
	RecipientID int64  `json:"recipient_id"`
	Level       string `json:"level"`
	IsChecker   bool   `json:"is_checker"` // Reminder 级别只通知被守护人自己
	ScheduledAt string `json:"scheduled_at"`
}

// EventMessage 事件消息（用于事件总线）
type EventMessage struct {
	Payload    map[string]interface{} `json:"payload"`
	EventKey   string                 `json:"event_key"`
	EventType  string                 `json:"event_type"`
	OccurredAt string                 `json:"occurred_at"`
}
