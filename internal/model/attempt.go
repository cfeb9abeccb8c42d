package model

import "time"

// NotificationChannel 通知渠道枚举
type NotificationChannel string

const (
	NotificationChannelPush  NotificationChannel = "push"
	NotificationChannelSMS   NotificationChannel = "sms"
	NotificationChannelEmail NotificationChannel = "email"
	NotificationChannelVoice NotificationChannel = "voice"
)

// AttemptOutcome 单次投递结果
type AttemptOutcome string

const (
	AttemptOutcomeSent      AttemptOutcome = "sent"
	AttemptOutcomeDelivered AttemptOutcome = "delivered"
	AttemptOutcomeFailed    AttemptOutcome = "failed"
)

// NotificationAttempt 通知投递日志，只追加，创建后永不修改。
// 用于审计以及各渠道成本/到达率观测。
type NotificationAttempt struct {
	BaseModel
	AlertID     int64               `gorm:"not null;index:idx_notification_attempts_alert" json:"alert_id"`
	RecipientID int64               `gorm:"not null;index:idx_notification_attempts_recipient" json:"recipient_id"`
	Channel     NotificationChannel `gorm:"type:varchar(16);not null" json:"channel"`
	Outcome     AttemptOutcome      `gorm:"type:varchar(16);not null" json:"outcome"`

	// 失败时的服务商错误码
	ErrorCode *string `gorm:"type:varchar(64)" json:"error_code,omitempty"`

	// 本次尝试是否是对前一个失败渠道的兜底
	IsFallback bool `gorm:"not null;default:false" json:"is_fallback"`

	AttemptedAt time.Time `gorm:"not null" json:"attempted_at"`
}

// TableName 指定表名
func (NotificationAttempt) TableName() string {
	return "notification_attempts"
}
