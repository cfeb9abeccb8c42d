package model

import (
	"fmt"
	"time"
)

// AlertLevel 警报等级。严重程度由 Rank 决定，而不是声明顺序，
// escalate 的单调性守卫依赖这里的全序。
type AlertLevel string

const (
	AlertLevelReminder   AlertLevel = "reminder"
	AlertLevelSoftAlert  AlertLevel = "soft_alert"
	AlertLevelHardAlert  AlertLevel = "hard_alert"
	AlertLevelEscalation AlertLevel = "escalation"
)

var alertLevelRank = map[AlertLevel]int{
	AlertLevelReminder:   1,
	AlertLevelSoftAlert:  2,
	AlertLevelHardAlert:  3,
	AlertLevelEscalation: 4,
}

// Rank 返回等级序数，未知等级返回 0
func (l AlertLevel) Rank() int {
	return alertLevelRank[l]
}

func (l AlertLevel) Valid() bool {
	_, ok := alertLevelRank[l]
	return ok
}

// MoreSevereThan 严格大于
func (l AlertLevel) MoreSevereThan(other AlertLevel) bool {
	return l.Rank() > other.Rank()
}

// AlertStatus 警报状态枚举。Resolved 与 Cancelled 为终态。
type AlertStatus string

const (
	AlertStatusPending      AlertStatus = "pending"
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusResolved     AlertStatus = "resolved"
	AlertStatusCancelled    AlertStatus = "cancelled"
)

// Terminal 终态一旦写入不再变化
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusCancelled
}

// NonTerminalStatuses "活跃警报"查询要排除的就是不在这里的状态
var NonTerminalStatuses = []AlertStatus{
	AlertStatusPending,
	AlertStatusSent,
	AlertStatusAcknowledged,
}

// AlertResolution 解除原因
type AlertResolution string

const (
	AlertResolutionContacted  AlertResolution = "contacted"
	AlertResolutionCheckedIn  AlertResolution = "checked_in"
	AlertResolutionFalseAlarm AlertResolution = "false_alarm"
	AlertResolutionOther      AlertResolution = "other"
)

func (r AlertResolution) Valid() bool {
	switch r {
	case AlertResolutionContacted, AlertResolutionCheckedIn, AlertResolutionFalseAlarm, AlertResolutionOther:
		return true
	}
	return false
}

// AlertEvent 漏打卡升级记录。
// 不变式：同一被守护人同一漏打卡日至多一条非终态警报，由 DupKey
// 的唯一索引保证。终态化时清空 DupKey，让后续天数可以复用。
type AlertEvent struct {
	BaseModel
	PublicID    int64  `gorm:"uniqueIndex;not null" json:"public_id"`
	CheckerID   int64  `gorm:"not null;index:idx_alert_events_checker" json:"checker_id"`
	CheckerName string `gorm:"type:varchar(64);not null;default:''" json:"checker_name"` // 冗余存储，用户删除后仍可展示

	Level  AlertLevel  `gorm:"type:varchar(16);not null" json:"level"`
	Status AlertStatus `gorm:"type:varchar(16);not null;default:'pending';index:idx_alert_events_status" json:"status"`

	TriggeredAt    time.Time `gorm:"not null" json:"triggered_at"`
	MissedWindowAt time.Time `gorm:"not null" json:"missed_window_at"`
	MissedDay      string    `gorm:"type:varchar(10);not null" json:"missed_day"` // YYYY-MM-DD，按被守护人时区

	// DupKey = "<checkerID>:<missedDay>"，仅非终态警报持有；见 Terminalize
	DupKey *string `gorm:"uniqueIndex;type:varchar(32)" json:"-"`

	// 触发时刻抓取的上下文快照
	LastCheckInAt     *time.Time `json:"last_check_in_at,omitempty"`
	LastKnownLocation string     `gorm:"type:varchar(255);not null;default:''" json:"last_known_location,omitempty"`

	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy *int64     `json:"acknowledged_by,omitempty"`

	ResolvedAt *time.Time       `json:"resolved_at,omitempty"`
	ResolvedBy *int64           `json:"resolved_by,omitempty"`
	Resolution *AlertResolution `gorm:"type:varchar(16)" json:"resolution,omitempty"`

	// 已通知的守护人集合，扇出幂等的依据
	NotifiedSupporterIDs Int64Set `gorm:"type:text;not null" json:"notified_supporter_ids"`
}

// TableName 指定表名
func (AlertEvent) TableName() string {
	return "alert_events"
}

// BuildDupKey 非终态唯一键
func BuildDupKey(checkerID int64, missedDay string) string {
	return fmt.Sprintf("%d:%s", checkerID, missedDay)
}
