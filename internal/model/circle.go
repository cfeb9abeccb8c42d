package model

// CircleLink 被守护人 -> 守护人 的有向关系，(checker, supporter) 唯一。
// AlertPriority 1 为第一梯队；SoftAlert 只通知第一梯队，
// HardAlert 起全员，Escalation 再加上紧急联系人。
type CircleLink struct {
	BaseModel
	CheckerID   int64 `gorm:"not null;uniqueIndex:uq_circle_links_pair;index:idx_circle_links_checker" json:"checker_id"`
	SupporterID int64 `gorm:"not null;uniqueIndex:uq_circle_links_pair;index:idx_circle_links_supporter" json:"supporter_id"`

	// 可见性与互动权限
	CanPoke       bool `gorm:"not null;default:true" json:"can_poke"`
	CanSeeMood    bool `gorm:"not null;default:true" json:"can_see_mood"`
	CanSeeLocation bool `gorm:"not null;default:false" json:"can_see_location"`
	CanSeeSelfie  bool `gorm:"not null;default:false" json:"can_see_selfie"`

	AlertPriority int `gorm:"type:smallint;not null;default:1" json:"alert_priority"`

	// 各渠道独立开关
	NotifyPush  bool `gorm:"not null;default:true" json:"notify_push"`
	NotifySMS   bool `gorm:"not null;default:true" json:"notify_sms"`
	NotifyEmail bool `gorm:"not null;default:true" json:"notify_email"`

	IsEmergencyContact bool `gorm:"not null;default:false" json:"is_emergency_contact"`
}

// TableName 指定表名
func (CircleLink) TableName() string {
	return "circle_links"
}
