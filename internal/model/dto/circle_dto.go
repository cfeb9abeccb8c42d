package dto

import "time"

// ========== Circle 相关 DTO ==========

// AddSupporterRequest 添加守护人
type AddSupporterRequest struct {
	SupporterID   int64 `json:"supporter_id" binding:"required"`
	AlertPriority int   `json:"alert_priority" binding:"required"`

	CanPoke        bool `json:"can_poke"`
	CanSeeMood     bool `json:"can_see_mood"`
	CanSeeLocation bool `json:"can_see_location"`
	CanSeeSelfie   bool `json:"can_see_selfie"`

	NotifyPush  bool `json:"notify_push"`
	NotifySMS   bool `json:"notify_sms"`
	NotifyEmail bool `json:"notify_email"`

	IsEmergencyContact bool `json:"is_emergency_contact"`
}

// SupporterItem 守护人列表项
type SupporterItem struct {
	SupporterID        int64     `json:"supporter_id"`
	DisplayName        string    `json:"display_name"`
	AlertPriority      int       `json:"alert_priority"`
	NotifyPush         bool      `json:"notify_push"`
	NotifySMS          bool      `json:"notify_sms"`
	NotifyEmail        bool      `json:"notify_email"`
	IsEmergencyContact bool      `json:"is_emergency_contact"`
	CreatedAt          time.Time `json:"created_at"`
}
