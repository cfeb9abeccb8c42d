package dto

import "time"

// ========== Alert 相关 DTO ==========

// ResolveAlertRequest 解除警报
type ResolveAlertRequest struct {
	Resolution string `json:"resolution" binding:"required"` // contacted, checked_in, false_alarm, other
	Notes      string `json:"notes"`
}

// AlertItem 警报展示项
type AlertItem struct {
	AlertID           int64      `json:"alert_id"`
	CheckerID         int64      `json:"checker_id"`
	CheckerName       string     `json:"checker_name"`
	Level             string     `json:"level"`
	Status            string     `json:"status"`
	TriggeredAt       time.Time  `json:"triggered_at"`
	MissedWindowAt    time.Time  `json:"missed_window_at"`
	LastCheckInAt     *time.Time `json:"last_check_in_at,omitempty"`
	LastKnownLocation string     `json:"last_known_location,omitempty"`
	AcknowledgedAt    *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	Resolution        string     `json:"resolution,omitempty"`
}
