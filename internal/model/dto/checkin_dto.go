package dto

import "time"

// ========== CheckIn 相关 DTO ==========

// CompleteCheckInRequest 提交今日打卡
type CompleteCheckInRequest struct {
	MoodScore   int    `json:"mood_score" binding:"required"`
	EnergyScore int    `json:"energy_score" binding:"required"`
	SafetyScore int    `json:"safety_score" binding:"required"`
	Location    string `json:"location"`
}

// CheckInItem 打卡记录
type CheckInItem struct {
	CheckedInAt time.Time `json:"checked_in_at"`
	MoodScore   int       `json:"mood_score"`
	EnergyScore int       `json:"energy_score"`
	SafetyScore int       `json:"safety_score"`
	Location    string    `json:"location,omitempty"`
}

// TodayCheckInResponse 今日打卡状态
type TodayCheckInResponse struct {
	CheckedIn bool         `json:"checked_in"`
	CheckIn   *CheckInItem `json:"check_in,omitempty"`
}
