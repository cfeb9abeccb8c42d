package dto

// ========== Schedule 相关 DTO ==========

// UpdateScheduleRequest 创建或更新打卡窗口设置
type UpdateScheduleRequest struct {
	WindowStartHour   int    `json:"window_start_hour"`
	WindowStartMinute int    `json:"window_start_minute"`
	WindowEndHour     int    `json:"window_end_hour"`
	WindowEndMinute   int    `json:"window_end_minute"`
	Timezone          string `json:"timezone" binding:"required"`
	ActiveDays        []int  `json:"active_days"`
	GraceMinutes      int    `json:"grace_minutes"`

	ReminderEnabled          bool `json:"reminder_enabled"`
	ReminderMinutesBeforeEnd int  `json:"reminder_minutes_before_end"`

	Active bool `json:"active"`
}

// ScheduleResponse 打卡窗口设置
type ScheduleResponse struct {
	WindowStartHour   int    `json:"window_start_hour"`
	WindowStartMinute int    `json:"window_start_minute"`
	WindowEndHour     int    `json:"window_end_hour"`
	WindowEndMinute   int    `json:"window_end_minute"`
	Timezone          string `json:"timezone"`
	ActiveDays        []int  `json:"active_days"`
	GraceMinutes      int    `json:"grace_minutes"`

	ReminderEnabled          bool `json:"reminder_enabled"`
	ReminderMinutesBeforeEnd int  `json:"reminder_minutes_before_end"`

	Active bool `json:"active"`
}
