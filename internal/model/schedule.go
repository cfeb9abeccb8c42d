package model

// CheckInSchedule 每日打卡时间窗口配置，每个被守护人至多一条 active 记录。
// 窗口起止以 (hour, minute) 的本地墙上时间表达，时区为 IANA 标识；
// 设置关闭时软停用（Active=false）而不是删除，保证历史可解释。
type CheckInSchedule struct {
	BaseModel
	OwnerID           int64  `gorm:"not null;index:idx_schedules_owner_active" json:"owner_id"`
	WindowStartHour   int    `gorm:"type:smallint;not null" json:"window_start_hour"`
	WindowStartMinute int    `gorm:"type:smallint;not null" json:"window_start_minute"`
	WindowEndHour     int    `gorm:"type:smallint;not null" json:"window_end_hour"`
	WindowEndMinute   int    `gorm:"type:smallint;not null" json:"window_end_minute"`
	Timezone          string `gorm:"type:varchar(64);not null" json:"timezone"`

	// ActiveDays 0=Sunday..6=Saturday
	ActiveDays   IntList `gorm:"type:text;not null" json:"active_days"`
	GraceMinutes int     `gorm:"type:smallint;not null;default:0" json:"grace_minutes"`

	ReminderEnabled          bool `gorm:"not null;default:true" json:"reminder_enabled"`
	ReminderMinutesBeforeEnd int  `gorm:"type:smallint;not null;default:30" json:"reminder_minutes_before_end"`

	Active bool `gorm:"not null;default:true;index:idx_schedules_owner_active" json:"active"`
}

// TableName 指定表名
func (CheckInSchedule) TableName() string {
	return "check_in_schedules"
}

// WindowStartMinutes 窗口开始时刻，自午夜起的分钟数
func (s *CheckInSchedule) WindowStartMinutes() int {
	return s.WindowStartHour*60 + s.WindowStartMinute
}

// WindowEndMinutes 窗口结束时刻，自午夜起的分钟数
func (s *CheckInSchedule) WindowEndMinutes() int {
	return s.WindowEndHour*60 + s.WindowEndMinute
}
