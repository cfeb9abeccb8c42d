package model

import "time"

// CheckIn 每日平安打卡记录。创建后不可变，产品规则允许对"今天"
// 的记录就地更新分数，但不会产生新记录。
type CheckIn struct {
	BaseModel
	UserID      int64     `gorm:"not null;index:idx_check_ins_user_time" json:"user_id"`
	CheckedInAt time.Time `gorm:"not null;index:idx_check_ins_user_time" json:"checked_in_at"`

	// 三项自评分数，1-5
	MoodScore   int `gorm:"type:smallint;not null" json:"mood_score"`
	EnergyScore int `gorm:"type:smallint;not null" json:"energy_score"`
	SafetyScore int `gorm:"type:smallint;not null" json:"safety_score"`

	Location string `gorm:"type:varchar(255);not null;default:''" json:"location,omitempty"`
}

// TableName 指定表名
func (CheckIn) TableName() string {
	return "check_ins"
}

// ScoresValid 三项分数都落在 [1,5]
func (c *CheckIn) ScoresValid() bool {
	for _, s := range []int{c.MoodScore, c.EnergyScore, c.SafetyScore} {
		if s < 1 || s > 5 {
			return false
		}
	}
	return true
}
