package escalation

// 升级时间线计算：纯时长运算，不涉及时区。
// ClassifyLevel 是"此刻应处于什么等级"的唯一依据；
// Times 只用来预估下一次需要唤醒的时刻。

import (
	"time"

	"SafeCircle/internal/model"
)

const (
	ReminderAfter   = 1 * time.Hour
	SoftAlertAfter  = 24 * time.Hour
	HardAlertAfter  = 36 * time.Hour
	EscalationAfter = 48 * time.Hour
)

// Timeline 四个升级等级的预定通知时刻
type Timeline struct {
	Reminder   time.Time
	SoftAlert  time.Time
	HardAlert  time.Time
	Escalation time.Time
}

// Times 给定漏打卡时刻，返回各等级的预定时刻。
func Times(missed time.Time) Timeline {
	return Timeline{
		Reminder:   missed.Add(ReminderAfter),
		SoftAlert:  missed.Add(SoftAlertAfter),
		HardAlert:  missed.Add(HardAlertAfter),
		Escalation: missed.Add(EscalationAfter),
	}
}

// ClassifyLevel 按漏打卡以来的时长给出当前应处等级。
// 区间左闭：恰好 24h 即 SoftAlert，恰好 48h 即 Escalation。
func ClassifyLevel(elapsed time.Duration) model.AlertLevel {
	switch {
	case elapsed >= EscalationAfter:
		return model.AlertLevelEscalation
	case elapsed >= HardAlertAfter:
		return model.AlertLevelHardAlert
	case elapsed >= SoftAlertAfter:
		return model.AlertLevelSoftAlert
	default:
		return model.AlertLevelReminder
	}
}
