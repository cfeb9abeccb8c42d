package escalation

import "SafeCircle/internal/model"

// 各等级的通知策略：
//   Reminder   -> 只提醒被守护人本人（push）
//   SoftAlert  -> 第一优先级守护人（push + sms）
//   HardAlert  -> 全部守护人（push + sms + voice）
//   Escalation -> 全部守护人 + 紧急联系人，全渠道

// ChannelPolicy 某一等级要求的渠道集合。push 始终尝试；
// email 作为短信失败或短信不可用时的兜底渠道总是可用，
// DirectEmail 表示该等级本来就要求直接发邮件。
type ChannelPolicy struct {
	SMS         bool
	Voice       bool
	DirectEmail bool
}

// PolicyFor 返回等级对应的渠道策略。
func PolicyFor(level model.AlertLevel) ChannelPolicy {
	switch level {
	case model.AlertLevelSoftAlert:
		return ChannelPolicy{SMS: true}
	case model.AlertLevelHardAlert:
		return ChannelPolicy{SMS: true, Voice: true}
	case model.AlertLevelEscalation:
		return ChannelPolicy{SMS: true, Voice: true, DirectEmail: true}
	default: // Reminder
		return ChannelPolicy{}
	}
}

// Recipients 按等级从守护圈中筛出收件人。Reminder 只回到被守护人本人，
// 调用方对该等级不应传入守护圈扇出。
func Recipients(level model.AlertLevel, links []*model.CircleLink) []*model.CircleLink {
	switch level {
	case model.AlertLevelReminder:
		return nil
	case model.AlertLevelSoftAlert:
		out := make([]*model.CircleLink, 0, len(links))
		for _, l := range links {
			if l.AlertPriority == 1 {
				out = append(out, l)
			}
		}
		return out
	case model.AlertLevelHardAlert:
		out := make([]*model.CircleLink, 0, len(links))
		for _, l := range links {
			if !l.IsEmergencyContact {
				out = append(out, l)
			}
		}
		return out
	default: // Escalation：全员含紧急联系人
		out := make([]*model.CircleLink, 0, len(links))
		out = append(out, links...)
		return out
	}
}
