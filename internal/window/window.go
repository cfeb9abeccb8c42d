package window

// 时间窗口求值器：全部为纯函数，按 schedule 的时区把绝对时刻换算成
// 本地墙上时间后判断。扫描器每轮对每个用户反复调用，这里不允许有
// 任何副作用或全局状态。

import (
	"fmt"
	"time"

	"SafeCircle/internal/model"
)

// locationOf 解析 schedule 的 IANA 时区，配置坏掉时返回错误而不是 panic，
// 由调用方决定跳过该用户。
func locationOf(s *model.CheckInSchedule) (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// windowBounds 给定本地日期，返回当天窗口的起止时刻（本地时区）。
func windowBounds(s *model.CheckInSchedule, localDay time.Time) (start, end time.Time) {
	y, m, d := localDay.Date()
	loc := localDay.Location()
	start = time.Date(y, m, d, s.WindowStartHour, s.WindowStartMinute, 0, 0, loc)
	end = time.Date(y, m, d, s.WindowEndHour, s.WindowEndMinute, 0, 0, loc)
	return start, end
}

// IsWithinWindow 判断 instant 是否落在当天打卡窗口内。
// 两端均为闭区间：恰好等于窗口开始或结束都算在窗口内。
func IsWithinWindow(s *model.CheckInSchedule, instant time.Time) (bool, error) {
	loc, err := locationOf(s)
	if err != nil {
		return false, err
	}

	local := instant.In(loc)
	if !s.ActiveDays.Contains(int(local.Weekday())) {
		return false, nil
	}

	start, end := windowBounds(s, local)
	return !local.Before(start) && !local.After(end), nil
}

// IsInGracePeriod 判断 instant 是否落在宽限期内。
// 宽限期从窗口结束的下一瞬间开始：恰好等于窗口结束算"窗口内"而非宽限，
// 恰好等于 结束+宽限 仍算宽限内。与 IsWithinWindow 互斥。
func IsInGracePeriod(s *model.CheckInSchedule, instant time.Time) (bool, error) {
	loc, err := locationOf(s)
	if err != nil {
		return false, err
	}

	local := instant.In(loc)
	if !s.ActiveDays.Contains(int(local.Weekday())) {
		return false, nil
	}

	_, end := windowBounds(s, local)
	graceEnd := end.Add(time.Duration(s.GraceMinutes) * time.Minute)
	return local.After(end) && !local.After(graceEnd), nil
}

// InReminderSpan 判断 instant 是否落在窗口截止前的提前提醒区间
// [end - ReminderMinutesBeforeEnd, end] 内。是否启用提醒由调用方判断。
func InReminderSpan(s *model.CheckInSchedule, instant time.Time) (bool, error) {
	loc, err := locationOf(s)
	if err != nil {
		return false, err
	}

	local := instant.In(loc)
	if !s.ActiveDays.Contains(int(local.Weekday())) {
		return false, nil
	}

	_, end := windowBounds(s, local)
	spanStart := end.Add(-time.Duration(s.ReminderMinutesBeforeEnd) * time.Minute)
	return !local.Before(spanStart) && !local.After(end), nil
}

// MissedInstant 返回给定本地日历日的"漏打卡时刻"：窗口+宽限关闭的
// 绝对时刻。即使 结束+宽限 越过了午夜，仍然归属当天。
func MissedInstant(s *model.CheckInSchedule, localDay time.Time) (time.Time, error) {
	loc, err := locationOf(s)
	if err != nil {
		return time.Time{}, err
	}

	_, end := windowBounds(s, localDay.In(loc))
	return end.Add(time.Duration(s.GraceMinutes) * time.Minute), nil
}

// LocalDay 返回 instant 在 schedule 时区下的日历日（当天零点）。
func LocalDay(s *model.CheckInSchedule, instant time.Time) (time.Time, error) {
	loc, err := locationOf(s)
	if err != nil {
		return time.Time{}, err
	}

	local := instant.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
}

// QualifiesForDay 判断一次打卡是否覆盖 localDay 对应的打卡日：
// 打卡时刻不早于当天窗口开始，且按 schedule 的时区仍属于同一日历日。
func QualifiesForDay(s *model.CheckInSchedule, checkedInAt time.Time, localDay time.Time) (bool, error) {
	loc, err := locationOf(s)
	if err != nil {
		return false, err
	}

	local := checkedInAt.In(loc)
	start, _ := windowBounds(s, localDay.In(loc))

	// 窗口开始当刻与之后都算数
	return !local.Before(start), nil
}
