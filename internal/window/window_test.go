package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"SafeCircle/internal/model"
)

// 纽约时区 07:00-10:00，宽限 30 分钟，周一到周五
func nySchedule() *model.CheckInSchedule {
	return &model.CheckInSchedule{
		OwnerID:           1,
		WindowStartHour:   7,
		WindowStartMinute: 0,
		WindowEndHour:     10,
		WindowEndMinute:   0,
		Timezone:          "America/New_York",
		ActiveDays:        model.IntList{1, 2, 3, 4, 5},
		GraceMinutes:      30,

		ReminderEnabled:          true,
		ReminderMinutesBeforeEnd: 30,

		Active: true,
	}
}

func nyTime(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2026-01-05 是周一
	return time.Date(2026, 1, 5, hour, minute, 0, 0, loc)
}

func TestIsWithinWindow(t *testing.T) {
	s := nySchedule()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", nyTime(t, 6, 59), false},
		{"exactly at start", nyTime(t, 7, 0), true},
		{"mid window", nyTime(t, 8, 30), true},
		{"exactly at end", nyTime(t, 10, 0), true},
		{"just after end", nyTime(t, 10, 1), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsWithinWindow(s, tc.at)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestIsWithinWindowInactiveDay(t *testing.T) {
	s := nySchedule()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2026-01-04 是周日，不在 ActiveDays 里
	sunday := time.Date(2026, 1, 4, 8, 0, 0, 0, loc)
	got, err := IsWithinWindow(s, sunday)
	require.NoError(t, err)
	require.False(t, got)
}

func TestIsWithinWindowRespectsTimezone(t *testing.T) {
	s := nySchedule()

	// 13:00 UTC == 08:00 EST，应落在窗口内
	utcNoon := time.Date(2026, 1, 5, 13, 0, 0, 0, time.UTC)
	got, err := IsWithinWindow(s, utcNoon)
	require.NoError(t, err)
	require.True(t, got)
}

func TestIsInGracePeriod(t *testing.T) {
	s := nySchedule()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"within window", nyTime(t, 9, 59), false},
		{"exactly at end is window not grace", nyTime(t, 10, 0), false},
		{"just after end", nyTime(t, 10, 1), true},
		{"exactly at grace end", nyTime(t, 10, 30), true},
		{"after grace", nyTime(t, 10, 31), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := IsInGracePeriod(s, tc.at)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestGraceAndWindowAreMutuallyExclusive(t *testing.T) {
	s := nySchedule()

	for minute := 0; minute < 60; minute += 5 {
		at := nyTime(t, 10, minute)
		inWindow, err := IsWithinWindow(s, at)
		require.NoError(t, err)
		inGrace, err := IsInGracePeriod(s, at)
		require.NoError(t, err)
		require.False(t, inWindow && inGrace, "minute %d", minute)
	}
}

func TestInReminderSpan(t *testing.T) {
	s := nySchedule()

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before span", nyTime(t, 9, 29), false},
		{"span start", nyTime(t, 9, 30), true},
		{"span end", nyTime(t, 10, 0), true},
		{"after end", nyTime(t, 10, 1), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := InReminderSpan(s, tc.at)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestMissedInstant(t *testing.T) {
	s := nySchedule()
	day, err := LocalDay(s, nyTime(t, 8, 0))
	require.NoError(t, err)

	missed, err := MissedInstant(s, day)
	require.NoError(t, err)
	require.True(t, missed.Equal(nyTime(t, 10, 30)))
}

func TestMissedInstantCrossesMidnight(t *testing.T) {
	s := nySchedule()
	s.WindowEndHour = 23
	s.WindowEndMinute = 45
	s.GraceMinutes = 30

	day, err := LocalDay(s, nyTime(t, 8, 0))
	require.NoError(t, err)

	missed, err := MissedInstant(s, day)
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 宽限越过午夜，仍归属周一的打卡日
	require.True(t, missed.Equal(time.Date(2026, 1, 6, 0, 15, 0, 0, loc)))
}

func TestLocalDay(t *testing.T) {
	s := nySchedule()

	// 2026-01-06 03:00 UTC == 2026-01-05 22:00 EST，仍是周一
	at := time.Date(2026, 1, 6, 3, 0, 0, 0, time.UTC)
	day, err := LocalDay(s, at)
	require.NoError(t, err)
	require.Equal(t, 2026, day.Year())
	require.Equal(t, time.January, day.Month())
	require.Equal(t, 5, day.Day())
}

func TestQualifiesForDay(t *testing.T) {
	s := nySchedule()
	day, err := LocalDay(s, nyTime(t, 8, 0))
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before window start", nyTime(t, 6, 59), false},
		{"exactly at window start", nyTime(t, 7, 0), true},
		{"inside window", nyTime(t, 8, 0), true},
		{"late same day still counts", nyTime(t, 22, 0), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := QualifiesForDay(s, tc.at, day)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBadTimezoneReturnsError(t *testing.T) {
	s := nySchedule()
	s.Timezone = "Mars/Olympus_Mons"

	_, err := IsWithinWindow(s, time.Now())
	require.Error(t, err)
	_, err = MissedInstant(s, time.Now())
	require.Error(t, err)
}
