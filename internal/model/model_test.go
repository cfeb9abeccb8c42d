package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	return db
}

// 模型定义不能带 postgres 专属的列类型和默认值，
// 否则测试用的 sqlite 连 AutoMigrate 都过不去。
func TestAllModelsMigrateOnSQLite(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(
		&User{},
		&CheckInSchedule{},
		&CheckIn{},
		&CircleLink{},
		&AlertEvent{},
		&NotificationAttempt{},
	))
}

func TestAlertEventRoundTrip(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&AlertEvent{}))

	lastCheckIn := time.Date(2026, 1, 4, 9, 0, 0, 0, time.UTC)
	dupKey := BuildDupKey(7, "2026-01-05")
	in := &AlertEvent{
		PublicID:             9001,
		CheckerID:            7,
		CheckerName:          "Alice",
		Level:                AlertLevelSoftAlert,
		Status:               AlertStatusPending,
		TriggeredAt:          time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC),
		MissedWindowAt:       time.Date(2026, 1, 5, 15, 30, 0, 0, time.UTC),
		MissedDay:            "2026-01-05",
		DupKey:               &dupKey,
		LastCheckInAt:        &lastCheckIn,
		NotifiedSupporterIDs: Int64Set{10, 11},
	}
	require.NoError(t, db.Create(in).Error)

	var out AlertEvent
	require.NoError(t, db.First(&out, in.ID).Error)
	require.True(t, out.TriggeredAt.Equal(in.TriggeredAt))
	require.NotNil(t, out.LastCheckInAt)
	require.True(t, out.LastCheckInAt.Equal(lastCheckIn))
	require.Nil(t, out.ResolvedAt)
	require.Nil(t, out.AcknowledgedAt)
	require.Equal(t, Int64Set{10, 11}, out.NotifiedSupporterIDs)
	require.False(t, out.CreatedAt.IsZero())

	// 空集合也要能写进去再读出来
	in2 := &AlertEvent{
		PublicID:       9002,
		CheckerID:      8,
		Level:          AlertLevelReminder,
		Status:         AlertStatusPending,
		TriggeredAt:    in.TriggeredAt,
		MissedWindowAt: in.MissedWindowAt,
		MissedDay:      "2026-01-05",
	}
	require.NoError(t, db.Create(in2).Error)
	var out2 AlertEvent
	require.NoError(t, db.First(&out2, in2.ID).Error)
	require.Empty(t, out2.NotifiedSupporterIDs)
}

func TestScheduleActiveDaysRoundTrip(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, db.AutoMigrate(&CheckInSchedule{}))

	in := &CheckInSchedule{
		OwnerID:         7,
		WindowStartHour: 7,
		WindowEndHour:   10,
		Timezone:        "America/New_York",
		ActiveDays:      IntList{1, 2, 3, 4, 5},
		GraceMinutes:    30,
		Active:          true,
	}
	require.NoError(t, db.Create(in).Error)

	var out CheckInSchedule
	require.NoError(t, db.First(&out, in.ID).Error)
	require.Equal(t, IntList{1, 2, 3, 4, 5}, out.ActiveDays)
	require.True(t, out.ActiveDays.Contains(5))
	require.False(t, out.ActiveDays.Contains(0))
}
