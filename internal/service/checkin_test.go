package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/snowflake"
)

func newCheckInFixture(t *testing.T) (*CheckInService, *AlertService, *gorm.DB, *clock.Mock) {
	t.Helper()
	require.NoError(t, snowflake.Init(1, 1))

	db := newTestDB(t)
	clk := clock.NewMock(time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC))
	alerts := NewAlertService(
		repository.NewAlertRepo(db),
		repository.NewCircleRepo(db),
		repository.NewUserRepo(db),
		clk,
	)
	checkIns := NewCheckInService(
		repository.NewCheckInRepo(db),
		repository.NewScheduleRepo(db),
		alerts,
		clk,
	)
	return checkIns, alerts, db, clk
}

func TestCompleteRejectsOutOfRangeScores(t *testing.T) {
	svc, _, db, _ := newCheckInFixture(t)
	user := seedUser(t, db, 100, "Alice")

	_, _, err := svc.Complete(context.Background(), user.ID, 0, 3, 3, "")
	require.ErrorIs(t, err, errors.CheckInScoreInvalid)
	_, _, err = svc.Complete(context.Background(), user.ID, 3, 6, 3, "")
	require.ErrorIs(t, err, errors.CheckInScoreInvalid)
}

func TestCompleteCreatesThenUpdatesSameDay(t *testing.T) {
	svc, _, db, clk := newCheckInFixture(t)
	ctx := context.Background()
	user := seedUser(t, db, 100, "Alice")

	first, _, err := svc.Complete(ctx, user.ID, 4, 4, 5, "home")
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	second, _, err := svc.Complete(ctx, user.ID, 2, 3, 4, "")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.MoodScore)
	// 不带位置的更新保留原位置
	require.Equal(t, "home", second.Location)

	var count int64
	require.NoError(t, db.Model(&model.CheckIn{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestCompleteResolvesActiveAlerts(t *testing.T) {
	svc, alerts, db, clk := newCheckInFixture(t)
	ctx := context.Background()
	user := seedUser(t, db, 100, "Alice")

	_, _, err := alerts.OpenOrEscalate(ctx, openParams(user, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	_, resolved, err := svc.Complete(ctx, user.ID, 4, 4, 5, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), resolved)

	_, err = alerts.FindOpenByChecker(ctx, user.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTodayUsesScheduleTimezone(t *testing.T) {
	svc, _, db, clk := newCheckInFixture(t)
	ctx := context.Background()
	user := seedUser(t, db, 100, "Alice")

	require.NoError(t, db.Create(&model.CheckInSchedule{
		OwnerID:         user.ID,
		WindowStartHour: 7,
		WindowEndHour:   10,
		Timezone:        "America/New_York",
		ActiveDays:      model.IntList{1, 2, 3, 4, 5},
		Active:          true,
	}).Error)

	// 02:00 UTC 周二 == 周一 21:00 EST：昨晚 20:00 EST 的打卡仍算"今天"
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.CheckIn{
		UserID:      user.ID,
		CheckedInAt: time.Date(2026, 1, 5, 20, 0, 0, 0, loc),
		MoodScore:   4,
		EnergyScore: 4,
		SafetyScore: 5,
	}).Error)

	clk.Set(time.Date(2026, 1, 6, 2, 0, 0, 0, time.UTC))
	today, err := svc.Today(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, today)
}

func TestTodayReturnsNilWhenNoCheckIn(t *testing.T) {
	svc, _, db, _ := newCheckInFixture(t)
	user := seedUser(t, db, 100, "Alice")

	today, err := svc.Today(context.Background(), user.ID)
	require.NoError(t, err)
	require.Nil(t, today)
}

func TestHistoryClampsLimit(t *testing.T) {
	svc, _, db, clk := newCheckInFixture(t)
	ctx := context.Background()
	user := seedUser(t, db, 100, "Alice")

	for i := 0; i < 5; i++ {
		require.NoError(t, db.Create(&model.CheckIn{
			UserID:      user.ID,
			CheckedInAt: clk.Now().AddDate(0, 0, -i),
			MoodScore:   3,
			EnergyScore: 3,
			SafetyScore: 3,
		}).Error)
	}

	history, err := svc.History(ctx, user.ID, 3)
	require.NoError(t, err)
	require.Len(t, history, 3)

	// 非法 limit 退回默认值
	history, err = svc.History(ctx, user.ID, -1)
	require.NoError(t, err)
	require.Len(t, history, 5)
}
