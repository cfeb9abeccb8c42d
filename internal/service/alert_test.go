package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/snowflake"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.CheckInSchedule{},
		&model.CheckIn{},
		&model.CircleLink{},
		&model.AlertEvent{},
		&model.NotificationAttempt{},
	))
	return db
}

func newAlertFixture(t *testing.T) (*AlertService, *gorm.DB, *clock.Mock) {
	t.Helper()
	require.NoError(t, snowflake.Init(1, 1))

	db := newTestDB(t)
	clk := clock.NewMock(time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC))
	svc := NewAlertService(
		repository.NewAlertRepo(db),
		repository.NewCircleRepo(db),
		repository.NewUserRepo(db),
		clk,
	)
	return svc, db, clk
}

func seedUser(t *testing.T, db *gorm.DB, publicID int64, name string) *model.User {
	t.Helper()
	u := &model.User{
		PublicID:    publicID,
		DisplayName: name,
		Status:      model.UserStatusActive,
		Timezone:    "America/New_York",
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func openParams(checker *model.User, level model.AlertLevel, missedAt time.Time) *OpenAlertParams {
	return &OpenAlertParams{
		Checker:        checker,
		Level:          level,
		MissedWindowAt: missedAt,
		MissedDay:      missedAt.Format("2006-01-02"),
	}
}

func TestOpenOrEscalateCreatesAlert(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	missedAt := clk.Now().Add(-2 * time.Hour)
	alert, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelReminder, missedAt))
	require.NoError(t, err)
	require.True(t, changed)
	require.NotZero(t, alert.PublicID)
	require.Equal(t, model.AlertLevelReminder, alert.Level)
	require.Equal(t, model.AlertStatusPending, alert.Status)
	require.NotNil(t, alert.DupKey)
	require.Equal(t, model.BuildDupKey(checker.ID, alert.MissedDay), *alert.DupKey)
}

func TestOpenOrEscalateIsIdempotentForSameDay(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	missedAt := clk.Now().Add(-2 * time.Hour)
	first, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelReminder, missedAt))
	require.NoError(t, err)

	second, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelReminder, missedAt))
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, first.PublicID, second.PublicID)

	var count int64
	require.NoError(t, db.Model(&model.AlertEvent{}).Where("checker_id = ?", checker.ID).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestEscalateIsMonotonic(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	missedAt := clk.Now().Add(-25 * time.Hour)
	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, missedAt))
	require.NoError(t, err)

	// 升级生效
	escalated, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelHardAlert, missedAt))
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, alert.PublicID, escalated.PublicID)
	require.Equal(t, model.AlertLevelHardAlert, escalated.Level)

	// 等级只升不降
	demoted, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelReminder, missedAt))
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, model.AlertLevelHardAlert, demoted.Level)
}

func TestAcknowledgeByCircleSupporter(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")
	supporter := seedUser(t, db, 200, "Bob")
	require.NoError(t, db.Create(&model.CircleLink{
		CheckerID:   checker.ID,
		SupporterID: supporter.ID,
	}).Error)

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)
	require.NoError(t, svc.MarkSent(ctx, alert.ID))

	acked, err := svc.Acknowledge(ctx, alert.PublicID, supporter.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusAcknowledged, acked.Status)
	require.NotNil(t, acked.AcknowledgedAt)
	require.Equal(t, supporter.ID, *acked.AcknowledgedBy)

	// 重复确认是成功的 no-op
	again, err := svc.Acknowledge(ctx, alert.PublicID, supporter.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusAcknowledged, again.Status)
}

func TestAcknowledgeOutsideCircleIsForbidden(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")
	stranger := seedUser(t, db, 300, "Mallory")

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	_, err = svc.Acknowledge(ctx, alert.PublicID, stranger.ID)
	require.ErrorIs(t, err, errors.AlertNotYourCircle)
}

func TestResolveClearsDupKeyAndKeepsResolvedAt(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, alert.PublicID, checker.ID, model.AlertResolutionContacted)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	require.Nil(t, resolved.DupKey)
	firstResolvedAt := *resolved.ResolvedAt

	// 重复解除不改写 resolved_at
	clk.Advance(1 * time.Hour)
	again, err := svc.Resolve(ctx, alert.PublicID, checker.ID, model.AlertResolutionOther)
	require.NoError(t, err)
	require.True(t, again.ResolvedAt.Equal(firstResolvedAt))
	require.Equal(t, model.AlertResolutionContacted, *again.Resolution)
}

func TestResolveRejectsUnknownReason(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, alert.PublicID, checker.ID, model.AlertResolution("ghosted"))
	require.ErrorIs(t, err, errors.AlertResolutionBad)
}

func TestResolvedDayAllowsNewAlertNextDay(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	day1 := clk.Now().Add(-26 * time.Hour)
	first, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, day1))
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, first.PublicID, checker.ID, model.AlertResolutionCheckedIn)
	require.NoError(t, err)

	day2 := clk.Now().Add(-2 * time.Hour)
	second, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelReminder, day2))
	require.NoError(t, err)
	require.True(t, changed)
	require.NotEqual(t, first.PublicID, second.PublicID)
}

func TestCancelTerminatesAlert(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, alert.PublicID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.ResolvedAt)
	require.Nil(t, cancelled.DupKey)
	firstResolvedAt := *cancelled.ResolvedAt

	// 重复取消不改写 resolved_at
	clk.Advance(1 * time.Hour)
	again, err := svc.Cancel(ctx, alert.PublicID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusCancelled, again.Status)
	require.True(t, again.ResolvedAt.Equal(firstResolvedAt))

	// 取消是终态，不再出现在活跃列表里，同一天可以再建警报
	_, err = svc.FindOpenByChecker(ctx, checker.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	second, changed, err := svc.OpenOrEscalate(ctx, openParams(checker, alert.Level, alert.MissedWindowAt))
	require.NoError(t, err)
	require.True(t, changed)
	require.NotEqual(t, alert.PublicID, second.PublicID)
}

func TestCancelUnknownAlert(t *testing.T) {
	svc, _, _ := newAlertFixture(t)

	_, err := svc.Cancel(context.Background(), 999999)
	require.ErrorIs(t, err, errors.AlertNotFound)
}

func TestResolveAllForChecker(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	_, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	n, err := svc.ResolveAllForChecker(ctx, checker.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = svc.FindOpenByChecker(ctx, checker.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// 没有活跃警报时是 no-op
	n, err = svc.ResolveAllForChecker(ctx, checker.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecordNotifiedAccumulates(t *testing.T) {
	svc, db, clk := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	alert, _, err := svc.OpenOrEscalate(ctx, openParams(checker, model.AlertLevelSoftAlert, clk.Now().Add(-25*time.Hour)))
	require.NoError(t, err)

	require.NoError(t, svc.RecordNotified(ctx, alert.ID, []int64{10, 11}))
	require.NoError(t, svc.RecordNotified(ctx, alert.ID, []int64{11, 12}))

	got, err := svc.GetByPublicID(ctx, alert.PublicID)
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{10, 11, 12}, []int64(got.NotifiedSupporterIDs))
}

func TestTriggerManual(t *testing.T) {
	svc, db, _ := newAlertFixture(t)
	ctx := context.Background()
	checker := seedUser(t, db, 100, "Alice")

	alert, err := svc.TriggerManual(ctx, checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertLevelReminder, alert.Level)

	// 再触发一次落在同一条警报上
	again, err := svc.TriggerManual(ctx, checker.ID)
	require.NoError(t, err)
	require.Equal(t, alert.PublicID, again.PublicID)
}
