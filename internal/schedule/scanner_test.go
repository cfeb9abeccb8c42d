package schedule

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/push"
	"SafeCircle/pkg/snowflake"
)

// ---- 测试替身 ----

type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied bool // true 时所有 TryLock 都失败，模拟另一实例持锁
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.denied || l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *fakeLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type fakeMarker struct {
	mu     sync.Mutex
	sent   map[string]bool
	nudged map[string]bool
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{sent: make(map[string]bool), nudged: make(map[string]bool)}
}

func (m *fakeMarker) TryMarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%d:%s:%d", alertID, level, recipientID)
	if m.sent[key] {
		return false, nil
	}
	m.sent[key] = true
	return true, nil
}

func (m *fakeMarker) UnmarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sent, fmt.Sprintf("%d:%s:%d", alertID, level, recipientID))
	return nil
}

func (m *fakeMarker) TryMarkDailyNudge(ctx context.Context, day string, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s:%d", day, userID)
	if m.nudged[key] {
		return false, nil
	}
	m.nudged[key] = true
	return true, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []*model.AlertNotifyMessage
	nextErr  error // 非 nil 时下一次入队失败，模拟 broker 不可达
}

func (p *fakePublisher) PublishAlertNotify(ctx context.Context, msg *model.AlertNotifyMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nextErr != nil {
		err := p.nextErr
		p.nextErr = nil
		return err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *fakePublisher) all() []*model.AlertNotifyMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*model.AlertNotifyMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// ---- fixture ----

type scanFixture struct {
	scanner   *MissedCheckInScanner
	db        *gorm.DB
	clk       *clock.Mock
	locker    *fakeLocker
	marker    *fakeMarker
	publisher *fakePublisher
	pusher    *push.MockClient
	alerts    *service.AlertService
}

// 周一 2026-01-05，纽约 07:00-10:00，宽限 30 分钟。
// 默认时刻为 12:00 EST：宽限 10:30 关闭，提醒门槛 11:30 已过。
func newScanFixture(t *testing.T) *scanFixture {
	t.Helper()
	require.NoError(t, snowflake.Init(1, 1))

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
	))

	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	clk := clock.NewMock(time.Date(2026, 1, 5, 12, 0, 0, 0, loc))

	alerts := service.NewAlertService(
		repository.NewAlertRepo(db),
		repository.NewCircleRepo(db),
		repository.NewUserRepo(db),
		clk,
	)

	f := &scanFixture{
		db:        db,
		clk:       clk,
		locker:    newFakeLocker(),
		marker:    newFakeMarker(),
		publisher: &fakePublisher{},
		pusher:    push.NewMockClient(),
		alerts:    alerts,
	}
	f.scanner = NewMissedCheckInScanner(Deps{
		DB:          db,
		Alerts:      alerts,
		Clock:       clk,
		Locker:      f.locker,
		Marker:      f.marker,
		Publisher:   f.publisher,
		Pusher:      f.pusher,
		Concurrency: 2,
	})
	return f
}

func (f *scanFixture) seedChecker(t *testing.T) *model.User {
	t.Helper()
	u := &model.User{
		PublicID:    100,
		DisplayName: "Alice",
		Status:      model.UserStatusActive,
		Timezone:    "America/New_York",
		PushToken:   "device-alice",
	}
	require.NoError(t, f.db.Create(u).Error)
	require.NoError(t, f.db.Create(&model.CheckInSchedule{
		OwnerID:           u.ID,
		WindowStartHour:   7,
		WindowEndHour:     10,
		Timezone:          "America/New_York",
		ActiveDays:        model.IntList{1, 2, 3, 4, 5},
		GraceMinutes:      30,
		ReminderEnabled:   true,
		ReminderMinutesBeforeEnd: 30,
		Active:            true,
	}).Error)
	return u
}

func (f *scanFixture) seedSupporter(t *testing.T, checker *model.User, publicID int64, priority int, emergency bool) *model.User {
	t.Helper()
	u := &model.User{
		PublicID:    publicID,
		DisplayName: "Supporter",
		Status:      model.UserStatusActive,
		Timezone:    "America/New_York",
	}
	require.NoError(t, f.db.Create(u).Error)
	require.NoError(t, f.db.Create(&model.CircleLink{
		CheckerID:          checker.ID,
		SupporterID:        u.ID,
		AlertPriority:      priority,
		NotifyPush:         true,
		NotifySMS:          true,
		NotifyEmail:        true,
		IsEmergencyContact: emergency,
	}).Error)
	return u
}

// ---- 用例 ----

func TestRunOnceOpensReminderAlert(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)

	require.NoError(t, f.scanner.RunOnce(context.Background()))

	open, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertLevelReminder, open.Level)
	require.Equal(t, model.AlertStatusSent, open.Status)
	require.Equal(t, "2026-01-05", open.MissedDay)

	msgs := f.publisher.all()
	require.Len(t, msgs, 1)
	require.True(t, msgs[0].IsChecker)
	require.Equal(t, checker.ID, msgs[0].RecipientID)
	require.Equal(t, string(model.AlertLevelReminder), msgs[0].Level)
}

func TestReminderGateDefersAlertCreation(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)

	// 11:00：宽限 10:30 已关闭，但还没到 missed+1h
	loc, _ := time.LoadLocation("America/New_York")
	f.clk.Set(time.Date(2026, 1, 5, 11, 0, 0, 0, loc))

	require.NoError(t, f.scanner.RunOnce(context.Background()))

	_, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, f.publisher.all())
}

func TestQualifiedCheckInSuppressesAlert(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)

	loc, _ := time.LoadLocation("America/New_York")
	require.NoError(t, f.db.Create(&model.CheckIn{
		UserID:      checker.ID,
		CheckedInAt: time.Date(2026, 1, 5, 8, 0, 0, 0, loc),
		MoodScore:   4,
		EnergyScore: 4,
		SafetyScore: 5,
	}).Error)

	require.NoError(t, f.scanner.RunOnce(context.Background()))

	_, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, f.publisher.all())
}

func TestRepeatedScansDoNotDuplicateMessages(t *testing.T) {
	f := newScanFixture(t)
	f.seedChecker(t)

	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.NoError(t, f.scanner.RunOnce(context.Background()))

	require.Len(t, f.publisher.all(), 1)
}

func TestPublishFailureReleasesNotifyMark(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	f.publisher.nextErr = fmt.Errorf("broker unavailable")

	// 入队失败：标记被回收，警报停在 Pending
	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Empty(t, f.publisher.all())

	open, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusPending, open.Status)

	// 下一轮重试成功，通知不会被上一轮残留的标记压制
	require.NoError(t, f.scanner.RunOnce(context.Background()))
	msgs := f.publisher.all()
	require.Len(t, msgs, 1)
	require.Equal(t, checker.ID, msgs[0].RecipientID)

	open, err = f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertStatusSent, open.Status)
}

func TestFanOutWithoutEligibleSupportersStillMarksSent(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	// 只有第二优先级守护人，SoftAlert 的收件名单为空
	f.seedSupporter(t, checker, 201, 2, false)

	// 首次扫描就已经晚了 25 小时，警报直接以 SoftAlert 建立
	f.clk.Advance(25 * time.Hour)
	require.NoError(t, f.scanner.RunOnce(context.Background()))

	// 没人可通知也不能让警报卡在 Pending
	open, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertLevelSoftAlert, open.Level)
	require.Equal(t, model.AlertStatusSent, open.Status)
	require.Empty(t, []int64(open.NotifiedSupporterIDs))
	require.Empty(t, f.publisher.all())
}

func TestEscalationFansOutToFirstPrioritySupporters(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	primary := f.seedSupporter(t, checker, 200, 1, false)
	f.seedSupporter(t, checker, 201, 2, false)

	// 第一轮：Reminder
	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Len(t, f.publisher.all(), 1)

	// 25 小时后：SoftAlert，扇出到第一优先级守护人
	f.clk.Advance(25 * time.Hour)
	require.NoError(t, f.scanner.RunOnce(context.Background()))

	open, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertLevelSoftAlert, open.Level)
	require.ElementsMatch(t, []int64{primary.ID}, []int64(open.NotifiedSupporterIDs))

	msgs := f.publisher.all()
	require.Len(t, msgs, 2)
	last := msgs[1]
	require.False(t, last.IsChecker)
	require.Equal(t, primary.ID, last.RecipientID)
	require.Equal(t, string(model.AlertLevelSoftAlert), last.Level)
}

func TestEscalationReachesEmergencyContactsAtTopLevel(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	primary := f.seedSupporter(t, checker, 200, 1, false)
	emergency := f.seedSupporter(t, checker, 202, 3, true)

	require.NoError(t, f.scanner.RunOnce(context.Background()))

	// 49 小时后直接跳到 Escalation，紧急联系人也在收件名单里
	f.clk.Advance(49 * time.Hour)
	require.NoError(t, f.scanner.RunOnce(context.Background()))

	open, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.NoError(t, err)
	require.Equal(t, model.AlertLevelEscalation, open.Level)
	require.ElementsMatch(t, []int64{primary.ID, emergency.ID}, []int64(open.NotifiedSupporterIDs))
}

func TestLockedCheckerIsSkipped(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	f.locker.denied = true

	require.NoError(t, f.scanner.RunOnce(context.Background()))

	_, err := f.alerts.FindOpenByChecker(context.Background(), checker.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.Empty(t, f.publisher.all())
}

func TestInactiveUserIsSkipped(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)
	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", checker.ID).
		Update("status", model.UserStatusInactive).Error)

	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Empty(t, f.publisher.all())
}

func TestNudgeBeforeWindowCloses(t *testing.T) {
	f := newScanFixture(t)
	f.seedChecker(t)

	// 09:45：窗口还开着，落在提前提醒区间 [09:30, 10:00]
	loc, _ := time.LoadLocation("America/New_York")
	f.clk.Set(time.Date(2026, 1, 5, 9, 45, 0, 0, loc))

	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Equal(t, 1, f.pusher.SentCount())
	require.Empty(t, f.publisher.all())

	// 同一天内不重复提醒
	f.clk.Advance(5 * time.Minute)
	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Equal(t, 1, f.pusher.SentCount())
}

func TestNudgeSkippedWhenAlreadyCheckedIn(t *testing.T) {
	f := newScanFixture(t)
	checker := f.seedChecker(t)

	loc, _ := time.LoadLocation("America/New_York")
	require.NoError(t, f.db.Create(&model.CheckIn{
		UserID:      checker.ID,
		CheckedInAt: time.Date(2026, 1, 5, 8, 0, 0, 0, loc),
		MoodScore:   4,
		EnergyScore: 4,
		SafetyScore: 5,
	}).Error)
	f.clk.Set(time.Date(2026, 1, 5, 9, 45, 0, 0, loc))

	require.NoError(t, f.scanner.RunOnce(context.Background()))
	require.Zero(t, f.pusher.SentCount())
}
