package notify

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
	"SafeCircle/pkg/email"
	"SafeCircle/pkg/push"
	"SafeCircle/pkg/sms"
	"SafeCircle/pkg/voice"
	"SafeCircle/utils"
)

type dispatchFixture struct {
	dispatcher *Dispatcher
	db         *gorm.DB
	pushC      *push.MockClient
	smsC       *sms.MockClient
	emailC     *email.MockClient
	voiceC     *voice.MockClient
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.NotificationAttempt{}))

	f := &dispatchFixture{
		db:     db,
		pushC:  push.NewMockClient(),
		smsC:   sms.NewMockClient(),
		emailC: email.NewMockClient(),
		voiceC: voice.NewMockClient(),
	}
	f.dispatcher = NewDispatcher(Providers{
		Push:  f.pushC,
		SMS:   f.smsC,
		Email: f.emailC,
		Voice: f.voiceC,
	}, repository.NewAttemptRepo(db), clock.NewMock(time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC)))
	return f
}

func (f *dispatchFixture) attempts(t *testing.T, alertID int64) []*model.NotificationAttempt {
	t.Helper()
	got, err := repository.NewAttemptRepo(f.db).ListByAlert(context.Background(), alertID)
	require.NoError(t, err)
	return got
}

func testAlert() *model.AlertEvent {
	a := &model.AlertEvent{
		PublicID:    9001,
		CheckerID:   1,
		CheckerName: "Alice",
		Level:       model.AlertLevelSoftAlert,
		Status:      model.AlertStatusPending,
	}
	a.ID = 42
	return a
}

func testRecipient(t *testing.T) *model.User {
	t.Helper()
	cipher, err := utils.EncryptPhone("+14155550123")
	require.NoError(t, err)
	u := &model.User{
		PublicID:    200,
		DisplayName: "Bob",
		PhoneCipher: cipher,
		Email:       "bob@example.com",
		PushToken:   "device-bob",
		Status:      model.UserStatusActive,
	}
	u.ID = 7
	return u
}

func fullLink() *model.CircleLink {
	return &model.CircleLink{
		CheckerID:   1,
		SupporterID: 7,
		NotifyPush:  true,
		NotifySMS:   true,
		NotifyEmail: true,
	}
}

func notification(recipient *model.User, link *model.CircleLink, level model.AlertLevel) *Notification {
	return &Notification{
		Alert:     testAlert(),
		Recipient: recipient,
		Link:      link,
		Level:     level,
		IsChecker: link == nil,
	}
}

func TestSMSAttemptedEvenWhenPushSucceeds(t *testing.T) {
	f := newDispatchFixture(t)
	n := notification(testRecipient(t), fullLink(), model.AlertLevelSoftAlert)

	// 推送只是 best-effort，成功也不抵消该等级要求的短信
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Equal(t, 1, f.pushC.SentCount())
	require.Equal(t, 1, f.smsC.CallCount())
	require.Zero(t, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	require.Len(t, atts, 2)
	require.Equal(t, model.NotificationChannelPush, atts[0].Channel)
	require.Equal(t, model.AttemptOutcomeSent, atts[0].Outcome)
	require.Equal(t, model.NotificationChannelSMS, atts[1].Channel)
	require.Equal(t, model.AttemptOutcomeSent, atts[1].Outcome)
}

func TestNotifyFallsThroughToSMSOnPushFailure(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 502}

	n := notification(testRecipient(t), fullLink(), model.AlertLevelSoftAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))

	require.Equal(t, 1, f.smsC.CallCount())
	require.Zero(t, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	require.Len(t, atts, 2)
	require.Equal(t, model.AttemptOutcomeFailed, atts[0].Outcome)
	require.Equal(t, "HTTP_502", *atts[0].ErrorCode)
	require.Equal(t, model.NotificationChannelSMS, atts[1].Channel)
	require.Equal(t, model.AttemptOutcomeSent, atts[1].Outcome)
}

func TestUnreachableNumberFallsBackToEmail(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 500}
	f.smsC.NextErr = &sms.SendError{Code: "isv.MOBILE_NUMBER_ILLEGAL", Message: "bad number"}

	n := notification(testRecipient(t), fullLink(), model.AlertLevelSoftAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))

	require.Equal(t, 1, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	require.Len(t, atts, 3)
	emailAtt := atts[2]
	require.Equal(t, model.NotificationChannelEmail, emailAtt.Channel)
	require.Equal(t, model.AttemptOutcomeSent, emailAtt.Outcome)
	require.True(t, emailAtt.IsFallback)
}

func TestRateLimitedSMSDoesNotFallBack(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 500}
	f.smsC.NextErr = &sms.SendError{Code: "isv.BUSINESS_LIMIT_CONTROL", Message: "rate limited"}

	n := notification(testRecipient(t), fullLink(), model.AlertLevelSoftAlert)
	err := f.dispatcher.Notify(context.Background(), n)
	require.Error(t, err)

	// 限流码不在降级闭集里，重试交给队列而不是换渠道
	require.Zero(t, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	require.Len(t, atts, 2)
	require.Equal(t, "isv.BUSINESS_LIMIT_CONTROL", *atts[1].ErrorCode)
}

func TestSMSTimeoutFallsBackToEmail(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 500}
	f.smsC.NextErr = context.DeadlineExceeded

	n := notification(testRecipient(t), fullLink(), model.AlertLevelSoftAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Equal(t, 1, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	require.Equal(t, "TIMEOUT", *atts[1].ErrorCode)
}

func TestEscalationSendsDirectEmail(t *testing.T) {
	f := newDispatchFixture(t)

	// 短信成功也要直发邮件
	n := notification(testRecipient(t), fullLink(), model.AlertLevelEscalation)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))

	require.Equal(t, 1, f.pushC.SentCount())
	require.Equal(t, 1, f.emailC.SentCount())

	for _, a := range f.attempts(t, n.Alert.ID) {
		if a.Channel == model.NotificationChannelEmail {
			require.False(t, a.IsFallback)
		}
	}
}

func TestVoiceIsAdditiveForEmergencyContacts(t *testing.T) {
	f := newDispatchFixture(t)

	link := fullLink()
	link.IsEmergencyContact = true
	n := notification(testRecipient(t), link, model.AlertLevelHardAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Equal(t, 1, f.voiceC.CallCount())

	// 语音失败不影响整体送达判定
	f2 := newDispatchFixture(t)
	f2.voiceC.NextErr = &voice.CallError{Code: "isv.BUSY", Message: "line busy"}
	n2 := notification(testRecipient(t), link, model.AlertLevelHardAlert)
	require.NoError(t, f2.dispatcher.Notify(context.Background(), n2))
}

func TestVoiceReachesAllSupportersAtHardAlert(t *testing.T) {
	f := newDispatchFixture(t)

	// 非紧急联系人的普通守护人在高等级同样接到语音
	n := notification(testRecipient(t), fullLink(), model.AlertLevelHardAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Equal(t, 1, f.voiceC.CallCount())
}

func TestVoiceSkippedForChecker(t *testing.T) {
	f := newDispatchFixture(t)

	// 语音只打给守护人，被守护人本人 link 为 nil
	n := notification(testRecipient(t), nil, model.AlertLevelHardAlert)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Zero(t, f.voiceC.CallCount())
}

func TestReminderLevelOnlyPushes(t *testing.T) {
	f := newDispatchFixture(t)

	// 被守护人本人，link 为 nil
	n := notification(testRecipient(t), nil, model.AlertLevelReminder)
	require.NoError(t, f.dispatcher.Notify(context.Background(), n))

	require.Equal(t, 1, f.pushC.SentCount())
	require.Zero(t, f.smsC.CallCount())
	require.Zero(t, f.emailC.SentCount())
}

func TestSMSOptOutGoesDirectlyToEmail(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 500}

	// 等级要求短信但接收人关掉了短信，直接走邮件，不算降级
	link := fullLink()
	link.NotifySMS = false
	n := notification(testRecipient(t), link, model.AlertLevelSoftAlert)

	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Zero(t, f.smsC.CallCount())
	require.Equal(t, 1, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	emailAtt := atts[len(atts)-1]
	require.Equal(t, model.NotificationChannelEmail, emailAtt.Channel)
	require.False(t, emailAtt.IsFallback)
}

func TestFallbackEmailIgnoresEmailOptOut(t *testing.T) {
	f := newDispatchFixture(t)
	f.pushC.NextErr = &push.SendError{StatusCode: 500}
	f.smsC.NextErr = &sms.SendError{Code: "INVALID_NUMBER", Message: "not a number"}

	// 邮件是兜底通道，短信确认不可达后即使关了邮件开关也要送达
	link := fullLink()
	link.NotifyEmail = false
	n := notification(testRecipient(t), link, model.AlertLevelSoftAlert)

	require.NoError(t, f.dispatcher.Notify(context.Background(), n))
	require.Equal(t, 1, f.emailC.SentCount())

	atts := f.attempts(t, n.Alert.ID)
	emailAtt := atts[len(atts)-1]
	require.Equal(t, model.NotificationChannelEmail, emailAtt.Channel)
	require.True(t, emailAtt.IsFallback)
}

func TestNoUsableChannelReturnsError(t *testing.T) {
	f := newDispatchFixture(t)

	u := testRecipient(t)
	u.PushToken = ""
	u.PhoneCipher = nil
	u.Email = ""
	n := notification(u, fullLink(), model.AlertLevelSoftAlert)

	err := f.dispatcher.Notify(context.Background(), n)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no usable channel")
}
