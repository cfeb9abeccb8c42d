package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/internal/escalation"
	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/email"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/push"
	"SafeCircle/pkg/sms"
	"SafeCircle/pkg/voice"
	"SafeCircle/utils"
)

// Providers 派发器用到的全部通道客户端，测试时注入 mock
type Providers struct {
	Push  push.Client
	SMS   sms.Client
	Email email.Client
	Voice voice.Client
}

// Dispatcher 按 推送 -> 短信 -> 邮件 的顺序尝试送达一条警报通知。
// 推送是免费的 best-effort 通道，成败都不影响后面的通道；等级
// 要求短信时短信总会尝试。邮件是兜底通道，短信失败命中"号码不
// 可达"闭集、或该等级需要短信但接收人没有可用短信时直接发出，
// 接收人的邮件开关拦不住兜底。限流类短信失败不降级。语音是
// 高等级警报的附加通道，不参与降级链。每次尝试都落一条
// NotificationAttempt。
type Dispatcher struct {
	providers Providers
	attempts  *repository.AttemptRepo
	clk       clock.Clock

	timeout     time.Duration
	smsSign     string
	smsTemplate string
	voiceTts    string
}

// Notification 一次待送达的警报通知
type Notification struct {
	Alert     *model.AlertEvent
	Recipient *model.User
	Link      *model.CircleLink // 接收人是被守护人本人时为 nil
	Level     model.AlertLevel
	IsChecker bool
}

func NewDispatcher(providers Providers, attempts *repository.AttemptRepo, clk clock.Clock) *Dispatcher {
	cfg := config.Cfg
	return &Dispatcher{
		providers:   providers,
		attempts:    attempts,
		clk:         clk,
		timeout:     time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
		smsSign:     cfg.SMSSignName,
		smsTemplate: cfg.SMSTemplateCode,
		voiceTts:    cfg.VoiceTtsCode,
	}
}

// smsFallbackCodes 允许降级到邮件的厂商码闭集。只收录明确表示
// "这个号码收不到"的失败；没见过的码一律不降级。
var smsFallbackCodes = map[string]struct{}{
	"isv.MOBILE_NUMBER_ILLEGAL": {},
	"isv.OUT_OF_SERVICE":        {},
	"INVALID_NUMBER":            {},
	"UNREACHABLE":               {},
}

// smsFallbackEligible 超时按"不可达"处理，同样允许降级
func smsFallbackEligible(err error) bool {
	var sendErr *sms.SendError
	if stderrors.As(err, &sendErr) {
		_, ok := smsFallbackCodes[sendErr.Code]
		return ok
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

func errorCode(err error) *string {
	var code string

	var smsErr *sms.SendError
	var pushErr *push.SendError
	var emailErr *email.SendError
	var voiceErr *voice.CallError

	switch {
	case stderrors.As(err, &smsErr):
		code = smsErr.Code
	case stderrors.As(err, &pushErr):
		if pushErr.Code != "" {
			code = pushErr.Code
		} else {
			code = fmt.Sprintf("HTTP_%d", pushErr.StatusCode)
		}
	case stderrors.As(err, &emailErr):
		code = fmt.Sprintf("HTTP_%d", emailErr.StatusCode)
	case stderrors.As(err, &voiceErr):
		code = voiceErr.Code
	case stderrors.Is(err, context.DeadlineExceeded):
		code = "TIMEOUT"
	default:
		code = "UNKNOWN"
	}

	return &code
}

// Notify 对单个接收人执行完整的送达流程。只要有任意一条通道
// 成功就返回 nil；全部失败时返回最后一个错误，交给消费者重试。
func (d *Dispatcher) Notify(ctx context.Context, n *Notification) error {
	policy := escalation.PolicyFor(n.Level)
	content := buildContent(n)

	var delivered bool
	var lastErr error

	// 推送：总是先试，结果不决定后续通道
	if d.pushAllowed(n) {
		err := d.tryPush(ctx, n, content)
		if err == nil {
			delivered = true
		} else {
			lastErr = err
			logger.Logger.Warn("Push delivery failed",
				zap.Int64("alert_id", n.Alert.PublicID),
				zap.Int64("recipient_id", n.Recipient.ID),
				zap.Error(err),
			)
		}
	}

	// 短信：等级要求且接收人开启时必发，与推送结果无关
	smsAttempted := false
	emailAsFallback := false
	if policy.SMS && d.smsAllowed(n) {
		smsAttempted = true
		err := d.trySMS(ctx, n, content)
		if err == nil {
			delivered = true
		} else {
			lastErr = err
			if smsFallbackEligible(err) {
				emailAsFallback = true
			} else {
				logger.Logger.Warn("SMS delivery failed with non-fallback code",
					zap.Int64("alert_id", n.Alert.PublicID),
					zap.Int64("recipient_id", n.Recipient.ID),
					zap.Error(err),
				)
			}
		}
	}

	// 邮件：最高等级直接抄送；短信确认不可达后兜底；等级要求
	// 短信但接收人没有可用短信时直接发出
	wantEmail := policy.DirectEmail || emailAsFallback || (policy.SMS && !smsAttempted)
	if wantEmail && d.emailAllowed(n) {
		err := d.tryEmail(ctx, n, content, emailAsFallback)
		if err == nil {
			delivered = true
		} else {
			lastErr = err
		}
	}

	// 语音：高等级警报的附加通道，不算入送达判定的降级链
	if policy.Voice && d.voiceAllowed(n) {
		if err := d.tryVoice(ctx, n, content); err != nil {
			logger.Logger.Error("Voice call failed",
				zap.Int64("alert_id", n.Alert.PublicID),
				zap.Int64("recipient_id", n.Recipient.ID),
				zap.Error(err),
			)
		}
	}

	if delivered {
		return nil
	}
	if lastErr == nil {
		// 接收人没有任何可用通道
		return fmt.Errorf("no usable channel for recipient %d", n.Recipient.ID)
	}
	return lastErr
}

func (d *Dispatcher) pushAllowed(n *Notification) bool {
	if d.providers.Push == nil || n.Recipient.PushToken == "" {
		return false
	}
	return n.Link == nil || n.Link.NotifyPush
}

func (d *Dispatcher) smsAllowed(n *Notification) bool {
	if d.providers.SMS == nil || len(n.Recipient.PhoneCipher) == 0 {
		return false
	}
	return n.Link == nil || n.Link.NotifySMS
}

// emailAllowed 邮件是兜底通道，不看 Link.NotifyEmail 开关，
// 有地址有客户端就能发。
func (d *Dispatcher) emailAllowed(n *Notification) bool {
	return d.providers.Email != nil && n.Recipient.Email != ""
}

// voiceAllowed 语音只打给守护人，不打给被守护人本人
func (d *Dispatcher) voiceAllowed(n *Notification) bool {
	if d.providers.Voice == nil || len(n.Recipient.PhoneCipher) == 0 {
		return false
	}
	return n.Link != nil
}

func (d *Dispatcher) tryPush(ctx context.Context, n *Notification, content *messageContent) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.providers.Push.Send(callCtx, n.Recipient.PushToken, content.Title, content.Body, map[string]string{
		"alert_id": fmt.Sprintf("%d", n.Alert.PublicID),
		"level":    string(n.Level),
	})
	d.record(ctx, n, model.NotificationChannelPush, err, false)
	return err
}

func (d *Dispatcher) trySMS(ctx context.Context, n *Notification, content *messageContent) error {
	phone, err := utils.DecryptPhone(n.Recipient.PhoneCipher)
	if err != nil {
		return fmt.Errorf("failed to decrypt recipient phone: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err = d.providers.SMS.SendSingle(callCtx, phone, d.smsSign, d.smsTemplate, content.SMSParam)
	d.record(ctx, n, model.NotificationChannelSMS, err, false)
	return err
}

func (d *Dispatcher) tryEmail(ctx context.Context, n *Notification, content *messageContent, isFallback bool) error {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.providers.Email.Send(callCtx, n.Recipient.Email, content.EmailSubject, content.Body, content.EmailHTML)
	d.record(ctx, n, model.NotificationChannelEmail, err, isFallback)
	return err
}

func (d *Dispatcher) tryVoice(ctx context.Context, n *Notification, content *messageContent) error {
	phone, err := utils.DecryptPhone(n.Recipient.PhoneCipher)
	if err != nil {
		return fmt.Errorf("failed to decrypt recipient phone: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err = d.providers.Voice.CallTts(callCtx, phone, d.voiceTts, content.VoiceParam)
	d.record(ctx, n, model.NotificationChannelVoice, err, false)
	return err
}

func (d *Dispatcher) record(ctx context.Context, n *Notification, channel model.NotificationChannel, sendErr error, isFallback bool) {
	attempt := &model.NotificationAttempt{
		AlertID:     n.Alert.ID,
		RecipientID: n.Recipient.ID,
		Channel:     channel,
		Outcome:     model.AttemptOutcomeSent,
		IsFallback:  isFallback,
		AttemptedAt: d.clk.Now(),
	}
	if sendErr != nil {
		attempt.Outcome = model.AttemptOutcomeFailed
		attempt.ErrorCode = errorCode(sendErr)
	}

	if err := d.attempts.Append(ctx, attempt); err != nil {
		// 发送记录丢失不应中断送达流程
		logger.Logger.Error("Failed to record notification attempt",
			zap.Int64("alert_id", n.Alert.PublicID),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
	}
}

type messageContent struct {
	Title        string
	Body         string
	SMSParam     string
	VoiceParam   string
	EmailSubject string
	EmailHTML    string
}

var levelTitles = map[model.AlertLevel]string{
	model.AlertLevelReminder:   "Check-in reminder",
	model.AlertLevelSoftAlert:  "Missed check-in",
	model.AlertLevelHardAlert:  "Urgent: missed check-in",
	model.AlertLevelEscalation: "EMERGENCY: prolonged missed check-in",
}

func buildContent(n *Notification) *messageContent {
	title := levelTitles[n.Level]

	var body string
	if n.IsChecker {
		body = fmt.Sprintf("You haven't checked in today. Open the app to let your circle know you're OK. (Alert #%d)", n.Alert.PublicID)
	} else {
		body = fmt.Sprintf("%s missed their check-in window. Last check-in: %s. Please reach out. (Alert #%d)",
			n.Alert.CheckerName, formatLastSeen(n.Alert), n.Alert.PublicID)
	}

	param, _ := json.Marshal(map[string]string{
		"name":  n.Alert.CheckerName,
		"level": string(n.Level),
		"alert": fmt.Sprintf("%d", n.Alert.PublicID),
	})

	return &messageContent{
		Title:        title,
		Body:         body,
		SMSParam:     string(param),
		VoiceParam:   string(param),
		EmailSubject: fmt.Sprintf("[SafeCircle] %s", title),
		EmailHTML:    fmt.Sprintf("<p>%s</p>", body),
	}
}

func formatLastSeen(alert *model.AlertEvent) string {
	if alert.LastCheckInAt == nil {
		return "unknown"
	}
	return alert.LastCheckInAt.UTC().Format(time.RFC1123)
}
