package schedule

// 漏打卡扫描器：周期性遍历启用中的日程，找出"窗口+宽限已关闭且
// 没有合格打卡"的被守护人，建立或升级警报并按收件人扇出通知消息。
// 幂等性来自三层：per-checker 分布式锁、(checker, day) 唯一键、
// (alert, level, recipient) 的已发送标记。任何一轮重复执行都不会
// 产生重复消息。

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"SafeCircle/internal/cache"
	"SafeCircle/internal/escalation"
	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/internal/service"
	"SafeCircle/internal/window"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/push"
)

const checkerLockTTL = 2 * time.Minute

// Locker 扫描阶段的 per-checker 互斥
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Marker 重复通知的抑制标记
type Marker interface {
	TryMarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) (bool, error)
	UnmarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) error
	TryMarkDailyNudge(ctx context.Context, day string, userID int64) (bool, error)
}

// Publisher 通知消息出口
type Publisher interface {
	PublishAlertNotify(ctx context.Context, msg *model.AlertNotifyMessage) error
}

// RedisLocker 默认实现，包装 cache 包
type RedisLocker struct{}

func (RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cache.TryLock(ctx, key, ttl)
}

func (RedisLocker) Unlock(ctx context.Context, key string) error {
	return cache.Unlock(ctx, key)
}

// RedisMarker 默认实现，包装 cache 包
type RedisMarker struct{}

func (RedisMarker) TryMarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) (bool, error) {
	return cache.TryMarkNotifySent(ctx, alertID, level, recipientID, 0)
}

func (RedisMarker) UnmarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) error {
	return cache.UnmarkNotifySent(ctx, alertID, level, recipientID)
}

func (RedisMarker) TryMarkDailyNudge(ctx context.Context, day string, userID int64) (bool, error) {
	return cache.TryMarkDailyNudge(ctx, day, userID)
}

// Deps 扫描器的全部依赖，测试时逐项替换
type Deps struct {
	DB          *gorm.DB
	Alerts      *service.AlertService
	Clock       clock.Clock
	Locker      Locker
	Marker      Marker
	Publisher   Publisher
	Pusher      push.Client // 提前提醒的 best-effort 通道，可为 nil
	Concurrency int
}

type MissedCheckInScanner struct {
	schedules *repository.ScheduleRepo
	checkIns  *repository.CheckInRepo
	users     *repository.UserRepo
	circles   *repository.CircleRepo
	alerts    *service.AlertService

	clk       clock.Clock
	locker    Locker
	marker    Marker
	publisher Publisher
	pusher    push.Client

	concurrency int
	logger      *zap.Logger
}

func NewMissedCheckInScanner(d Deps) *MissedCheckInScanner {
	if d.Concurrency <= 0 {
		d.Concurrency = 16
	}
	return &MissedCheckInScanner{
		schedules:   repository.NewScheduleRepo(d.DB),
		checkIns:    repository.NewCheckInRepo(d.DB),
		users:       repository.NewUserRepo(d.DB),
		circles:     repository.NewCircleRepo(d.DB),
		alerts:      d.Alerts,
		clk:         d.Clock,
		locker:      d.Locker,
		marker:      d.Marker,
		publisher:   d.Publisher,
		pusher:      d.Pusher,
		concurrency: d.Concurrency,
		logger:      logger.Logger,
	}
}

// RunOnce 执行一轮完整扫描。单个日程的失败只记日志，不中断整轮；
// 返回的错误表示扫描本身没能跑起来（例如查询日程失败）。
func (s *MissedCheckInScanner) RunOnce(ctx context.Context) error {
	start := s.clk.Now()

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active schedules: %w", err)
	}
	if len(schedules) == 0 {
		return nil
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, sched := range schedules {
		sched := sched
		g.Go(func() error {
			if err := s.evaluate(gctx, sched); err != nil {
				s.logger.Error("Schedule evaluation failed",
					zap.Int64("owner_id", sched.OwnerID),
					zap.Error(err),
				)
				failed.Add(1)
			}
			// 单个日程的失败不触发整组取消
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("Missed check-in scan completed",
		zap.Int("schedules", len(schedules)),
		zap.Int64("failed", failed.Load()),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// evaluate 对单个被守护人做一次完整判定
func (s *MissedCheckInScanner) evaluate(ctx context.Context, sched *model.CheckInSchedule) error {
	user, err := s.users.FindByID(ctx, sched.OwnerID)
	if err != nil {
		return err
	}
	if user.Status != model.UserStatusActive {
		return nil
	}

	lockKey := cache.CheckerLockKey(user.ID)
	acquired, err := s.locker.TryLock(ctx, lockKey, checkerLockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		// 另一个实例正在处理
		return nil
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), lockKey); err != nil {
			s.logger.Warn("Failed to release checker lock",
				zap.Int64("checker_id", user.ID),
				zap.Error(err),
			)
		}
	}()

	now := s.clk.Now()

	// 已有非终态警报：只做等级升级判定，不重复建立
	open, err := s.alerts.FindOpenByChecker(ctx, user.ID)
	if err == nil {
		level := escalation.ClassifyLevel(now.Sub(open.MissedWindowAt))
		alert, _, err := s.alerts.OpenOrEscalate(ctx, &service.OpenAlertParams{
			Checker:        user,
			Level:          level,
			MissedWindowAt: open.MissedWindowAt,
			MissedDay:      open.MissedDay,
		})
		if err != nil {
			return err
		}
		return s.fanOut(ctx, alert, user)
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	missedDay, missedAt, found, err := s.findMissedDay(ctx, sched, user.ID, now)
	if err != nil {
		return err
	}
	if !found {
		return s.maybeNudge(ctx, sched, user, now)
	}

	// 第一轮提醒要等到 missed+1h，之前不建警报
	if now.Before(missedAt.Add(escalation.ReminderAfter)) {
		return nil
	}

	lastCheckIn, lastLocation := s.lastCheckInSnapshot(ctx, user.ID)

	alert, _, err := s.alerts.OpenOrEscalate(ctx, &service.OpenAlertParams{
		Checker:           user,
		Level:             escalation.ClassifyLevel(now.Sub(missedAt)),
		MissedWindowAt:    missedAt,
		MissedDay:         missedDay,
		LastCheckInAt:     lastCheckIn,
		LastKnownLocation: lastLocation,
	})
	if err != nil {
		return err
	}
	return s.fanOut(ctx, alert, user)
}

// findMissedDay 在昨天和今天里找最早一个"窗口+宽限已关闭且无合格
// 打卡"的日历日。先看昨天：跨过午夜才关闭的宽限期要归属前一天。
func (s *MissedCheckInScanner) findMissedDay(ctx context.Context, sched *model.CheckInSchedule, userID int64, now time.Time) (string, time.Time, bool, error) {
	today, err := window.LocalDay(sched, now)
	if err != nil {
		return "", time.Time{}, false, err
	}

	latest, err := s.checkIns.FindLatestByUser(ctx, userID)
	if err != nil && !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", time.Time{}, false, err
	}
	hasCheckIn := err == nil

	for _, day := range []time.Time{today.AddDate(0, 0, -1), today} {
		if !sched.ActiveDays.Contains(int(day.Weekday())) {
			continue
		}

		missedAt, err := window.MissedInstant(sched, day)
		if err != nil {
			return "", time.Time{}, false, err
		}
		if now.Before(missedAt) {
			continue
		}

		if hasCheckIn {
			qualifies, err := window.QualifiesForDay(sched, latest.CheckedInAt, day)
			if err != nil {
				return "", time.Time{}, false, err
			}
			if qualifies {
				continue
			}
		}

		return day.Format("2006-01-02"), missedAt, true, nil
	}

	return "", time.Time{}, false, nil
}

// maybeNudge 窗口截止前的提前提醒，push 直发，尽力而为
func (s *MissedCheckInScanner) maybeNudge(ctx context.Context, sched *model.CheckInSchedule, user *model.User, now time.Time) error {
	if !sched.ReminderEnabled || s.pusher == nil || user.PushToken == "" {
		return nil
	}

	in, err := window.InReminderSpan(sched, now)
	if err != nil || !in {
		return err
	}

	today, err := window.LocalDay(sched, now)
	if err != nil {
		return err
	}
	day := today.Format("2006-01-02")

	// 今天已打卡就不提醒
	latest, err := s.checkIns.FindLatestByUser(ctx, user.ID)
	if err == nil {
		qualifies, qErr := window.QualifiesForDay(sched, latest.CheckedInAt, today)
		if qErr == nil && qualifies {
			return nil
		}
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	first, err := s.marker.TryMarkDailyNudge(ctx, day, user.ID)
	if err != nil || !first {
		return err
	}

	if err := s.pusher.Send(ctx, user.PushToken,
		"Check-in window closing soon",
		"Your daily check-in window ends soon. Take a moment to check in.",
		map[string]string{"kind": "nudge"},
	); err != nil {
		s.logger.Warn("Nudge push failed",
			zap.Int64("user_id", user.ID),
			zap.Error(err),
		)
	}
	return nil
}

// fanOut 按当前等级把通知消息发给应收到的人。消息 ID 是
// (alert, level, recipient) 的确定性编码，worker 侧据此二次去重。
func (s *MissedCheckInScanner) fanOut(ctx context.Context, alert *model.AlertEvent, user *model.User) error {
	level := alert.Level

	if level == model.AlertLevelReminder {
		first, err := s.marker.TryMarkNotifySent(ctx, alert.ID, string(level), user.ID)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}

		if err := s.publish(ctx, alert, user.ID, true); err != nil {
			// 标记先行是为了挡住并发扫描；入队失败就回收标记，
			// 否则这条通知会被压制到标记过期
			s.unmark(ctx, alert.ID, level, user.ID)
			return err
		}
		return s.alerts.MarkSent(ctx, alert.ID)
	}

	links, err := s.circles.ListByChecker(ctx, alert.CheckerID)
	if err != nil {
		return err
	}

	targets := escalation.Recipients(level, links)
	notified := make([]int64, 0, len(targets))
	for _, link := range targets {
		first, err := s.marker.TryMarkNotifySent(ctx, alert.ID, string(level), link.SupporterID)
		if err != nil {
			return err
		}
		if !first {
			continue
		}

		if err := s.publish(ctx, alert, link.SupporterID, false); err != nil {
			s.unmark(ctx, alert.ID, level, link.SupporterID)
			return err
		}
		notified = append(notified, link.SupporterID)
	}

	if len(notified) > 0 {
		if err := s.alerts.RecordNotified(ctx, alert.ID, notified); err != nil {
			return err
		}
	}
	// 本等级的扇出已经完整处理过（包括没有符合条件的接收人），
	// 警报不再停留在 Pending
	return s.alerts.MarkSent(ctx, alert.ID)
}

func (s *MissedCheckInScanner) unmark(ctx context.Context, alertID int64, level model.AlertLevel, recipientID int64) {
	if err := s.marker.UnmarkNotifySent(ctx, alertID, string(level), recipientID); err != nil {
		s.logger.Error("Failed to release notify mark after publish error",
			zap.Int64("alert_id", alertID),
			zap.String("level", string(level)),
			zap.Int64("recipient_id", recipientID),
			zap.Error(err),
		)
	}
}

func (s *MissedCheckInScanner) publish(ctx context.Context, alert *model.AlertEvent, recipientID int64, isChecker bool) error {
	msg := &model.AlertNotifyMessage{
		MessageID:   fmt.Sprintf("notify:%d:%s:%d", alert.PublicID, alert.Level, recipientID),
		AlertID:     alert.PublicID,
		CheckerID:   alert.CheckerID,
		RecipientID: recipientID,
		Level:       string(alert.Level),
		IsChecker:   isChecker,
		ScheduledAt: s.clk.Now().UTC().Format(time.RFC3339),
	}
	return s.publisher.PublishAlertNotify(ctx, msg)
}

func (s *MissedCheckInScanner) lastCheckInSnapshot(ctx context.Context, userID int64) (*time.Time, string) {
	latest, err := s.checkIns.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, ""
	}
	t := latest.CheckedInAt
	return &t, latest.Location
}
