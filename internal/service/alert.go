package service

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/snowflake"
)

// AlertService 警报状态机。
// 状态迁移：Pending -> Sent -> Acknowledged -> Resolved，
// 任意非终态可被 Resolve/Cancel；等级只升不降；
// 全部写入经由仓储层的条件 UPDATE，并发调用彼此幂等。
type AlertService struct {
	alerts  *repository.AlertRepo
	circles *repository.CircleRepo
	users   *repository.UserRepo
	clk     clock.Clock
}

func NewAlertService(alerts *repository.AlertRepo, circles *repository.CircleRepo, users *repository.UserRepo, clk clock.Clock) *AlertService {
	return &AlertService{
		alerts:  alerts,
		circles: circles,
		users:   users,
		clk:     clk,
	}
}

// OpenAlertParams 扫描器判定出的一次漏打卡
type OpenAlertParams struct {
	Checker           *model.User
	Level             model.AlertLevel
	MissedWindowAt    time.Time
	MissedDay         string // YYYY-MM-DD，按被守护人时区
	LastCheckInAt     *time.Time
	LastKnownLocation string
}

// OpenOrEscalate 为漏打卡建立警报；该被守护人已有非终态警报时
// 转为升级路径。返回 (警报, 等级是否发生了变化)。
// 等级单调：目标等级不高于现有等级时原样返回，不产生任何写入。
func (s *AlertService) OpenOrEscalate(ctx context.Context, params *OpenAlertParams) (*model.AlertEvent, bool, error) {
	open, err := s.alerts.FindOpenByChecker(ctx, params.Checker.ID)
	if err == nil {
		return s.escalate(ctx, open, params.Level)
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	publicID, err := snowflake.NextID()
	if err != nil {
		return nil, false, err
	}

	alert := &model.AlertEvent{
		PublicID:          publicID,
		CheckerID:         params.Checker.ID,
		CheckerName:       params.Checker.DisplayName,
		Level:             params.Level,
		Status:            model.AlertStatusPending,
		TriggeredAt:       s.clk.Now(),
		MissedWindowAt:    params.MissedWindowAt,
		MissedDay:         params.MissedDay,
		LastCheckInAt:     params.LastCheckInAt,
		LastKnownLocation: params.LastKnownLocation,
	}

	created, got, err := s.alerts.CreateIfAbsent(ctx, alert)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// 竞争失败，落到另一实例刚建好的警报上走升级
		return s.escalate(ctx, got, params.Level)
	}

	logger.Logger.Info("Alert opened",
		zap.Int64("alert_id", got.PublicID),
		zap.Int64("checker_id", params.Checker.ID),
		zap.String("level", string(got.Level)),
		zap.String("missed_day", got.MissedDay),
	)
	return got, true, nil
}

func (s *AlertService) escalate(ctx context.Context, alert *model.AlertEvent, level model.AlertLevel) (*model.AlertEvent, bool, error) {
	if !level.MoreSevereThan(alert.Level) {
		return alert, false, nil
	}

	changed, err := s.alerts.EscalateCAS(ctx, alert.ID, level)
	if err != nil {
		return nil, false, err
	}
	if changed {
		alert.Level = level
		logger.Logger.Info("Alert escalated",
			zap.Int64("alert_id", alert.PublicID),
			zap.String("level", string(level)),
		)
	}
	return alert, changed, nil
}

// TriggerManual 手动触发一条测试警报，漏打卡日取被守护人时区的当天。
// 当天已有非终态警报时直接返回它，不会升级等级。
func (s *AlertService) TriggerManual(ctx context.Context, checkerID int64) (*model.AlertEvent, error) {
	checker, err := s.users.FindByID(ctx, checkerID)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	loc, err := time.LoadLocation(checker.Timezone)
	if err != nil {
		loc = time.UTC
	}

	alert, _, err := s.OpenOrEscalate(ctx, &OpenAlertParams{
		Checker:        checker,
		Level:          model.AlertLevelReminder,
		MissedWindowAt: now,
		MissedDay:      now.In(loc).Format("2006-01-02"),
	})
	return alert, err
}

// MarkSent 首批通知出队后 Pending -> Sent
func (s *AlertService) MarkSent(ctx context.Context, alertID int64) error {
	return s.alerts.MarkSentCAS(ctx, alertID)
}

// Acknowledge 守护人确认已看到警报。重复确认与对已终态警报的确认
// 都是成功的 no-op。
func (s *AlertService) Acknowledge(ctx context.Context, publicID, actorID int64) (*model.AlertEvent, error) {
	alert, err := s.getAuthorized(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}

	changed, err := s.alerts.AcknowledgeCAS(ctx, alert.ID, actorID, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Logger.Info("Alert acknowledged",
			zap.Int64("alert_id", alert.PublicID),
			zap.Int64("by", actorID),
		)
	}
	return s.alerts.FindByPublicID(ctx, publicID)
}

// Resolve 解除警报。resolved_at 只在首次终态化时写入，
// 重复解除是成功的 no-op。
func (s *AlertService) Resolve(ctx context.Context, publicID, actorID int64, resolution model.AlertResolution) (*model.AlertEvent, error) {
	if !resolution.Valid() {
		return nil, errors.AlertResolutionBad
	}

	alert, err := s.getAuthorized(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}

	changed, err := s.alerts.ResolveCAS(ctx, alert.ID, &actorID, resolution, s.clk.Now())
	if err != nil {
		return nil, err
	}
	if changed {
		logger.Logger.Info("Alert resolved",
			zap.Int64("alert_id", alert.PublicID),
			zap.Int64("by", actorID),
			zap.String("resolution", string(resolution)),
		)
	}
	return s.alerts.FindByPublicID(ctx, publicID)
}

// Cancel 管理员解除，不要求 actor 在守护圈内
func (s *AlertService) Cancel(ctx context.Context, publicID int64) (*model.AlertEvent, error) {
	alert, err := s.alerts.FindByPublicID(ctx, publicID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.AlertNotFound
		}
		return nil, err
	}

	if _, err := s.alerts.CancelCAS(ctx, alert.ID, s.clk.Now()); err != nil {
		return nil, err
	}
	return s.alerts.FindByPublicID(ctx, publicID)
}

// ResolveAllForChecker 打卡成功后解除该被守护人的全部活跃警报
func (s *AlertService) ResolveAllForChecker(ctx context.Context, checkerID int64) (int64, error) {
	n, err := s.alerts.ResolveAllForChecker(ctx, checkerID, s.clk.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Logger.Info("Alerts auto-resolved by check-in",
			zap.Int64("checker_id", checkerID),
			zap.Int64("count", n),
		)
	}
	return n, nil
}

// RecordNotified 把本轮扇出的守护人并入已通知集合
func (s *AlertService) RecordNotified(ctx context.Context, alertID int64, supporterIDs []int64) error {
	if len(supporterIDs) == 0 {
		return nil
	}
	return s.alerts.UnionNotified(ctx, alertID, supporterIDs)
}

// FindOpenByChecker 该被守护人当前的非终态警报
func (s *AlertService) FindOpenByChecker(ctx context.Context, checkerID int64) (*model.AlertEvent, error) {
	return s.alerts.FindOpenByChecker(ctx, checkerID)
}

// GetByPublicID 不做鉴权的内部读取（worker 消费消息时用）
func (s *AlertService) GetByPublicID(ctx context.Context, publicID int64) (*model.AlertEvent, error) {
	return s.alerts.FindByPublicID(ctx, publicID)
}

// ActiveAlerts 我名下的活跃警报
func (s *AlertService) ActiveAlerts(ctx context.Context, checkerID int64) ([]*model.AlertEvent, error) {
	return s.alerts.ListActiveByChecker(ctx, checkerID)
}

// AlertsNeedingAttention 作为守护人，已通知到我且未解除的警报
func (s *AlertService) AlertsNeedingAttention(ctx context.Context, supporterID int64) ([]*model.AlertEvent, error) {
	return s.alerts.ListNeedingAttention(ctx, supporterID)
}

// getAuthorized 警报操作人必须是被守护人本人或其守护圈成员
func (s *AlertService) getAuthorized(ctx context.Context, publicID, actorID int64) (*model.AlertEvent, error) {
	alert, err := s.alerts.FindByPublicID(ctx, publicID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.AlertNotFound
		}
		return nil, err
	}

	if alert.CheckerID == actorID {
		return alert, nil
	}

	if _, err := s.circles.FindPair(ctx, alert.CheckerID, actorID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.AlertNotYourCircle
		}
		return nil, err
	}
	return alert, nil
}
