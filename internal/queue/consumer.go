package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/internal/cache"
	"SafeCircle/internal/model"
	"SafeCircle/internal/notify"
	"SafeCircle/internal/repository"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
)

const consumeTimeout = 60 * time.Second

// AlertConsumer 警报通知消费者：反序列化 -> 幂等闸门 -> 状态核对 ->
// 交给 Dispatcher 投递。已解除的警报与重复消息用 SkipMessageError
// 丢弃，真实投递失败 Nack 重试。
type AlertConsumer struct {
	alerts     *service.AlertService
	users      *repository.UserRepo
	circles    *repository.CircleRepo
	dispatcher *notify.Dispatcher
}

func NewAlertConsumer(alerts *service.AlertService, users *repository.UserRepo, circles *repository.CircleRepo, dispatcher *notify.Dispatcher) *AlertConsumer {
	return &AlertConsumer{
		alerts:     alerts,
		users:      users,
		circles:    circles,
		dispatcher: dispatcher,
	}
}

// Handle 处理一条队列消息
func (c *AlertConsumer) Handle(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), consumeTimeout)
	defer cancel()

	var msg model.AlertNotifyMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("malformed message: %v", err)}
	}

	first, err := cache.TryMarkMessageProcessing(ctx, msg.MessageID, 0)
	if err != nil {
		return err
	}
	if !first {
		return &errors.SkipMessageError{Reason: "duplicate message " + msg.MessageID}
	}

	if err := c.deliver(ctx, &msg); err != nil {
		// 放行重试
		if unmarkErr := cache.UnmarkMessageProcessing(ctx, msg.MessageID); unmarkErr != nil {
			logger.Logger.Error("Failed to unmark message",
				zap.String("message_id", msg.MessageID),
				zap.Error(unmarkErr),
			)
		}
		return err
	}

	if err := cache.MarkMessageProcessed(ctx, msg.MessageID, 0); err != nil {
		logger.Logger.Warn("Failed to mark message processed",
			zap.String("message_id", msg.MessageID),
			zap.Error(err),
		)
	}
	return nil
}

func (c *AlertConsumer) deliver(ctx context.Context, msg *model.AlertNotifyMessage) error {
	alert, err := c.alerts.GetByPublicID(ctx, msg.AlertID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return &errors.SkipMessageError{Reason: "alert not found: " + strconv.FormatInt(msg.AlertID, 10)}
		}
		return err
	}

	// 投递前的最后核对：已终态的警报不再打扰任何人
	if alert.Status.Terminal() {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("alert %d already %s", alert.PublicID, alert.Status)}
	}

	recipient, err := c.users.FindByID(ctx, msg.RecipientID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return &errors.SkipMessageError{Reason: "recipient not found"}
		}
		return err
	}
	if recipient.Status != model.UserStatusActive {
		return &errors.SkipMessageError{Reason: "recipient inactive"}
	}

	level := model.AlertLevel(msg.Level)
	if !level.Valid() {
		return &errors.SkipMessageError{Reason: "unknown level " + msg.Level}
	}

	var link *model.CircleLink
	if !msg.IsChecker {
		link, err = c.circles.FindPair(ctx, msg.CheckerID, msg.RecipientID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				// 守护人已被移出圈子
				return &errors.SkipMessageError{Reason: "recipient no longer in circle"}
			}
			return err
		}
	}

	return c.dispatcher.Notify(ctx, &notify.Notification{
		Alert:     alert,
		Recipient: recipient,
		Link:      link,
		Level:     level,
		IsChecker: msg.IsChecker,
	})
}
