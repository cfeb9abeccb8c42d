package cache

import (
	"context"
	"fmt"
	"time"

	"SafeCircle/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	notifySentPrefix       = "notify:sent"

	processedTTL = 48 * time.Hour
)

// TryMarkMessageProcessing 消费者的幂等闸门（SETNX）。
// 返回 true 表示首次处理，false 表示重复投递，应整体跳过。
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 处理失败时清除标记，放行重试
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 处理成功后把标记升级为 completed 并延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// TryMarkDailyNudge 窗口截止前的提前提醒每天最多一次
func TryMarkDailyNudge(ctx context.Context, day string, userID int64) (bool, error) {
	key := redis.Key(notifySentPrefix, "nudge", day, fmt.Sprintf("%d", userID))

	result, err := redis.Client().SetNX(ctx, key, 1, processedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark daily nudge: %w", err)
	}
	return result, nil
}

// TryMarkNotifySent 同一警报同一等级对同一接收人只通知一次。
// 扫描周期可能远小于等级持续时间，这个标记让重复扫描不产生重复消息。
func TryMarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64, ttl time.Duration) (bool, error) {
	key := redis.Key(notifySentPrefix, fmt.Sprintf("%d", alertID), level, fmt.Sprintf("%d", recipientID))
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark notify sent: %w", err)
	}
	return result, nil
}

// UnmarkNotifySent 消息没能入队时回收标记，下一轮扫描重试
func UnmarkNotifySent(ctx context.Context, alertID int64, level string, recipientID int64) error {
	key := redis.Key(notifySentPrefix, fmt.Sprintf("%d", alertID), level, fmt.Sprintf("%d", recipientID))
	return redis.Client().Del(ctx, key).Err()
}
