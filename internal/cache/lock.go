package cache

import (
	"context"
	"fmt"
	"time"

	"SafeCircle/storage/redis"
)

// 基于 SETNX 的分布式锁。扫描器按 checker 粒度上锁，
// 保证多实例部署时同一个被守护人同一时刻只被一个实例评估。
const (
	lockPrefix = "lock"
)

func TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	fullKey := redis.Key(lockPrefix, key)

	result, err := redis.Client().SetNX(ctx, fullKey, 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return result, nil
}

func Unlock(ctx context.Context, key string) error {
	fullKey := redis.Key(lockPrefix, key)
	return redis.Client().Del(ctx, fullKey).Err()
}

// CheckerLockKey 扫描阶段的 per-checker 锁
func CheckerLockKey(checkerID int64) string {
	return fmt.Sprintf("scan:checker:%d", checkerID)
}
