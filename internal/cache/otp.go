package cache

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"SafeCircle/storage/redis"
)

const (
	loginCodePrefix     = "login:code"
	loginThrottlePrefix = "login:throttle"

	loginCodeTTL     = 5 * time.Minute
	loginThrottleTTL = 60 * time.Second
)

// StoreLoginCode 保存登录验证码，覆盖旧码
func StoreLoginCode(ctx context.Context, phoneHash, code string) error {
	key := redis.Key(loginCodePrefix, phoneHash)
	return redis.Client().Set(ctx, key, code, loginCodeTTL).Err()
}

// TakeLoginCode 取出并删除验证码，一次校验后即失效。
// 不存在时返回空串。
func TakeLoginCode(ctx context.Context, phoneHash string) (string, error) {
	key := redis.Key(loginCodePrefix, phoneHash)

	code, err := redis.Client().GetDel(ctx, key).Result()
	if err == goredis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to take login code: %w", err)
	}
	return code, nil
}

// TryThrottleLogin 同一号码 60 秒内只允许请求一次验证码
func TryThrottleLogin(ctx context.Context, phoneHash string) (bool, error) {
	key := redis.Key(loginThrottlePrefix, phoneHash)

	ok, err := redis.Client().SetNX(ctx, key, 1, loginThrottleTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to throttle login: %w", err)
	}
	return ok, nil
}
