package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/internal/queue"
	"SafeCircle/internal/schedule"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/push"
	"SafeCircle/pkg/snowflake"
	"SafeCircle/storage"
	"SafeCircle/storage/database"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scanner received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scanner", zap.Error(err))
	}
	defer storage.Close()

	if err := database.Migrate(); err != nil {
		logger.Logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scanner", zap.Error(err))
	}

	// 提前提醒的 best-effort 推送通道，初始化失败只降级不退出
	var pusher push.Client
	if err := push.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize push service, pre-deadline reminders disabled", zap.Error(err))
	} else {
		pusher = push.GetClient()
	}

	service.Init(database.DB(), clock.System())

	scanner := schedule.NewMissedCheckInScanner(schedule.Deps{
		DB:          database.DB(),
		Alerts:      service.Alert(),
		Clock:       clock.System(),
		Locker:      schedule.RedisLocker{},
		Marker:      schedule.RedisMarker{},
		Publisher:   queue.MQPublisher{},
		Pusher:      pusher,
		Concurrency: config.Cfg.ScanConcurrency,
	})

	logger.Logger.Info("Scanner service starting",
		zap.String("service", config.Cfg.ServiceName+"-scanner"),
		zap.String("environment", config.Cfg.Environment),
	)

	runScanLoop(ctx, scanner)

	logger.Logger.Info("Scanner service shutting down gracefully")
}

// runScanLoop 周期性执行漏打卡扫描。development 环境下固定 1 分钟
// 一轮，方便本地调试。
func runScanLoop(ctx context.Context, scanner *schedule.MissedCheckInScanner) {
	interval := time.Duration(config.Cfg.ScanIntervalMinutes) * time.Minute
	if config.Cfg.IsDevelopment() {
		interval = 1 * time.Minute
		logger.Logger.Info("Scan loop running in development mode with 1m interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Duration(config.Cfg.ScanTimeoutMinutes)*time.Minute)
			if err := scanner.RunOnce(runCtx); err != nil {
				logger.Logger.Error("Missed check-in scan failed", zap.Error(err))
			}
			cancel()
		}
	}
}
