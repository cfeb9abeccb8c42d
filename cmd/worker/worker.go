package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"SafeCircle/config"
	"SafeCircle/internal/notify"
	"SafeCircle/internal/queue"
	"SafeCircle/internal/repository"
	"SafeCircle/internal/service"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/email"
	"SafeCircle/pkg/logger"
	"SafeCircle/pkg/push"
	"SafeCircle/pkg/sms"
	"SafeCircle/pkg/snowflake"
	"SafeCircle/pkg/voice"
	"SafeCircle/storage"
	"SafeCircle/storage/database"
	"SafeCircle/storage/mq"
)

func main() {
	logger.Init()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 四条通知通道。单通道初始化失败只降级，调度器会落到下一通道。
	var providers notify.Providers
	if err := push.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize push service", zap.Error(err))
	} else {
		providers.Push = push.GetClient()
	}
	if err := sms.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize SMS service", zap.Error(err))
	} else {
		providers.SMS = sms.GetClient()
	}
	if err := email.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize email service", zap.Error(err))
	} else {
		providers.Email = email.GetClient()
	}
	if err := voice.Init(); err != nil {
		logger.Logger.Warn("Failed to initialize voice service", zap.Error(err))
	} else {
		providers.Voice = voice.GetClient()
	}

	db := database.DB()
	clk := clock.System()
	service.Init(db, clk)

	dispatcher := notify.NewDispatcher(providers, repository.NewAttemptRepo(db), clk)

	consumer := queue.NewAlertConsumer(
		service.Alert(),
		repository.NewUserRepo(db),
		repository.NewCircleRepo(db),
		dispatcher,
	)

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	// Consume 阻塞直到 channel 关闭；收到关闭信号后由 storage.Close
	// 断开连接使其退出
	go func() {
		if err := mq.Consume(mq.ConsumeOptions{
			Queue:         queue.AlertQueue,
			ConsumerTag:   config.Cfg.ServiceName + "-worker",
			PrefetchCount: 8,
			Handler:       consumer.Handle,
		}); err != nil {
			logger.Logger.Error("Alert consumer stopped", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()

	logger.Logger.Info("Worker service shutting down gracefully")
}
