package service

import (
	"sync"

	"gorm.io/gorm"

	"SafeCircle/internal/repository"
	"SafeCircle/pkg/clock"
)

// 各服务的单例在 Init 中一次性装配。测试绕过这里，
// 直接用 NewXxxService 注入 sqlite 和 mock clock。
var (
	initOnce sync.Once

	alertService    *AlertService
	checkInService  *CheckInService
	scheduleService *ScheduleService
	circleService   *CircleService
	authService     *AuthService
)

func Init(db *gorm.DB, clk clock.Clock) {
	initOnce.Do(func() {
		alerts := repository.NewAlertRepo(db)
		users := repository.NewUserRepo(db)
		schedules := repository.NewScheduleRepo(db)
		checkIns := repository.NewCheckInRepo(db)
		circles := repository.NewCircleRepo(db)

		alertService = NewAlertService(alerts, circles, users, clk)
		checkInService = NewCheckInService(checkIns, schedules, alertService, clk)
		scheduleService = NewScheduleService(schedules)
		circleService = NewCircleService(circles, users)
		authService = NewAuthService(users)
	})
}

func Alert() *AlertService {
	if alertService == nil {
		panic("service layer not initialized, call service.Init() first")
	}
	return alertService
}

func CheckIn() *CheckInService {
	if checkInService == nil {
		panic("service layer not initialized, call service.Init() first")
	}
	return checkInService
}

func Schedule() *ScheduleService {
	if scheduleService == nil {
		panic("service layer not initialized, call service.Init() first")
	}
	return scheduleService
}

func Circle() *CircleService {
	if circleService == nil {
		panic("service layer not initialized, call service.Init() first")
	}
	return circleService
}

func Auth() *AuthService {
	if authService == nil {
		panic("service layer not initialized, call service.Init() first")
	}
	return authService
}
