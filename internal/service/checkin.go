package service

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/internal/model"
	"SafeCircle/internal/repository"
	"SafeCircle/internal/window"
	"SafeCircle/pkg/clock"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
)

// CheckInService 每日打卡。提交成功即解除该用户的全部活跃警报，
// 这是警报生命周期里唯一由被守护人自己驱动的解除路径。
type CheckInService struct {
	checkIns  *repository.CheckInRepo
	schedules *repository.ScheduleRepo
	alerts    *AlertService
	clk       clock.Clock
}

func NewCheckInService(checkIns *repository.CheckInRepo, schedules *repository.ScheduleRepo, alerts *AlertService, clk clock.Clock) *CheckInService {
	return &CheckInService{
		checkIns:  checkIns,
		schedules: schedules,
		alerts:    alerts,
		clk:       clk,
	}
}

// Complete 提交或更新今日打卡。当天已有记录时就地更新分数，
// 不产生第二条记录。返回 (记录, 本次解除的警报数)。
func (s *CheckInService) Complete(ctx context.Context, userID int64, mood, energy, safety int, location string) (*model.CheckIn, int64, error) {
	now := s.clk.Now()

	checkIn := &model.CheckIn{
		UserID:      userID,
		CheckedInAt: now,
		MoodScore:   mood,
		EnergyScore: energy,
		SafetyScore: safety,
		Location:    location,
	}
	if !checkIn.ScoresValid() {
		return nil, 0, errors.CheckInScoreInvalid
	}

	dayStart, err := s.localDayStart(ctx, userID, now)
	if err != nil {
		return nil, 0, err
	}

	existing, err := s.checkIns.FindLatestSince(ctx, userID, dayStart)
	switch {
	case err == nil:
		existing.CheckedInAt = now
		existing.MoodScore = mood
		existing.EnergyScore = energy
		existing.SafetyScore = safety
		if location != "" {
			existing.Location = location
		}
		if err := s.checkIns.Update(ctx, existing); err != nil {
			return nil, 0, err
		}
		checkIn = existing
	case stderrors.Is(err, gorm.ErrRecordNotFound):
		if err := s.checkIns.Create(ctx, checkIn); err != nil {
			return nil, 0, err
		}
	default:
		return nil, 0, err
	}

	resolved, err := s.alerts.ResolveAllForChecker(ctx, userID)
	if err != nil {
		// 打卡已落库，解除失败交给下一轮扫描兜底
		logger.Logger.Error("Check-in saved but alert resolution failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		return checkIn, 0, nil
	}

	return checkIn, resolved, nil
}

// Today 查询今日打卡状态
func (s *CheckInService) Today(ctx context.Context, userID int64) (*model.CheckIn, error) {
	now := s.clk.Now()

	dayStart, err := s.localDayStart(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	checkIn, err := s.checkIns.FindLatestSince(ctx, userID, dayStart)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return checkIn, nil
}

// History 最近的打卡记录，limit 上限 90
func (s *CheckInService) History(ctx context.Context, userID int64, limit int) ([]*model.CheckIn, error) {
	if limit <= 0 || limit > 90 {
		limit = 30
	}
	return s.checkIns.ListByUser(ctx, userID, limit)
}

// localDayStart "今天"按用户日程的时区界定，没有日程或时区配置
// 损坏时退回 UTC
func (s *CheckInService) localDayStart(ctx context.Context, userID int64, now time.Time) (time.Time, error) {
	schedule, err := s.schedules.FindByOwner(ctx, userID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return utcDayStart(now), nil
		}
		return time.Time{}, err
	}

	day, err := window.LocalDay(schedule, now)
	if err != nil {
		return utcDayStart(now), nil
	}
	return day, nil
}

func utcDayStart(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
