package service

import (
	"context"
	stderrors "errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/internal/model"
	"SafeCircle/internal/model/dto"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
)

// ScheduleService 打卡窗口配置
type ScheduleService struct {
	schedules *repository.ScheduleRepo
}

func NewScheduleService(schedules *repository.ScheduleRepo) *ScheduleService {
	return &ScheduleService{schedules: schedules}
}

// Get 我的日程，未配置时返回 ScheduleNotFound
func (s *ScheduleService) Get(ctx context.Context, ownerID int64) (*model.CheckInSchedule, error) {
	schedule, err := s.schedules.FindByOwner(ctx, ownerID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// Upsert 创建或整体替换我的日程
func (s *ScheduleService) Upsert(ctx context.Context, ownerID int64, req *dto.UpdateScheduleRequest) (*model.CheckInSchedule, error) {
	if err := validateScheduleRequest(req); err != nil {
		return nil, err
	}

	schedule := &model.CheckInSchedule{
		OwnerID:           ownerID,
		WindowStartHour:   req.WindowStartHour,
		WindowStartMinute: req.WindowStartMinute,
		WindowEndHour:     req.WindowEndHour,
		WindowEndMinute:   req.WindowEndMinute,
		Timezone:          req.Timezone,
		ActiveDays:        model.IntList(req.ActiveDays),
		GraceMinutes:      req.GraceMinutes,

		ReminderEnabled:          req.ReminderEnabled,
		ReminderMinutesBeforeEnd: req.ReminderMinutesBeforeEnd,

		Active: req.Active,
	}

	if err := s.schedules.Upsert(ctx, schedule); err != nil {
		return nil, err
	}

	logger.Logger.Info("Schedule updated",
		zap.Int64("owner_id", ownerID),
		zap.String("timezone", schedule.Timezone),
		zap.Bool("active", schedule.Active),
	)
	return schedule, nil
}

func validateScheduleRequest(req *dto.UpdateScheduleRequest) error {
	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return errors.ScheduleTimezoneBad
	}

	if !clockValid(req.WindowStartHour, req.WindowStartMinute) ||
		!clockValid(req.WindowEndHour, req.WindowEndMinute) {
		return errors.ScheduleWindowBad
	}

	start := req.WindowStartHour*60 + req.WindowStartMinute
	end := req.WindowEndHour*60 + req.WindowEndMinute
	if end <= start {
		return errors.ScheduleWindowBad
	}

	if req.GraceMinutes < 0 {
		return errors.ScheduleWindowBad
	}

	for _, d := range req.ActiveDays {
		if d < 0 || d > 6 {
			return errors.ScheduleDaysInvalid
		}
	}
	return nil
}

func clockValid(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}
