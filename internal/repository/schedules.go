package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"SafeCircle/internal/model"
)

type ScheduleRepo struct {
	db *gorm.DB
}

func NewScheduleRepo(db *gorm.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) FindByOwner(ctx context.Context, ownerID int64) (*model.CheckInSchedule, error) {
	var schedule model.CheckInSchedule
	err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Upsert 每个用户至多一份日程，存在则整体覆盖
func (r *ScheduleRepo) Upsert(ctx context.Context, schedule *model.CheckInSchedule) error {
	existing, err := r.FindByOwner(ctx, schedule.OwnerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(schedule).Error
	}
	if err != nil {
		return err
	}

	schedule.ID = existing.ID
	schedule.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).Save(schedule).Error
}

// ListActive 扫描器的输入：所有启用中的日程
func (r *ScheduleRepo) ListActive(ctx context.Context) ([]*model.CheckInSchedule, error) {
	var schedules []*model.CheckInSchedule
	err := r.db.WithContext(ctx).Where("active = ?", true).Find(&schedules).Error
	return schedules, err
}

func (r *ScheduleRepo) SetActive(ctx context.Context, ownerID int64, active bool) error {
	return r.db.WithContext(ctx).Model(&model.CheckInSchedule{}).
		Where("owner_id = ?", ownerID).
		Update("active", active).Error
}
