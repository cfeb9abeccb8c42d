package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"SafeCircle/internal/model"
)

type CheckInRepo struct {
	db *gorm.DB
}

func NewCheckInRepo(db *gorm.DB) *CheckInRepo {
	return &CheckInRepo{db: db}
}

func (r *CheckInRepo) Create(ctx context.Context, checkIn *model.CheckIn) error {
	return r.db.WithContext(ctx).Create(checkIn).Error
}

func (r *CheckInRepo) Update(ctx context.Context, checkIn *model.CheckIn) error {
	return r.db.WithContext(ctx).Save(checkIn).Error
}

// FindLatestByUser 最近一次打卡，从未打过卡返回 ErrRecordNotFound
func (r *CheckInRepo) FindLatestByUser(ctx context.Context, userID int64) (*model.CheckIn, error) {
	var checkIn model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("checked_in_at DESC").
		First(&checkIn).Error
	if err != nil {
		return nil, err
	}
	return &checkIn, nil
}

// FindLatestSince 晚于 since 的最近一次打卡。扫描器用它判定
// "窗口开始之后是否有合格打卡"。
func (r *CheckInRepo) FindLatestSince(ctx context.Context, userID int64, since time.Time) (*model.CheckIn, error) {
	var checkIn model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("checked_in_at >= ?", since).
		Order("checked_in_at DESC").
		First(&checkIn).Error
	if err != nil {
		return nil, err
	}
	return &checkIn, nil
}

func (r *CheckInRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.CheckIn, error) {
	var checkIns []*model.CheckIn
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("checked_in_at DESC").
		Limit(limit).
		Find(&checkIns).Error
	return checkIns, err
}
