package repository

import (
	"context"

	"gorm.io/gorm"

	"SafeCircle/internal/model"
)

// AttemptRepo 通知发送记录，只追加
type AttemptRepo struct {
	db *gorm.DB
}

func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

func (r *AttemptRepo) Append(ctx context.Context, attempt *model.NotificationAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *AttemptRepo) ListByAlert(ctx context.Context, alertID int64) ([]*model.NotificationAttempt, error) {
	var attempts []*model.NotificationAttempt
	err := r.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("attempted_at ASC, id ASC").
		Find(&attempts).Error
	return attempts, err
}
