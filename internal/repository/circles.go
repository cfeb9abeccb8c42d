package repository

import (
	"context"

	"gorm.io/gorm"

	"SafeCircle/internal/model"
)

type CircleRepo struct {
	db *gorm.DB
}

func NewCircleRepo(db *gorm.DB) *CircleRepo {
	return &CircleRepo{db: db}
}

func (r *CircleRepo) Create(ctx context.Context, link *model.CircleLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *CircleRepo) FindPair(ctx context.Context, checkerID, supporterID int64) (*model.CircleLink, error) {
	var link model.CircleLink
	err := r.db.WithContext(ctx).
		Where("checker_id = ? AND supporter_id = ?", checkerID, supporterID).
		First(&link).Error
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// ListByChecker 按通知优先级升序，派发时 priority 1 最先收到
func (r *CircleRepo) ListByChecker(ctx context.Context, checkerID int64) ([]*model.CircleLink, error) {
	var links []*model.CircleLink
	err := r.db.WithContext(ctx).
		Where("checker_id = ?", checkerID).
		Order("alert_priority ASC, id ASC").
		Find(&links).Error
	return links, err
}

// ListBySupporter 我在守护谁
func (r *CircleRepo) ListBySupporter(ctx context.Context, supporterID int64) ([]*model.CircleLink, error) {
	var links []*model.CircleLink
	err := r.db.WithContext(ctx).
		Where("supporter_id = ?", supporterID).
		Find(&links).Error
	return links, err
}

func (r *CircleRepo) Update(ctx context.Context, link *model.CircleLink) error {
	return r.db.WithContext(ctx).Save(link).Error
}

func (r *CircleRepo) Delete(ctx context.Context, checkerID, supporterID int64) error {
	return r.db.WithContext(ctx).
		Where("checker_id = ? AND supporter_id = ?", checkerID, supporterID).
		Delete(&model.CircleLink{}).Error
}
