package service

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"SafeCircle/internal/model"
	"SafeCircle/internal/model/dto"
	"SafeCircle/internal/repository"
	"SafeCircle/pkg/errors"
	"SafeCircle/pkg/logger"
)

// CircleService 守护圈管理
type CircleService struct {
	circles *repository.CircleRepo
	users   *repository.UserRepo
}

func NewCircleService(circles *repository.CircleRepo, users *repository.UserRepo) *CircleService {
	return &CircleService{circles: circles, users: users}
}

// AddSupporter 把一位用户拉进我的守护圈。supporter 以 public id 指定。
func (s *CircleService) AddSupporter(ctx context.Context, checkerID int64, req *dto.AddSupporterRequest) (*model.CircleLink, error) {
	if req.AlertPriority <= 0 {
		return nil, errors.CirclePriorityBad
	}

	supporter, err := s.users.FindByPublicID(ctx, req.SupporterID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.CircleLinkNotFound
		}
		return nil, err
	}
	if supporter.ID == checkerID {
		return nil, errors.CircleSelfReference
	}

	if _, err := s.circles.FindPair(ctx, checkerID, supporter.ID); err == nil {
		return nil, errors.CircleLinkExists
	} else if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	link := &model.CircleLink{
		CheckerID:   checkerID,
		SupporterID: supporter.ID,

		CanPoke:        req.CanPoke,
		CanSeeMood:     req.CanSeeMood,
		CanSeeLocation: req.CanSeeLocation,
		CanSeeSelfie:   req.CanSeeSelfie,

		AlertPriority: req.AlertPriority,
		NotifyPush:    req.NotifyPush,
		NotifySMS:     req.NotifySMS,
		NotifyEmail:   req.NotifyEmail,

		IsEmergencyContact: req.IsEmergencyContact,
	}

	if err := s.circles.Create(ctx, link); err != nil {
		return nil, err
	}

	logger.Logger.Info("Supporter added to circle",
		zap.Int64("checker_id", checkerID),
		zap.Int64("supporter_id", supporter.ID),
		zap.Int("priority", link.AlertPriority),
	)
	return link, nil
}

// ListCircle 我的守护圈，按通知优先级排序
func (s *CircleService) ListCircle(ctx context.Context, checkerID int64) ([]*model.CircleLink, []*model.User, error) {
	links, err := s.circles.ListByChecker(ctx, checkerID)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]int64, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.SupporterID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return links, users, nil
}

// ListWatching 我正在守护的人
func (s *CircleService) ListWatching(ctx context.Context, supporterID int64) ([]*model.CircleLink, error) {
	return s.circles.ListBySupporter(ctx, supporterID)
}

// RemoveSupporter 把守护人移出我的圈子。supporter 以 public id 指定。
func (s *CircleService) RemoveSupporter(ctx context.Context, checkerID, supporterPublicID int64) error {
	supporter, err := s.users.FindByPublicID(ctx, supporterPublicID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.CircleLinkNotFound
		}
		return err
	}

	if _, err := s.circles.FindPair(ctx, checkerID, supporter.ID); err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.CircleLinkNotFound
		}
		return err
	}

	return s.circles.Delete(ctx, checkerID, supporter.ID)
}
