package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SafeCircle/internal/model"
)

// AlertRepo 警报持久化。所有会影响终态/等级的写入都走 CAS 形式的
// 条件 UPDATE（WHERE status 仍为非终态），因此并发下 ResolvedAt
// 一旦写入不会被覆盖。
type AlertRepo struct {
	db *gorm.DB
}

func NewAlertRepo(db *gorm.DB) *AlertRepo {
	return &AlertRepo{db: db}
}

var nonTerminal = []string{
	string(model.AlertStatusPending),
	string(model.AlertStatusSent),
	string(model.AlertStatusAcknowledged),
}

// CreateIfAbsent 原子的 "insert if no open alert for (checker, day)"。
// 依赖 dup_key 唯一索引：冲突时 DoNothing，随后把已存在的警报查出来
// 返回给调用方去走 escalate 路径（竞争失败方被吸收，不报错）。
func (r *AlertRepo) CreateIfAbsent(ctx context.Context, alert *model.AlertEvent) (bool, *model.AlertEvent, error) {
	key := model.BuildDupKey(alert.CheckerID, alert.MissedDay)
	alert.DupKey = &key

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dup_key"}},
			DoNothing: true,
		}).
		Create(alert)
	if res.Error != nil {
		return false, nil, res.Error
	}

	if res.RowsAffected > 0 {
		return true, alert, nil
	}

	existing, err := r.FindOpenByDupKey(ctx, key)
	if err != nil {
		return false, nil, err
	}
	return false, existing, nil
}

func (r *AlertRepo) FindOpenByDupKey(ctx context.Context, key string) (*model.AlertEvent, error) {
	var alert model.AlertEvent
	err := r.db.WithContext(ctx).
		Where("dup_key = ?", key).
		Where("status IN ?", nonTerminal).
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// FindOpenByChecker 返回最近一条非终态警报，没有时返回 gorm.ErrRecordNotFound
func (r *AlertRepo) FindOpenByChecker(ctx context.Context, checkerID int64) (*model.AlertEvent, error) {
	var alert model.AlertEvent
	err := r.db.WithContext(ctx).
		Where("checker_id = ?", checkerID).
		Where("status IN ?", nonTerminal).
		Order("triggered_at DESC").
		First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *AlertRepo) FindByPublicID(ctx context.Context, publicID int64) (*model.AlertEvent, error) {
	var alert model.AlertEvent
	err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&alert).Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListActiveByChecker 非终态警报，最近的在前
func (r *AlertRepo) ListActiveByChecker(ctx context.Context, checkerID int64) ([]*model.AlertEvent, error) {
	var alerts []*model.AlertEvent
	err := r.db.WithContext(ctx).
		Where("checker_id = ?", checkerID).
		Where("status IN ?", nonTerminal).
		Order("triggered_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// ListNeedingAttention 已通知到该守护人且尚未终态的警报。
// notified_supporter_ids 的包含判断在内存中做，开放警报数量按
// 设计是个位数级别，不值得为它写方言相关的 JSONB 查询。
func (r *AlertRepo) ListNeedingAttention(ctx context.Context, supporterID int64) ([]*model.AlertEvent, error) {
	var alerts []*model.AlertEvent
	err := r.db.WithContext(ctx).
		Where("status IN ?", nonTerminal).
		Order("triggered_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, err
	}

	out := make([]*model.AlertEvent, 0, len(alerts))
	for _, a := range alerts {
		if a.NotifiedSupporterIDs.Contains(supporterID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// EscalateCAS 仅当警报仍为非终态且新等级严格更高时抬升等级。
// 返回是否真的发生了变更。
func (r *AlertRepo) EscalateCAS(ctx context.Context, alertID int64, level model.AlertLevel) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("id = ?", alertID).
		Where("status IN ?", nonTerminal).
		Update("level", level)
	return res.RowsAffected > 0, res.Error
}

// MarkSentCAS Pending -> Sent，已不处于 Pending 时为 no-op
func (r *AlertRepo) MarkSentCAS(ctx context.Context, alertID int64) error {
	return r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("id = ?", alertID).
		Where("status = ?", model.AlertStatusPending).
		Update("status", model.AlertStatusSent).Error
}

// AcknowledgeCAS 仅从 Pending/Sent 进入 Acknowledged
func (r *AlertRepo) AcknowledgeCAS(ctx context.Context, alertID int64, by int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("id = ?", alertID).
		Where("status IN ?", []string{string(model.AlertStatusPending), string(model.AlertStatusSent)}).
		Updates(map[string]interface{}{
			"status":          model.AlertStatusAcknowledged,
			"acknowledged_at": at,
			"acknowledged_by": by,
		})
	return res.RowsAffected > 0, res.Error
}

// ResolveCAS 任意非终态 -> Resolved；已终态时 RowsAffected 为 0，
// resolved_at 不会被二次写入。终态化的同时清空 dup_key。
func (r *AlertRepo) ResolveCAS(ctx context.Context, alertID int64, by *int64, resolution model.AlertResolution, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("id = ?", alertID).
		Where("status IN ?", nonTerminal).
		Updates(map[string]interface{}{
			"status":      model.AlertStatusResolved,
			"resolved_at": at,
			"resolved_by": by,
			"resolution":  resolution,
			"dup_key":     nil,
		})
	return res.RowsAffected > 0, res.Error
}

// CancelCAS 管理操作：任意非终态 -> Cancelled，同样只生效一次
func (r *AlertRepo) CancelCAS(ctx context.Context, alertID int64, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("id = ?", alertID).
		Where("status IN ?", nonTerminal).
		Updates(map[string]interface{}{
			"status":      model.AlertStatusCancelled,
			"resolved_at": at,
			"dup_key":     nil,
		})
	return res.RowsAffected > 0, res.Error
}

// ResolveAllForChecker 把该被守护人所有非终态警报解除为 checked_in，
// 已终态的一条都不会被碰到。返回解除的条数。
func (r *AlertRepo) ResolveAllForChecker(ctx context.Context, checkerID int64, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.AlertEvent{}).
		Where("checker_id = ?", checkerID).
		Where("status IN ?", nonTerminal).
		Updates(map[string]interface{}{
			"status":      model.AlertStatusResolved,
			"resolved_at": at,
			"resolution":  model.AlertResolutionCheckedIn,
			"dup_key":     nil,
		})
	return res.RowsAffected, res.Error
}

// UnionNotified 把 ids 并入已通知集合。调用方（扫描器）此时持有该
// 被守护人的 redis 锁，这里的读改写不会与另一次扫描交错。
func (r *AlertRepo) UnionNotified(ctx context.Context, alertID int64, ids []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var alert model.AlertEvent
		if err := tx.Where("id = ?", alertID).First(&alert).Error; err != nil {
			return err
		}

		merged := alert.NotifiedSupporterIDs.Union(ids...)
		return tx.Model(&model.AlertEvent{}).
			Where("id = ?", alertID).
			Update("notified_supporter_ids", merged).Error
	})
}
