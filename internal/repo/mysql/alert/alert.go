/*
 * 仓库层:告警数据访问
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警数据交互层(MySQL存储)，状态流转使用行锁保证并发安全
 * @func:
 * 1.BulkCreate 批量创建告警(含事件关联)
 * 2.QueryActivatable 查询可流转状态的告警
 * 3.LockAndTransition 行锁加锁后的条件状态流转
 */
package alert

import (
	"context"
	"errors"
	"fmt"

	alertModel "neoalert/internal/model/alert"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertRepository 告警存储库
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository 创建告警存储库实例
func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// BulkCreate 批量创建告警
// 事件关联关系随告警一起在同一事务内写入
func (r *AlertRepository) BulkCreate(ctx context.Context, alerts []*alertModel.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, a := range alerts {
			// 关联的事件已经存在，只写关联关系不重复建事件
			if err := tx.Omit("Events.*").Create(a).Error; err != nil {
				return fmt.Errorf("failed to create alert %s: %w", a.AlertID, err)
			}
		}
		return nil
	})
}

// QueryActivatable 查询处于可流转状态的告警
func (r *AlertRepository) QueryActivatable(ctx context.Context) ([]*alertModel.Alert, error) {
	var alerts []*alertModel.Alert
	err := r.db.WithContext(ctx).
		Where("status IN ?", alertModel.ActivatableStatuses).
		Order("last_event_time ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query activatable alerts: %w", err)
	}
	return alerts, nil
}

// QueryByAlertID 按告警ID查询
func (r *AlertRepository) QueryByAlertID(ctx context.Context, alertID string) (*alertModel.Alert, error) {
	var a alertModel.Alert
	err := r.db.WithContext(ctx).
		Preload("Events").
		Where("alert_id = ?", alertID).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query alert %s: %w", alertID, err)
	}
	return &a, nil
}

// LockAndTransition 行锁加锁后的条件状态流转
// 在事务内以 FOR UPDATE 锁定目标行后复核状态，
// 状态仍在期望集合内才流转，返回是否发生了流转
func (r *AlertRepository) LockAndTransition(ctx context.Context, alertID string, expected []alertModel.AlertStatus, target alertModel.AlertStatus) (bool, error) {
	transitioned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a alertModel.Alert
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("alert_id = ?", alertID).
			First(&a).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return fmt.Errorf("failed to lock alert %s: %w", alertID, err)
		}

		// 加锁后复核状态，并发流转的后到者在这里放弃
		matched := false
		for _, st := range expected {
			if a.Status == st {
				matched = true
				break
			}
		}
		if !matched {
			return nil
		}

		if err := tx.Model(&a).Update("status", target).Error; err != nil {
			return fmt.Errorf("failed to transition alert %s: %w", alertID, err)
		}
		transitioned = true
		return nil
	})
	return transitioned, err
}
