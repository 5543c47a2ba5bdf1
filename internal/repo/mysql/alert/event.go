/*
 * 仓库层:告警事件数据访问
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警事件数据交互层(MySQL存储)
 * @func:
 * 1.QueryRange 按接收时间区间查询事件
 * 2.BulkInsert 批量写入事件
 */
package alert

import (
	"context"
	"fmt"
	"time"

	alertModel "neoalert/internal/model/alert"

	"gorm.io/gorm"
)

// EventRepository 告警事件存储库
type EventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建告警事件存储库实例
func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// QueryRange 查询接收时间落在 [start, end) 内的事件，按接收时间升序
func (r *EventRepository) QueryRange(ctx context.Context, start, end time.Time) ([]*alertModel.Event, error) {
	var events []*alertModel.Event
	err := r.db.WithContext(ctx).
		Where("received_at >= ? AND received_at < ?", start, end).
		Order("received_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// BulkInsert 批量写入事件
func (r *EventRepository) BulkInsert(ctx context.Context, events []*alertModel.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(events, 100).Error; err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	return nil
}
