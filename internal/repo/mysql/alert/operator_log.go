/*
 * 仓库层:操作审计日志数据访问
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 操作审计日志数据交互层(MySQL存储)，只追加不修改
 * @func:
 * 1.BulkAppend 批量追加审计日志
 */
package alert

import (
	"context"
	"fmt"

	alertModel "neoalert/internal/model/alert"

	"gorm.io/gorm"
)

// OperatorLogRepository 操作审计日志存储库
type OperatorLogRepository struct {
	db *gorm.DB
}

// NewOperatorLogRepository 创建操作审计日志存储库实例
func NewOperatorLogRepository(db *gorm.DB) *OperatorLogRepository {
	return &OperatorLogRepository{db: db}
}

// BulkAppend 批量追加审计日志
func (r *OperatorLogRepository) BulkAppend(ctx context.Context, entries []*alertModel.OperatorLog) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(entries, 100).Error; err != nil {
		return fmt.Errorf("failed to append operator logs: %w", err)
	}
	return nil
}
