/*
 * 仓库层:告警规则数据访问
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警规则数据交互层(MySQL存储)
 * @func:
 * 1.LoadAll 加载全部规则
 * 2.Create/Update/DeleteByName 规则变更
 */
package alert

import (
	"context"
	"errors"
	"fmt"

	alertModel "neoalert/internal/model/alert"

	"gorm.io/gorm"
)

// RuleRepository 告警规则存储库
type RuleRepository struct {
	db *gorm.DB
}

// NewRuleRepository 创建告警规则存储库实例
func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// LoadAll 加载全部规则（含停用）
func (r *RuleRepository) LoadAll(ctx context.Context) ([]*alertModel.AlertRule, error) {
	var rules []*alertModel.AlertRule
	if err := r.db.WithContext(ctx).Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	return rules, nil
}

// FindByName 按规则名查询，不存在返回 nil
func (r *RuleRepository) FindByName(ctx context.Context, name string) (*alertModel.AlertRule, error) {
	var rule alertModel.AlertRule
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find rule %s: %w", name, err)
	}
	return &rule, nil
}

// Create 创建规则
func (r *RuleRepository) Create(ctx context.Context, rule *alertModel.AlertRule) error {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create rule %s: %w", rule.Name, err)
	}
	return nil
}

// Update 按规则名更新规则
func (r *RuleRepository) Update(ctx context.Context, rule *alertModel.AlertRule) error {
	result := r.db.WithContext(ctx).
		Model(&alertModel.AlertRule{}).
		Where("name = ?", rule.Name).
		Updates(rule)
	if result.Error != nil {
		return fmt.Errorf("failed to update rule %s: %w", rule.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule %s not found", rule.Name)
	}
	return nil
}

// DeleteByName 按规则名删除规则(软删除)
func (r *RuleRepository) DeleteByName(ctx context.Context, name string) error {
	result := r.db.WithContext(ctx).Where("name = ?", name).Delete(&alertModel.AlertRule{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete rule %s: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("rule %s not found", name)
	}
	return nil
}
