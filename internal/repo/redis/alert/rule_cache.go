/*
 * 仓库层:规则缓存数据访问
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 规则列表的Redis旁路缓存，规则变更时整体失效
 * @func:
 * 1.GetRules/SetRules 规则列表读写
 * 2.Invalidate 整体失效
 */
package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	alertModel "neoalert/internal/model/alert"

	"github.com/go-redis/redis/v8"
)

// RuleCacheRepository 规则缓存存储库
type RuleCacheRepository struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRuleCacheRepository 创建规则缓存存储库实例
// ttl 为零时缓存永不过期，依赖变更失效
func NewRuleCacheRepository(client *redis.Client, keyPrefix string, ttl time.Duration) *RuleCacheRepository {
	if keyPrefix == "" {
		keyPrefix = "neoalert:rules"
	}
	return &RuleCacheRepository{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

// rulesKey 规则列表缓存键
func (r *RuleCacheRepository) rulesKey() string {
	return fmt.Sprintf("%s:all", r.keyPrefix)
}

// GetRules 读取缓存的规则列表，未命中返回 nil
func (r *RuleCacheRepository) GetRules(ctx context.Context) ([]*alertModel.AlertRule, error) {
	data, err := r.client.Get(ctx, r.rulesKey()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached rules: %w", err)
	}

	var rules []*alertModel.AlertRule
	if err := json.Unmarshal([]byte(data), &rules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached rules: %w", err)
	}
	return rules, nil
}

// SetRules 写入规则列表缓存
func (r *RuleCacheRepository) SetRules(ctx context.Context, rules []*alertModel.AlertRule) error {
	data, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := r.client.Set(ctx, r.rulesKey(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache rules: %w", err)
	}
	return nil
}

// Invalidate 整体失效规则缓存
func (r *RuleCacheRepository) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, r.rulesKey()).Err(); err != nil {
		return fmt.Errorf("failed to invalidate rule cache: %w", err)
	}
	return nil
}
