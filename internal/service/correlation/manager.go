/*
 * 服务:告警规则管理器
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 规则注册表，持有唯一规则引擎实例，任何变更整体重建引擎并失效外部缓存
 * @func:
 * 1.Reload 重载全部规则(缓存优先，未命中回源并回填)
 * 2.AddRule/UpdateRule/RemoveRule 规则变更
 * 3.ExecuteRules 以当前引擎执行事件批次
 * 4.RuleStatistics 规则统计
 * 5.ValidateRuleConfig 纯校验，不改变状态
 */
package correlation

import (
	"context"
	"fmt"
	"sync"
	"time"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// defaultEngineWindow 引擎事件处理窗口的缺省值
const defaultEngineWindow = 10 * time.Minute

// RuleStatistics 规则统计信息
type RuleStatistics struct {
	Total      int                              `json:"total"`
	Active     int                              `json:"active"`
	Inactive   int                              `json:"inactive"`
	ByType     map[alertModel.ConditionType]int `json:"by_type"`
	BySeverity map[alertModel.EventLevel]int    `json:"by_severity"`
}

// RuleManager 告警规则管理器
// 显式构造、依赖注入，不提供包级单例；并发测试需要相互独立的实例
type RuleManager struct {
	mu           sync.RWMutex
	rules        map[string]*alertModel.AlertRule
	engine       *RuleEngine
	engineWindow time.Duration

	store RuleStore
	cache RuleCache
}

// NewRuleManager 创建规则管理器
// cache 允许为空，为空时规则变更不做外部缓存失效
func NewRuleManager(store RuleStore, cache RuleCache, engineWindow time.Duration) *RuleManager {
	if engineWindow <= 0 {
		engineWindow = defaultEngineWindow
	}
	return &RuleManager{
		rules:        make(map[string]*alertModel.AlertRule),
		engine:       NewRuleEngine(engineWindow),
		engineWindow: engineWindow,
		store:        store,
		cache:        cache,
	}
}

// rebuildEngine 整体重建引擎，编译失败的规则被剔除并告警
// 调用方需持有写锁
func (m *RuleManager) rebuildEngine() {
	engine := NewRuleEngine(m.engineWindow)
	for _, rule := range m.rules {
		if !rule.IsActive {
			continue
		}
		if err := engine.AddRule(rule); err != nil {
			logger.WithFields(logrus.Fields{
				"type":      logger.ErrorLog,
				"rule_name": rule.Name,
				"error":     err.Error(),
			}).Error("规则编译失败，已从引擎中剔除")
		}
	}
	m.engine = engine
}

// invalidateCache 失效外部规则缓存，失败只记日志
func (m *RuleManager) invalidateCache(ctx context.Context) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx); err != nil {
		logger.WithFields(logrus.Fields{
			"type":  logger.ErrorLog,
			"error": err.Error(),
		}).Error("规则缓存失效失败")
	}
}

// loadRules 旁路缓存读规则列表
// 缓存命中直接返回，读取失败或未命中回源规则存储并回填，回填失败只记日志
func (m *RuleManager) loadRules(ctx context.Context) ([]*alertModel.AlertRule, bool, error) {
	if m.cache != nil {
		cached, err := m.cache.GetRules(ctx)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"type":  logger.ErrorLog,
				"error": err.Error(),
			}).Error("规则缓存读取失败，回源规则存储")
		} else if cached != nil {
			return cached, true, nil
		}
	}

	rules, err := m.store.LoadAll(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("加载规则失败: %w", err)
	}

	if m.cache != nil {
		if err := m.cache.SetRules(ctx, rules); err != nil {
			logger.WithFields(logrus.Fields{
				"type":  logger.ErrorLog,
				"error": err.Error(),
			}).Error("规则缓存回填失败")
		}
	}
	return rules, false, nil
}

// Reload 重载全部规则并重建引擎
// 缓存命中以缓存为准，未命中回源规则存储并回填缓存
func (m *RuleManager) Reload(ctx context.Context) error {
	rules, fromCache, err := m.loadRules(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.rules = make(map[string]*alertModel.AlertRule, len(rules))
	for _, rule := range rules {
		m.rules[rule.Name] = rule
	}
	m.rebuildEngine()
	engineRules := m.engine.RuleCount()
	m.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"type":         logger.SystemLog,
		"total_rules":  len(rules),
		"engine_rules": engineRules,
		"from_cache":   fromCache,
	}).Info("规则重载完成")
	return nil
}

// ValidateRuleConfig 纯校验规则配置，不改变管理器状态
func (m *RuleManager) ValidateRuleConfig(rule *alertModel.AlertRule) error {
	spec, err := ParseConditionSpec(rule)
	if err != nil {
		return err
	}
	if _, err := spec.Compile(); err != nil {
		return err
	}
	cfg, err := WindowConfigFromRule(rule)
	if err != nil {
		return err
	}
	// 小时对齐的固定窗口不足 1 小时在调度器中永不到达执行边界
	if rule.WindowType == alertModel.WindowTypeFixed &&
		rule.Alignment == alertModel.AlignmentHour && cfg.Size < time.Hour {
		return fmt.Errorf("%w: 小时对齐的固定窗口大小不能小于 1h", ErrInvalidRuleConfig)
	}
	if rule.CloseTime != "" && rule.HasCloseTime() {
		if _, err := ParseDuration(rule.CloseTime); err != nil {
			return err
		}
	}
	return nil
}

// AddRule 注册新规则并重建引擎
// 配置非法返回 ErrInvalidRuleConfig，注册表不变
func (m *RuleManager) AddRule(ctx context.Context, rule *alertModel.AlertRule) error {
	if err := m.ValidateRuleConfig(rule); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.rules[rule.Name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: 规则 %s 已存在", ErrInvalidRuleConfig, rule.Name)
	}
	m.rules[rule.Name] = rule
	m.rebuildEngine()
	m.mu.Unlock()

	m.invalidateCache(ctx)
	return nil
}

// UpdateRule 更新既有规则并重建引擎
func (m *RuleManager) UpdateRule(ctx context.Context, rule *alertModel.AlertRule) error {
	if err := m.ValidateRuleConfig(rule); err != nil {
		return err
	}

	m.mu.Lock()
	if _, exists := m.rules[rule.Name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("规则 %s 不存在", rule.Name)
	}
	m.rules[rule.Name] = rule
	m.rebuildEngine()
	m.mu.Unlock()

	m.invalidateCache(ctx)
	return nil
}

// RemoveRule 移除规则并重建引擎
func (m *RuleManager) RemoveRule(ctx context.Context, name string) error {
	m.mu.Lock()
	if _, exists := m.rules[name]; !exists {
		m.mu.Unlock()
		return fmt.Errorf("规则 %s 不存在", name)
	}
	delete(m.rules, name)
	m.rebuildEngine()
	m.mu.Unlock()

	m.invalidateCache(ctx)
	return nil
}

// RuleByName 按名取规则
func (m *RuleManager) RuleByName(name string) (*alertModel.AlertRule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rule, ok := m.rules[name]
	return rule, ok
}

// ActiveRules 返回全部启用规则
func (m *RuleManager) ActiveRules() []*alertModel.AlertRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	active := make([]*alertModel.AlertRule, 0, len(m.rules))
	for _, rule := range m.rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	return active
}

// AllRules 返回全部规则（含停用）
func (m *RuleManager) AllRules() []*alertModel.AlertRule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*alertModel.AlertRule, 0, len(m.rules))
	for _, rule := range m.rules {
		all = append(all, rule)
	}
	return all
}

// ExecuteRules 以当前引擎执行事件批次
func (m *RuleManager) ExecuteRules(events []*alertModel.Event) map[string]*RuleResult {
	m.mu.RLock()
	engine := m.engine
	m.mu.RUnlock()
	return engine.Process(events)
}

// RuleStatistics 按启用状态/条件类型/严重等级统计规则
func (m *RuleManager) RuleStatistics() RuleStatistics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := RuleStatistics{
		ByType:     make(map[alertModel.ConditionType]int),
		BySeverity: make(map[alertModel.EventLevel]int),
	}
	for _, rule := range m.rules {
		stats.Total++
		if rule.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
		stats.ByType[rule.ConditionType]++
		stats.BySeverity[rule.Severity]++
	}
	return stats
}
