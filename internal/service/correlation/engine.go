/*
 * 服务:规则引擎
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 持有编译后的规则集合，对事件批次按实例分组逐规则求值，规则间故障隔离
 * @func:
 * 1.AddRule 编译并注册规则
 * 2.Process 对事件批次执行全部启用规则
 */
package correlation

import (
	"fmt"
	"sort"
	"time"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// CompiledRule 编译后的规则，条件求值函数与规则元数据绑定
type CompiledRule struct {
	Rule     *alertModel.AlertRule
	Window   WindowConfig
	Evaluate Evaluator
}

// InstanceResult 单个实例上某条规则的触发结果
type InstanceResult struct {
	Fingerprint string
	Groups      []TriggeredGroup
}

// RuleResult 单条规则对一个事件批次的求值结果
// Err 非空表示该规则求值失败，不影响其他规则
type RuleResult struct {
	Triggered   bool
	Severity    alertModel.EventLevel
	Description string
	Instances   []InstanceResult
	Err         error
}

// AllGroups 展平全部实例的触发分组
func (r *RuleResult) AllGroups() []TriggeredGroup {
	var groups []TriggeredGroup
	for _, inst := range r.Instances {
		groups = append(groups, inst.Groups...)
	}
	return groups
}

// RuleEngine 规则引擎
// 事件批次先收敛到引擎窗口内，再按实例指纹分组逐规则求值
type RuleEngine struct {
	windowSize time.Duration
	rules      map[string]*CompiledRule
}

// NewRuleEngine 创建规则引擎，windowSize 为事件批次的处理窗口
func NewRuleEngine(windowSize time.Duration) *RuleEngine {
	return &RuleEngine{
		windowSize: windowSize,
		rules:      make(map[string]*CompiledRule),
	}
}

// AddRule 编译并注册规则
// 配置非法返回 ErrInvalidRuleConfig，规则不进入引擎，已注册规则不受影响
func (e *RuleEngine) AddRule(rule *alertModel.AlertRule) error {
	spec, err := ParseConditionSpec(rule)
	if err != nil {
		return fmt.Errorf("规则 %s 条件解析失败: %w", rule.Name, err)
	}
	evaluator, err := spec.Compile()
	if err != nil {
		return fmt.Errorf("规则 %s 条件编译失败: %w", rule.Name, err)
	}
	window, err := WindowConfigFromRule(rule)
	if err != nil {
		return fmt.Errorf("规则 %s 窗口配置非法: %w", rule.Name, err)
	}

	e.rules[rule.Name] = &CompiledRule{Rule: rule, Window: window, Evaluate: evaluator}
	return nil
}

// RuleCount 引擎内已注册规则数量
func (e *RuleEngine) RuleCount() int {
	return len(e.rules)
}

// Rules 返回已注册的编译规则
func (e *RuleEngine) Rules() map[string]*CompiledRule {
	return e.rules
}

// restrictToWindow 以批次内最大接收时间为基准向前收敛到引擎窗口
func (e *RuleEngine) restrictToWindow(events []*alertModel.Event) []*alertModel.Event {
	if len(events) == 0 || e.windowSize <= 0 {
		return events
	}
	var latest time.Time
	for _, ev := range events {
		if ev.ReceivedAt.After(latest) {
			latest = ev.ReceivedAt
		}
	}
	cutoff := latest.Add(-e.windowSize)

	within := make([]*alertModel.Event, 0, len(events))
	for _, ev := range events {
		if !ev.ReceivedAt.Before(cutoff) {
			within = append(within, ev)
		}
	}
	return within
}

// groupByInstance 按实例指纹分组并组内按时间排序
// 持续/趋势等有序条件必须在单实例序列上求值才有意义
func groupByInstance(events []*alertModel.Event) map[string][]*alertModel.Event {
	grouped := make(map[string][]*alertModel.Event)
	for _, ev := range events {
		fp := ev.Fingerprint()
		grouped[fp] = append(grouped[fp], ev)
	}
	for _, members := range grouped {
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].ReceivedAt.Before(members[j].ReceivedAt)
		})
	}
	return grouped
}

// evaluateRule 在单实例事件序列上执行一条规则，panic 转为求值错误
func evaluateRule(compiled *CompiledRule, events []*alertModel.Event) (triggered bool, groups []TriggeredGroup, err error) {
	defer func() {
		if r := recover(); r != nil {
			triggered = false
			groups = nil
			err = fmt.Errorf("规则 %s 求值异常: %v", compiled.Rule.Name, r)
		}
	}()
	triggered, groups = compiled.Evaluate(events)
	return triggered, groups, nil
}

// Process 对事件批次执行全部启用规则
// 返回 规则名 -> 求值结果，单条规则的失败被记录在结果中，不中断其他规则
func (e *RuleEngine) Process(events []*alertModel.Event) map[string]*RuleResult {
	results := make(map[string]*RuleResult)
	if len(events) == 0 {
		return results
	}

	within := e.restrictToWindow(events)
	grouped := groupByInstance(within)

	for name, compiled := range e.rules {
		if !compiled.Rule.IsActive {
			continue
		}

		result := &RuleResult{
			Severity:    compiled.Rule.Severity,
			Description: compiled.Rule.Description,
		}

		for fp, instanceEvents := range grouped {
			triggered, groups, err := evaluateRule(compiled, instanceEvents)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"type":        logger.ErrorLog,
					"rule_name":   name,
					"fingerprint": fp,
					"error":       err.Error(),
				}).Error("规则求值失败")
				result.Err = err
				continue
			}
			if triggered {
				result.Triggered = true
				result.Instances = append(result.Instances, InstanceResult{Fingerprint: fp, Groups: groups})
			}
		}

		// 排序保证结果稳定，便于测试与日志比对
		sort.Slice(result.Instances, func(i, j int) bool {
			return result.Instances[i].Fingerprint < result.Instances[j].Fingerprint
		})
		results[name] = result
	}

	return results
}
