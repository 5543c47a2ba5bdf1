/*
 * 服务:规则条件求值器
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 封闭的条件类型集合，编译期校验配置，求值为纯函数
 * @func:
 * 1.ThresholdCondition 阈值条件
 * 2.SustainedCondition 持续条件
 * 3.TrendCondition 趋势条件
 * 4.PrevStateCondition 前置状态条件
 */
package correlation

import (
	"encoding/json"
	"fmt"
	"sort"

	alertModel "neoalert/internal/model/alert"
)

// TriggeredGroup 一次规则触发产出的事件ID序列，非空
type TriggeredGroup []string

// Evaluator 条件求值函数
// 输入为已按规则时间窗口过滤的事件批次，输出触发标记与事件分组
type Evaluator func(events []*alertModel.Event) (bool, []TriggeredGroup)

// ConditionSpec 条件配置的封闭变体集合
// 每个变体只携带自己需要的字段，非法配置在 Compile 阶段拒绝
type ConditionSpec interface {
	Type() alertModel.ConditionType
	Compile() (Evaluator, error)
}

// compileOperator 编译比较操作符，未知操作符返回 ErrInvalidRuleConfig
func compileOperator(op string) (func(a, b float64) bool, error) {
	switch op {
	case ">":
		return func(a, b float64) bool { return a > b }, nil
	case ">=":
		return func(a, b float64) bool { return a >= b }, nil
	case "<":
		return func(a, b float64) bool { return a < b }, nil
	case "<=":
		return func(a, b float64) bool { return a <= b }, nil
	case "==":
		return func(a, b float64) bool { return a == b }, nil
	case "!=":
		return func(a, b float64) bool { return a != b }, nil
	}
	return nil, fmt.Errorf("%w: 未知操作符 %q", ErrInvalidRuleConfig, op)
}

// filterByItem 取指标名匹配的事件，保持输入顺序
func filterByItem(events []*alertModel.Event, item string) []*alertModel.Event {
	filtered := make([]*alertModel.Event, 0, len(events))
	for _, ev := range events {
		if ev.Item == item {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

// sortByReceivedAt 按接收时间升序排序（不修改入参）
func sortByReceivedAt(events []*alertModel.Event) []*alertModel.Event {
	sorted := make([]*alertModel.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
	})
	return sorted
}

// ThresholdCondition 阈值条件
// 每个满足比较的事件独立成组，互不影响
type ThresholdCondition struct {
	Field     string  `json:"field"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
}

// Type 实现ConditionSpec接口
func (c ThresholdCondition) Type() alertModel.ConditionType {
	return alertModel.ConditionTypeThreshold
}

// Compile 实现ConditionSpec接口
func (c ThresholdCondition) Compile() (Evaluator, error) {
	if c.Field == "" {
		return nil, fmt.Errorf("%w: 阈值条件缺少 field", ErrInvalidRuleConfig)
	}
	op, err := compileOperator(c.Operator)
	if err != nil {
		return nil, err
	}

	return func(events []*alertModel.Event) (bool, []TriggeredGroup) {
		var groups []TriggeredGroup
		for _, ev := range filterByItem(events, c.Field) {
			if op(ev.Value, c.Threshold) {
				groups = append(groups, TriggeredGroup{ev.EventID})
			}
		}
		return len(groups) > 0, groups
	}, nil
}

// SustainedCondition 持续条件
// 按到达顺序扫描，连续满足比较的最大游程长度达到阈值时整个游程作为一组触发
type SustainedCondition struct {
	Field               string  `json:"field"`
	Operator            string  `json:"operator"`
	Threshold           float64 `json:"threshold"`
	RequiredConsecutive int     `json:"required_consecutive"`
}

// Type 实现ConditionSpec接口
func (c SustainedCondition) Type() alertModel.ConditionType {
	return alertModel.ConditionTypeSustained
}

// Compile 实现ConditionSpec接口
func (c SustainedCondition) Compile() (Evaluator, error) {
	if c.Field == "" {
		return nil, fmt.Errorf("%w: 持续条件缺少 field", ErrInvalidRuleConfig)
	}
	if c.RequiredConsecutive <= 0 {
		return nil, fmt.Errorf("%w: required_consecutive 必须为正", ErrInvalidRuleConfig)
	}
	op, err := compileOperator(c.Operator)
	if err != nil {
		return nil, err
	}

	return func(events []*alertModel.Event) (bool, []TriggeredGroup) {
		filtered := sortByReceivedAt(filterByItem(events, c.Field))
		if len(filtered) < c.RequiredConsecutive {
			return false, nil
		}

		var groups []TriggeredGroup
		var run TriggeredGroup
		for _, ev := range filtered {
			if op(ev.Value, c.Threshold) {
				run = append(run, ev.EventID)
				continue
			}
			// 游程被打断，校验已累计的游程长度
			if len(run) >= c.RequiredConsecutive {
				groups = append(groups, run)
			}
			run = nil
		}
		if len(run) >= c.RequiredConsecutive {
			groups = append(groups, run)
		}

		return len(groups) > 0, groups
	}, nil
}

// TrendCondition 趋势条件
// 基线为最新样本之前 baseline_window 个样本的均值，变化量与阈值比较，
// 触发时仅最新事件独立成组
type TrendCondition struct {
	Field          string                 `json:"field"`
	Operator       string                 `json:"operator"`
	Threshold      float64                `json:"threshold"`
	BaselineWindow int                    `json:"baseline_window"`
	Method         alertModel.TrendMethod `json:"trend_method"`
}

// Type 实现ConditionSpec接口
func (c TrendCondition) Type() alertModel.ConditionType {
	return alertModel.ConditionTypeTrend
}

// Compile 实现ConditionSpec接口
func (c TrendCondition) Compile() (Evaluator, error) {
	if c.Field == "" {
		return nil, fmt.Errorf("%w: 趋势条件缺少 field", ErrInvalidRuleConfig)
	}
	if c.BaselineWindow <= 0 {
		return nil, fmt.Errorf("%w: baseline_window 必须为正", ErrInvalidRuleConfig)
	}
	method := c.Method
	if method == "" {
		method = alertModel.TrendMethodAbsolute
	}
	if method != alertModel.TrendMethodAbsolute && method != alertModel.TrendMethodPercentage {
		return nil, fmt.Errorf("%w: 未知趋势计算方式 %q", ErrInvalidRuleConfig, c.Method)
	}
	op, err := compileOperator(c.Operator)
	if err != nil {
		return nil, err
	}

	return func(events []*alertModel.Event) (bool, []TriggeredGroup) {
		filtered := sortByReceivedAt(filterByItem(events, c.Field))
		if len(filtered) <= c.BaselineWindow {
			return false, nil
		}

		// 基线取最新样本之前的 baseline_window 个样本均值，不含最新样本
		latest := filtered[len(filtered)-1]
		baselineSamples := filtered[len(filtered)-1-c.BaselineWindow : len(filtered)-1]
		var sum float64
		for _, ev := range baselineSamples {
			sum += ev.Value
		}
		baseline := sum / float64(len(baselineSamples))

		var change float64
		if method == alertModel.TrendMethodPercentage {
			if baseline != 0 {
				change = (latest.Value - baseline) / baseline * 100
			}
		} else {
			change = latest.Value - baseline
		}

		if op(change, c.Threshold) {
			return true, []TriggeredGroup{{latest.EventID}}
		}
		return false, nil
	}, nil
}

// PrevStateCondition 前置状态条件
// 对状态字段等于目标值的过滤序列，检查各分组倒数第二个元素是否仍为目标值。
// 注意比较对象是过滤后序列的前一个元素而非原始时间线的前一个事件，
// 该语义与历史行为保持一致，勿改动
type PrevStateCondition struct {
	GroupBy     []string `json:"group_by"`
	StatusField string   `json:"prev_status_field"`
	TargetValue string   `json:"prev_status_value"`
}

// Type 实现ConditionSpec接口
func (c PrevStateCondition) Type() alertModel.ConditionType {
	return alertModel.ConditionTypePrevState
}

// Compile 实现ConditionSpec接口
func (c PrevStateCondition) Compile() (Evaluator, error) {
	if c.StatusField == "" {
		return nil, fmt.Errorf("%w: 前置状态条件缺少 prev_status_field", ErrInvalidRuleConfig)
	}
	if len(c.GroupBy) == 0 {
		return nil, fmt.Errorf("%w: 前置状态条件缺少 group_by", ErrInvalidRuleConfig)
	}

	return func(events []*alertModel.Event) (bool, []TriggeredGroup) {
		if len(events) < 2 {
			return false, nil
		}

		sorted := sortByReceivedAt(events)
		filtered := make([]*alertModel.Event, 0, len(sorted))
		for _, ev := range sorted {
			if ev.Field(c.StatusField) == c.TargetValue {
				filtered = append(filtered, ev)
			}
		}

		grouped := make(map[string][]*alertModel.Event)
		var order []string
		for _, ev := range filtered {
			key := ev.GroupKey(c.GroupBy)
			if _, ok := grouped[key]; !ok {
				order = append(order, key)
			}
			grouped[key] = append(grouped[key], ev)
		}

		var groups []TriggeredGroup
		for _, key := range order {
			members := grouped[key]
			if len(members) < 2 {
				continue
			}
			if members[len(members)-2].Field(c.StatusField) == c.TargetValue {
				groups = append(groups, TriggeredGroup{members[len(members)-1].EventID})
			}
		}

		return len(groups) > 0, groups
	}, nil
}

// ParseConditionSpec 从规则模型解析条件配置
// 未知条件类型或 JSON 非法返回 ErrInvalidRuleConfig
func ParseConditionSpec(rule *alertModel.AlertRule) (ConditionSpec, error) {
	raw := []byte(rule.ConditionConfig)
	switch rule.ConditionType {
	case alertModel.ConditionTypeThreshold:
		var c ThresholdCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: 解析阈值条件失败: %v", ErrInvalidRuleConfig, err)
		}
		return c, nil
	case alertModel.ConditionTypeSustained:
		var c SustainedCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: 解析持续条件失败: %v", ErrInvalidRuleConfig, err)
		}
		return c, nil
	case alertModel.ConditionTypeTrend:
		var c TrendCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: 解析趋势条件失败: %v", ErrInvalidRuleConfig, err)
		}
		return c, nil
	case alertModel.ConditionTypePrevState:
		var c PrevStateCondition
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("%w: 解析前置状态条件失败: %v", ErrInvalidRuleConfig, err)
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: 未知条件类型 %q", ErrInvalidRuleConfig, rule.ConditionType)
}
