package correlation

import (
	"errors"
	"testing"
	"time"

	alertModel "neoalert/internal/model/alert"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestThresholdCondition 每个满足比较的事件独立成组
func TestThresholdCondition(t *testing.T) {
	eval, err := ThresholdCondition{Field: "cpu_usage", Operator: ">", Threshold: 80}.Compile()
	require.NoError(t, err)

	events := []*alertModel.Event{
		newTestEvent("e1", 0, "cpu_usage", 85),
		newTestEvent("e2", time.Minute, "cpu_usage", 70),
		newTestEvent("e3", 2*time.Minute, "cpu_usage", 95),
		newTestEvent("e4", 3*time.Minute, "mem_usage", 99), // 指标不匹配，不参与
	}

	triggered, groups := eval(events)
	assert.True(t, triggered)
	require.Len(t, groups, 2)
	assert.Equal(t, TriggeredGroup{"e1"}, groups[0])
	assert.Equal(t, TriggeredGroup{"e3"}, groups[1])
}

// TestThresholdConditionNotTriggered 未触发时分组为空
func TestThresholdConditionNotTriggered(t *testing.T) {
	eval, err := ThresholdCondition{Field: "cpu_usage", Operator: ">", Threshold: 80}.Compile()
	require.NoError(t, err)

	triggered, groups := eval([]*alertModel.Event{
		newTestEvent("e1", 0, "cpu_usage", 50),
	})
	assert.False(t, triggered)
	assert.Empty(t, groups)

	// 触发与分组非空互为充要
	triggered, groups = eval(nil)
	assert.False(t, triggered)
	assert.Empty(t, groups)
}

// TestSustainedCondition 连续游程达到阈值时整个游程作为一组
// 值序列 [85,90,70,95,96,97] N=3 >=80: 85,90 被 70 打断不触发，后三个为一组
func TestSustainedCondition(t *testing.T) {
	eval, err := SustainedCondition{Field: "cpu_usage", Operator: ">=", Threshold: 80, RequiredConsecutive: 3}.Compile()
	require.NoError(t, err)

	values := []float64{85, 90, 70, 95, 96, 97}
	ids := []string{"e1", "e2", "e3", "e4", "e5", "e6"}
	events := make([]*alertModel.Event, 0, len(values))
	for i, v := range values {
		events = append(events, newTestEvent(ids[i], time.Duration(i)*time.Minute, "cpu_usage", v))
	}

	triggered, groups := eval(events)
	assert.True(t, triggered)
	require.Len(t, groups, 1)
	assert.Equal(t, TriggeredGroup{"e4", "e5", "e6"}, groups[0])
}

// TestSustainedConditionShortBatch 样本数不足直接不触发
func TestSustainedConditionShortBatch(t *testing.T) {
	eval, err := SustainedCondition{Field: "cpu_usage", Operator: ">=", Threshold: 80, RequiredConsecutive: 3}.Compile()
	require.NoError(t, err)

	triggered, groups := eval([]*alertModel.Event{
		newTestEvent("e1", 0, "cpu_usage", 90),
		newTestEvent("e2", time.Minute, "cpu_usage", 91),
	})
	assert.False(t, triggered)
	assert.Empty(t, groups)
}

// TestSustainedConditionMultipleRuns 多个独立游程各自成组
func TestSustainedConditionMultipleRuns(t *testing.T) {
	eval, err := SustainedCondition{Field: "cpu_usage", Operator: ">", Threshold: 80, RequiredConsecutive: 2}.Compile()
	require.NoError(t, err)

	values := []float64{85, 86, 10, 90, 91, 10}
	events := make([]*alertModel.Event, 0, len(values))
	for i, v := range values {
		events = append(events, newTestEvent(
			string(rune('a'+i)), time.Duration(i)*time.Minute, "cpu_usage", v))
	}

	triggered, groups := eval(events)
	assert.True(t, triggered)
	require.Len(t, groups, 2)
	assert.Equal(t, TriggeredGroup{"a", "b"}, groups[0])
	assert.Equal(t, TriggeredGroup{"d", "e"}, groups[1])
}

// TestTrendConditionPercentage 百分比趋势
// 值 [10,10,15] 基线窗口2: 基线=10 当前=15 变化=50%，阈值 20 触发
func TestTrendConditionPercentage(t *testing.T) {
	eval, err := TrendCondition{
		Field: "qps", Operator: ">", Threshold: 20,
		BaselineWindow: 2, Method: alertModel.TrendMethodPercentage,
	}.Compile()
	require.NoError(t, err)

	events := []*alertModel.Event{
		newTestEvent("e1", 0, "qps", 10),
		newTestEvent("e2", time.Minute, "qps", 10),
		newTestEvent("e3", 2*time.Minute, "qps", 15),
	}

	triggered, groups := eval(events)
	assert.True(t, triggered)
	require.Len(t, groups, 1)
	assert.Equal(t, TriggeredGroup{"e3"}, groups[0])
}

// TestTrendConditionInsufficientSamples 样本数需大于基线窗口
func TestTrendConditionInsufficientSamples(t *testing.T) {
	eval, err := TrendCondition{
		Field: "qps", Operator: ">", Threshold: 20,
		BaselineWindow: 2, Method: alertModel.TrendMethodPercentage,
	}.Compile()
	require.NoError(t, err)

	triggered, groups := eval([]*alertModel.Event{
		newTestEvent("e1", 0, "qps", 10),
		newTestEvent("e2", time.Minute, "qps", 100),
	})
	assert.False(t, triggered)
	assert.Empty(t, groups)
}

// TestTrendConditionZeroBaseline 基线为 0 时百分比变化记 0
func TestTrendConditionZeroBaseline(t *testing.T) {
	eval, err := TrendCondition{
		Field: "qps", Operator: ">", Threshold: 20,
		BaselineWindow: 2, Method: alertModel.TrendMethodPercentage,
	}.Compile()
	require.NoError(t, err)

	triggered, _ := eval([]*alertModel.Event{
		newTestEvent("e1", 0, "qps", 0),
		newTestEvent("e2", time.Minute, "qps", 0),
		newTestEvent("e3", 2*time.Minute, "qps", 100),
	})
	assert.False(t, triggered)
}

// TestTrendConditionAbsolute 绝对变化量
func TestTrendConditionAbsolute(t *testing.T) {
	eval, err := TrendCondition{
		Field: "qps", Operator: ">=", Threshold: 5,
		BaselineWindow: 2, Method: alertModel.TrendMethodAbsolute,
	}.Compile()
	require.NoError(t, err)

	triggered, groups := eval([]*alertModel.Event{
		newTestEvent("e1", 0, "qps", 10),
		newTestEvent("e2", time.Minute, "qps", 10),
		newTestEvent("e3", 2*time.Minute, "qps", 15),
	})
	assert.True(t, triggered)
	require.Len(t, groups, 1)
	assert.Equal(t, TriggeredGroup{"e3"}, groups[0])
}

// TestPrevStateCondition 过滤序列的倒数第二个元素等于目标值时触发
// 注意该条件比较的是过滤后序列的前一个元素，不是原始时间线的前一个事件，
// 本用例钉住该既有语义
func TestPrevStateCondition(t *testing.T) {
	eval, err := PrevStateCondition{
		GroupBy:     []string{"resource_id"},
		StatusField: "status",
		TargetValue: "firing",
	}.Compile()
	require.NoError(t, err)

	// 原始时间线: firing -> ok -> firing
	// 过滤后序列: [e1, e3]，e3 的前一个过滤元素 e1 为 firing，触发
	e1 := newTestEvent("e1", 0, "pipeline", 0)
	e1.Status = "firing"
	e2 := newTestEvent("e2", time.Minute, "pipeline", 0)
	e2.Status = "ok"
	e3 := newTestEvent("e3", 2*time.Minute, "pipeline", 0)
	e3.Status = "firing"

	triggered, groups := eval([]*alertModel.Event{e1, e2, e3})
	assert.True(t, triggered)
	require.Len(t, groups, 1)
	assert.Equal(t, TriggeredGroup{"e3"}, groups[0])
}

// TestPrevStateConditionTooFewEvents 批次不足两个事件直接不触发
func TestPrevStateConditionTooFewEvents(t *testing.T) {
	eval, err := PrevStateCondition{
		GroupBy:     []string{"resource_id"},
		StatusField: "status",
		TargetValue: "firing",
	}.Compile()
	require.NoError(t, err)

	e1 := newTestEvent("e1", 0, "pipeline", 0)
	e1.Status = "firing"

	triggered, groups := eval([]*alertModel.Event{e1})
	assert.False(t, triggered)
	assert.Empty(t, groups)
}

// TestPrevStateConditionGroupTooSmall 过滤后组内不足两个元素不触发
func TestPrevStateConditionGroupTooSmall(t *testing.T) {
	eval, err := PrevStateCondition{
		GroupBy:     []string{"resource_id"},
		StatusField: "status",
		TargetValue: "firing",
	}.Compile()
	require.NoError(t, err)

	e1 := newTestEvent("e1", 0, "pipeline", 0)
	e1.Status = "ok"
	e2 := newTestEvent("e2", time.Minute, "pipeline", 0)
	e2.Status = "firing"

	triggered, groups := eval([]*alertModel.Event{e1, e2})
	assert.False(t, triggered)
	assert.Empty(t, groups)
}

// TestConditionCompileRejects 非法配置在编译期拒绝
func TestConditionCompileRejects(t *testing.T) {
	tests := []struct {
		name string
		spec ConditionSpec
	}{
		{"阈值缺少field", ThresholdCondition{Operator: ">", Threshold: 80}},
		{"未知操作符", ThresholdCondition{Field: "cpu_usage", Operator: "~=", Threshold: 80}},
		{"持续次数非正", SustainedCondition{Field: "cpu_usage", Operator: ">", Threshold: 80, RequiredConsecutive: 0}},
		{"基线窗口非正", TrendCondition{Field: "qps", Operator: ">", Threshold: 20, BaselineWindow: 0}},
		{"未知趋势方式", TrendCondition{Field: "qps", Operator: ">", Threshold: 20, BaselineWindow: 2, Method: "median"}},
		{"前置状态缺少字段", PrevStateCondition{GroupBy: []string{"resource_id"}}},
		{"前置状态缺少分组", PrevStateCondition{StatusField: "status", TargetValue: "firing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.spec.Compile()
			assert.True(t, errors.Is(err, ErrInvalidRuleConfig), "期望 ErrInvalidRuleConfig, 实际: %v", err)
		})
	}
}

// TestParseConditionSpec 从规则模型解析条件配置
func TestParseConditionSpec(t *testing.T) {
	rule := thresholdRule(t, "r1", "cpu_usage", ">", 80)
	spec, err := ParseConditionSpec(rule)
	require.NoError(t, err)
	assert.Equal(t, alertModel.ConditionTypeThreshold, spec.Type())

	rule.ConditionType = alertModel.ConditionType("fancy")
	_, err = ParseConditionSpec(rule)
	assert.True(t, errors.Is(err, ErrInvalidRuleConfig))

	rule.ConditionType = alertModel.ConditionTypeThreshold
	rule.ConditionConfig = "{not json"
	_, err = ParseConditionSpec(rule)
	assert.True(t, errors.Is(err, ErrInvalidRuleConfig))
}
