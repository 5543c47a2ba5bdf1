/*
 * 模型:告警域常量定义
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警状态、事件等级、条件类型、窗口类型等枚举与映射
 */
package alert

// AlertStatus 告警状态枚举
type AlertStatus string

const (
	AlertStatusUnassigned AlertStatus = "unassigned"  // 未认领
	AlertStatusPending    AlertStatus = "pending"     // 待处理
	AlertStatusProcessing AlertStatus = "processing"  // 处理中
	AlertStatusResolved   AlertStatus = "resolved"    // 已解决
	AlertStatusClosed     AlertStatus = "closed"      // 已关闭
	AlertStatusAutoClosed AlertStatus = "auto_closed" // 自动关闭
)

// String 实现Stringer接口
func (s AlertStatus) String() string {
	return string(s)
}

// ActivatableStatuses 可被自动关闭扫描处理的状态集合
// 已解决/已关闭/自动关闭的告警不再参与状态流转
var ActivatableStatuses = []AlertStatus{
	AlertStatusPending,
	AlertStatusProcessing,
	AlertStatusUnassigned,
}

// EventLevel 事件等级枚举
type EventLevel string

const (
	EventLevelWarning  EventLevel = "warning"  // 预警
	EventLevelSeverity EventLevel = "severity" // 严重
	EventLevelFatal    EventLevel = "fatal"    // 致命
	EventLevelRemain   EventLevel = "remain"   // 提醒
)

// levelRanking 等级优先级，数值越大优先级越高
var levelRanking = map[EventLevel]int{
	EventLevelFatal:    3,
	EventLevelSeverity: 2,
	EventLevelWarning:  1,
	EventLevelRemain:   0,
}

// LevelRank 返回等级优先级，未知等级按最低处理
func LevelRank(level EventLevel) int {
	return levelRanking[level]
}

// MaxLevel 返回一组等级中的最高等级，空集合返回 remain
func MaxLevel(levels []EventLevel) EventLevel {
	max := EventLevelRemain
	for _, l := range levels {
		if LevelRank(l) > LevelRank(max) {
			max = l
		}
	}
	return max
}

// ConditionType 规则条件类型枚举
type ConditionType string

const (
	ConditionTypeThreshold ConditionType = "threshold"         // 阈值条件
	ConditionTypeSustained ConditionType = "sustained"         // 持续条件
	ConditionTypeTrend     ConditionType = "trend"             // 趋势条件
	ConditionTypePrevState ConditionType = "prev_field_equals" // 前置状态条件
)

// TrendMethod 趋势计算方式
type TrendMethod string

const (
	TrendMethodAbsolute   TrendMethod = "absolute"   // 绝对变化
	TrendMethodPercentage TrendMethod = "percentage" // 百分比变化
)

// WindowType 聚合窗口类型枚举
type WindowType string

const (
	WindowTypeSliding WindowType = "sliding" // 滑动窗口
	WindowTypeFixed   WindowType = "fixed"   // 固定窗口
	WindowTypeSession WindowType = "session" // 会话窗口
)

// WindowAlignment 固定窗口对齐单位
type WindowAlignment string

const (
	AlignmentMinute WindowAlignment = "minute" // 分钟对齐
	AlignmentHour   WindowAlignment = "hour"   // 小时对齐
	AlignmentDay    WindowAlignment = "day"    // 天对齐
)

// 默认告警标题/内容模板，规则未配置模板时使用
const (
	DefaultTitleTemplate   = "【${resource_type}】${resource_name}发生${item}异常"
	DefaultContentTemplate = "资源 ${resource_name}(${resource_id}) 的指标 ${item} 当前值为 ${value}，触发告警规则"
)

// AlertIDPrefix 告警业务ID前缀
const AlertIDPrefix = "ALERT"
