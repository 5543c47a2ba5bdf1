/*
 * 模型:告警模块请求结构
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 规则管理与事件摄入接口的请求体定义
 */
package alert

import "time"

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	Name             string          `json:"name" validate:"required"`           // 规则唯一名
	Description      string          `json:"description"`                        // 规则描述
	ConditionType    ConditionType   `json:"condition_type" validate:"required"` // 条件类型
	ConditionConfig  string          `json:"condition_config"`                   // 条件参数(JSON)
	Severity         EventLevel      `json:"severity"`                           // 告警严重等级
	IsActive         *bool           `json:"is_active"`                          // 启用状态，空则默认启用
	TitleTemplate    string          `json:"title_template"`                     // 标题模板
	ContentTemplate  string          `json:"content_template"`                   // 内容模板
	WindowType       WindowType      `json:"window_type"`                        // 窗口类型
	WindowSize       string          `json:"window_size"`                        // 窗口大小
	Alignment        WindowAlignment `json:"alignment"`                          // 固定窗口对齐单位
	SessionTimeout   string          `json:"session_timeout"`                    // 会话超时间隔
	SessionKeyFields string          `json:"session_key_fields"`                 // 会话分组字段(JSON数组)
	CloseTime        string          `json:"close_time"`                         // 自动关闭间隔
}

// UpdateRuleRequest 更新规则请求
// 指针字段用于区分"未传"与"置空"
type UpdateRuleRequest struct {
	Description      *string          `json:"description"`        // 规则描述
	ConditionType    *ConditionType   `json:"condition_type"`     // 条件类型
	ConditionConfig  *string          `json:"condition_config"`   // 条件参数(JSON)
	Severity         *EventLevel      `json:"severity"`           // 告警严重等级
	IsActive         *bool            `json:"is_active"`          // 启用状态
	TitleTemplate    *string          `json:"title_template"`     // 标题模板
	ContentTemplate  *string          `json:"content_template"`   // 内容模板
	WindowType       *WindowType      `json:"window_type"`        // 窗口类型
	WindowSize       *string          `json:"window_size"`        // 窗口大小
	Alignment        *WindowAlignment `json:"alignment"`          // 固定窗口对齐单位
	SessionTimeout   *string          `json:"session_timeout"`    // 会话超时间隔
	SessionKeyFields *string          `json:"session_key_fields"` // 会话分组字段(JSON数组)
	CloseTime        *string          `json:"close_time"`         // 自动关闭间隔
}

// IngestEventRequest 单条事件摄入请求
type IngestEventRequest struct {
	EventID      string     `json:"event_id" validate:"required"` // 事件唯一标识
	ReceivedAt   *time.Time `json:"received_at"`                  // 接收时间，空则取服务端当前时间
	Item         string     `json:"item" validate:"required"`     // 指标名
	Value        float64    `json:"value"`                        // 指标数值
	Status       string     `json:"status"`                       // 事件状态
	Level        EventLevel `json:"level"`                        // 事件等级
	ResourceType string     `json:"resource_type"`                // 资源类型
	ResourceID   string     `json:"resource_id"`                  // 资源ID
	ResourceName string     `json:"resource_name"`                // 资源名称
	SourceID     string     `json:"source_id"`                    // 事件源ID
}

// IngestEventsRequest 批量事件摄入请求
type IngestEventsRequest struct {
	Events []IngestEventRequest `json:"events" validate:"required"`
}
