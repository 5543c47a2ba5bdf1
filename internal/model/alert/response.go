/*
 * 模型:告警模块响应结构
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 统一API响应与规则/事件接口的响应体定义
 */
package alert

import "time"

// APIResponse 统一API响应结构
type APIResponse struct {
	Code    int         `json:"code,omitempty"`  // 响应状态码，可选
	Status  string      `json:"status"`          // 响应状态："success" 或 "failed"
	Message string      `json:"message"`         // 响应消息
	Data    interface{} `json:"data,omitempty"`  // 响应数据，可选
	Error   string      `json:"error,omitempty"` // 错误信息，可选
}

// RuleResponse 规则详情响应
type RuleResponse struct {
	ID               uint64          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	ConditionType    ConditionType   `json:"condition_type"`
	ConditionConfig  string          `json:"condition_config"`
	Severity         EventLevel      `json:"severity"`
	IsActive         bool            `json:"is_active"`
	TitleTemplate    string          `json:"title_template"`
	ContentTemplate  string          `json:"content_template"`
	WindowType       WindowType      `json:"window_type"`
	WindowSize       string          `json:"window_size"`
	Alignment        WindowAlignment `json:"alignment"`
	SessionTimeout   string          `json:"session_timeout"`
	SessionKeyFields string          `json:"session_key_fields"`
	CloseTime        string          `json:"close_time"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewRuleResponse 由规则模型构建响应体
func NewRuleResponse(rule *AlertRule) *RuleResponse {
	return &RuleResponse{
		ID:               rule.ID,
		Name:             rule.Name,
		Description:      rule.Description,
		ConditionType:    rule.ConditionType,
		ConditionConfig:  rule.ConditionConfig,
		Severity:         rule.Severity,
		IsActive:         rule.IsActive,
		TitleTemplate:    rule.TitleTemplate,
		ContentTemplate:  rule.ContentTemplate,
		WindowType:       rule.WindowType,
		WindowSize:       rule.WindowSize,
		Alignment:        rule.Alignment,
		SessionTimeout:   rule.SessionTimeout,
		SessionKeyFields: rule.SessionKeyFields,
		CloseTime:        rule.CloseTime,
		CreatedAt:        rule.CreatedAt,
		UpdatedAt:        rule.UpdatedAt,
	}
}

// IngestResponse 事件摄入响应
type IngestResponse struct {
	Accepted int `json:"accepted"` // 本次写入的事件数
}

// SweepResponse 自动关闭扫描响应
type SweepResponse struct {
	Scanned   int `json:"scanned"`   // 扫描的可流转告警数
	Closed    int `json:"closed"`    // 成功关闭的数量
	Conflicts int `json:"conflicts"` // 并发竞争导致的无操作次数
	Skipped   int `json:"skipped"`   // 配置缺失或非法而跳过的数量
}
