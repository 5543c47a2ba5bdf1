/*
 * 模型:告警规则模型
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警规则定义，条件与窗口参数以列存储，由聚合核心编译后执行
 */
package alert

import (
	"encoding/json"
	"fmt"

	"neoalert/internal/model/basemodel"

	"gorm.io/gorm"
)

// AlertRule 告警规则表
// 条件参数以 JSON 列存储，加载时由规则引擎编译校验，非法配置在编译期拒绝
type AlertRule struct {
	basemodel.BaseModel

	Name            string        `json:"name" gorm:"size:100;uniqueIndex;not null;comment:规则唯一名"`
	Description     string        `json:"description" gorm:"type:text;comment:规则描述"`
	ConditionType   ConditionType `json:"condition_type" gorm:"size:50;not null;comment:条件类型"`
	ConditionConfig string        `json:"condition_config" gorm:"type:json;comment:条件参数(JSON)"`
	Severity        EventLevel    `json:"severity" gorm:"size:20;default:'warning';comment:告警严重等级"`
	IsActive        bool          `json:"is_active" gorm:"default:true;index;comment:启用状态"`
	TitleTemplate   string        `json:"title_template" gorm:"size:500;comment:标题模板,空则使用默认模板"`
	ContentTemplate string        `json:"content_template" gorm:"type:text;comment:内容模板,空则使用默认模板"`

	// 窗口参数
	WindowType       WindowType      `json:"window_type" gorm:"size:20;default:'sliding';comment:窗口类型"`
	WindowSize       string          `json:"window_size" gorm:"size:20;default:'10min';comment:窗口大小"`
	Alignment        WindowAlignment `json:"alignment" gorm:"size:20;default:'minute';comment:固定窗口对齐单位"`
	SessionTimeout   string          `json:"session_timeout" gorm:"size:20;default:'5min';comment:会话超时间隔"`
	SessionKeyFields string          `json:"session_key_fields" gorm:"type:json;comment:会话分组字段(JSON数组),空则按实例指纹"`

	// 自动关闭间隔，空或 0min 表示永不自动关闭
	CloseTime string `json:"close_time" gorm:"size:20;comment:自动关闭间隔"`

	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index;comment:软删除时间"`
}

// TableName 定义数据库表名
func (AlertRule) TableName() string {
	return "alert_rules"
}

// SessionKeys 解析会话分组字段列表，未配置返回空切片
func (r *AlertRule) SessionKeys() ([]string, error) {
	if r.SessionKeyFields == "" {
		return nil, nil
	}
	var fields []string
	if err := json.Unmarshal([]byte(r.SessionKeyFields), &fields); err != nil {
		return nil, fmt.Errorf("解析会话分组字段失败: %w", err)
	}
	return fields, nil
}

// HasCloseTime 规则是否配置了有效的自动关闭间隔
func (r *AlertRule) HasCloseTime() bool {
	return r.CloseTime != "" && r.CloseTime != "0min" && r.CloseTime != "0"
}
