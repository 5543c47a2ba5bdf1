/*
 * 模型:告警聚合模型
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 规则触发后由事件组聚合出的告警记录
 */
package alert

import (
	"time"

	"neoalert/internal/model/basemodel"
)

// Alert 告警表
// 由告警处理流水线创建，状态由自动关闭扫描或外部操作人员变更，本核心不删除
type Alert struct {
	basemodel.BaseModel

	AlertID        string      `json:"alert_id" gorm:"size:64;uniqueIndex;not null;comment:告警业务ID"`
	RuleName       string      `json:"rule_name" gorm:"size:100;index;not null;comment:触发规则名"`
	Level          EventLevel  `json:"level" gorm:"size:20;not null;comment:告警等级(成员事件最高等级)"`
	Status         AlertStatus `json:"status" gorm:"size:20;index;default:'unassigned';comment:告警状态"`
	Fingerprint    string      `json:"fingerprint" gorm:"size:255;index;comment:实例指纹"`
	FirstEventTime time.Time   `json:"first_event_time" gorm:"comment:首个成员事件时间"`
	LastEventTime  time.Time   `json:"last_event_time" gorm:"index;comment:末个成员事件时间"`
	Title          string      `json:"title" gorm:"size:500;comment:告警标题"`
	Content        string      `json:"content" gorm:"type:text;comment:告警内容"`

	// 告警独占持有与事件的关联，事件本身仍由事件表独立持有
	Events []*Event `json:"events,omitempty" gorm:"many2many:alert_event_relations;"`
}

// TableName 定义数据库表名
func (Alert) TableName() string {
	return "alerts"
}

// IsActivatable 告警是否处于可流转状态
func (a *Alert) IsActivatable() bool {
	for _, s := range ActivatableStatuses {
		if a.Status == s {
			return true
		}
	}
	return false
}
