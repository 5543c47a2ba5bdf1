/*
 * 模型:原始监控事件模型
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 上游采集写入的原始事件，对告警核心只读
 */
package alert

import (
	"strconv"
	"strings"
	"time"

	"neoalert/internal/model/basemodel"
)

// Event 原始监控事件表
// 由上游摄入服务创建，告警聚合核心只做读取与关联
type Event struct {
	basemodel.BaseModel

	EventID      string     `json:"event_id" gorm:"size:64;uniqueIndex;not null;comment:事件唯一标识"`
	ReceivedAt   time.Time  `json:"received_at" gorm:"index;not null;comment:接收时间"`
	Item         string     `json:"item" gorm:"size:100;index;comment:指标名"`
	Value        float64    `json:"value" gorm:"comment:指标数值"`
	Status       string     `json:"status" gorm:"size:50;comment:事件状态"`
	Level        EventLevel `json:"level" gorm:"size:20;default:'warning';comment:事件等级"`
	ResourceType string     `json:"resource_type" gorm:"size:100;comment:资源类型"`
	ResourceID   string     `json:"resource_id" gorm:"size:100;index;comment:资源ID"`
	ResourceName string     `json:"resource_name" gorm:"size:200;comment:资源名称"`
	SourceID     string     `json:"source_id" gorm:"size:100;comment:事件源ID"`
}

// TableName 定义数据库表名
func (Event) TableName() string {
	return "alert_events"
}

// Fingerprint 返回事件的实例指纹
// 同一资源实例的同一指标共享一个指纹，用于会话分组与按实例评估
func (e *Event) Fingerprint() string {
	return strings.Join([]string{e.ResourceType, e.ResourceID, e.Item, e.SourceID}, "|")
}

// Field 按字段名取事件字段的字符串值，用于模板渲染与分组键
// 未知字段返回空字符串
func (e *Event) Field(name string) string {
	switch name {
	case "event_id":
		return e.EventID
	case "item":
		return e.Item
	case "value":
		return strconv.FormatFloat(e.Value, 'f', -1, 64)
	case "status":
		return e.Status
	case "level":
		return string(e.Level)
	case "resource_type":
		return e.ResourceType
	case "resource_id":
		return e.ResourceID
	case "resource_name":
		return e.ResourceName
	case "source_id":
		return e.SourceID
	case "received_at":
		return e.ReceivedAt.Format("2006-01-02 15:04:05")
	default:
		return ""
	}
}

// GroupKey 按多个字段名拼接分组键
func (e *Event) GroupKey(fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, e.Field(f))
	}
	return strings.Join(parts, "|")
}
