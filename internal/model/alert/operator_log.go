/*
 * 模型:操作审计日志模型
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警状态流转的审计记录，自动关闭扫描批量写入
 */
package alert

import (
	"neoalert/internal/model/basemodel"
)

// OperatorLog 操作审计日志表
type OperatorLog struct {
	basemodel.BaseModel

	Action     string `json:"action" gorm:"size:50;index;not null;comment:操作类型"`
	TargetType string `json:"target_type" gorm:"size:50;comment:操作对象类型"`
	TargetID   string `json:"target_id" gorm:"size:64;index;comment:操作对象ID"`
	Operator   string `json:"operator" gorm:"size:100;comment:操作者"`
	Overview   string `json:"overview" gorm:"size:500;comment:操作概述"`
}

// TableName 定义数据库表名
func (OperatorLog) TableName() string {
	return "operator_logs"
}

// 自动关闭扫描写入审计日志时使用的固定取值
const (
	AuditActionAutoClose = "auto_close"
	AuditTargetTypeAlert = "alert"
	AuditOperatorSystem  = "system"
)
