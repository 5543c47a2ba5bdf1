/*
 * 服务:外部协作者接口定义
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 事件/告警/规则存储与审计日志的抽象契约，核心不依赖具体实现
 */
package correlation

import (
	"context"
	"time"

	alertModel "neoalert/internal/model/alert"
)

// EventStore 事件存储，只读
// QueryRange 返回 [start, end) 内的事件，允许返回空集
type EventStore interface {
	QueryRange(ctx context.Context, start, end time.Time) ([]*alertModel.Event, error)
}

// AlertStore 告警存储
type AlertStore interface {
	// BulkCreate 批量创建告警及其事件关联，单次调用内原子
	BulkCreate(ctx context.Context, alerts []*alertModel.Alert) error
	// QueryActivatable 返回处于可流转状态的告警
	QueryActivatable(ctx context.Context) ([]*alertModel.Alert, error)
	// LockAndTransition 行锁后复核状态再流转
	// 状态已被并发修改时返回 false 且不报错，先写者胜出
	LockAndTransition(ctx context.Context, alertID string, expected []alertModel.AlertStatus, target alertModel.AlertStatus) (bool, error)
}

// RuleStore 规则存储，规则管理器重载的事实来源
type RuleStore interface {
	LoadAll(ctx context.Context) ([]*alertModel.AlertRule, error)
}

// AuditLogStore 审计日志存储
// 对扫描器而言写入失败只记日志，不向上传播
type AuditLogStore interface {
	BulkAppend(ctx context.Context, entries []*alertModel.OperatorLog) error
}

// RuleCache 规则列表的外部旁路缓存
// 重载时优先读缓存，未命中回源后回填，规则变更时整体失效
type RuleCache interface {
	GetRules(ctx context.Context) ([]*alertModel.AlertRule, error)
	SetRules(ctx context.Context, rules []*alertModel.AlertRule) error
	Invalidate(ctx context.Context) error
}
