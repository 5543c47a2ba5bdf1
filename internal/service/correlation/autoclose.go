/*
 * 服务:告警自动关闭扫描器
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 扫描可流转告警，超过规则静默期的告警流转为自动关闭并批量记审计
 * @func:
 * 1.Sweep 执行一次完整扫描
 */
package correlation

import (
	"context"
	"fmt"
	"time"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// autoCloseBatchSize 单批处理的告警数量上限，约束内存与事务大小
const autoCloseBatchSize = 200

// AutoCloseSweeper 告警自动关闭扫描器
// 并发扫描通过行锁加锁后复核状态解决，后到者发现已流转即静默放弃
type AutoCloseSweeper struct {
	alerts    AlertStore
	rules     RuleStore
	audit     AuditLogStore
	batchSize int
}

// NewAutoCloseSweeper 创建自动关闭扫描器
func NewAutoCloseSweeper(alerts AlertStore, rules RuleStore, audit AuditLogStore) *AutoCloseSweeper {
	return &AutoCloseSweeper{
		alerts:    alerts,
		rules:     rules,
		audit:     audit,
		batchSize: autoCloseBatchSize,
	}
}

// SweepResult 一次扫描的统计结果
type SweepResult struct {
	Scanned   int // 扫描的可流转告警数
	Closed    int // 成功流转为自动关闭的数量
	Conflicts int // 并发竞争导致的无操作次数
	Skipped   int // 配置缺失或非法而跳过的数量
}

// closeDeadlines 构建 规则名 -> 自动关闭间隔
// 未配置或为零的规则不进入映射，其告警永不自动关闭
func (s *AutoCloseSweeper) closeDeadlines(ctx context.Context) (map[string]time.Duration, error) {
	rules, err := s.rules.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("加载规则失败: %w", err)
	}

	deadlines := make(map[string]time.Duration)
	for _, rule := range rules {
		if !rule.HasCloseTime() {
			continue
		}
		d, err := ParseDuration(rule.CloseTime)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"type":       logger.ErrorLog,
				"rule_name":  rule.Name,
				"close_time": rule.CloseTime,
				"error":      err.Error(),
			}).Error("自动关闭间隔解析失败，跳过该规则")
			continue
		}
		if d <= 0 {
			// "0s"/"0h" 等零间隔视为未配置，永不自动关闭
			continue
		}
		deadlines[rule.Name] = d
	}
	return deadlines, nil
}

// Sweep 执行一次自动关闭扫描
// 告警在 now >= last_event_time + close_time 时流转为 auto_closed，
// 审计日志在扫描结束后批量写入，写入失败只记日志不传播
func (s *AutoCloseSweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	deadlines, err := s.closeDeadlines(ctx)
	if err != nil {
		return result, err
	}

	alerts, err := s.alerts.QueryActivatable(ctx)
	if err != nil {
		return result, fmt.Errorf("查询可流转告警失败: %w", err)
	}
	result.Scanned = len(alerts)

	var auditEntries []*alertModel.OperatorLog

	for start := 0; start < len(alerts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(alerts) {
			end = len(alerts)
		}

		for _, a := range alerts[start:end] {
			closeAfter, ok := deadlines[a.RuleName]
			if !ok {
				// 规则未配置自动关闭，永不流转
				continue
			}
			if a.LastEventTime.IsZero() {
				logger.WithFields(logrus.Fields{
					"type":     logger.SystemLog,
					"alert_id": a.AlertID,
				}).Warn("告警缺少末事件时间，跳过自动关闭")
				result.Skipped++
				continue
			}
			if now.Before(a.LastEventTime.Add(closeAfter)) {
				continue
			}

			transitioned, err := s.alerts.LockAndTransition(ctx, a.AlertID, alertModel.ActivatableStatuses, alertModel.AlertStatusAutoClosed)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"type":     logger.ErrorLog,
					"alert_id": a.AlertID,
					"error":    err.Error(),
				}).Error("告警自动关闭流转失败")
				continue
			}
			if !transitioned {
				// 并发扫描已完成流转，预期内的竞争结果，只计数不重试
				logger.WithFields(logrus.Fields{
					"type":     logger.SystemLog,
					"alert_id": a.AlertID,
				}).Debug("告警已被并发流转，本次无操作")
				result.Conflicts++
				continue
			}

			result.Closed++
			auditEntries = append(auditEntries, &alertModel.OperatorLog{
				Action:     alertModel.AuditActionAutoClose,
				TargetType: alertModel.AuditTargetTypeAlert,
				TargetID:   a.AlertID,
				Operator:   alertModel.AuditOperatorSystem,
				Overview: fmt.Sprintf("告警 %s 超过静默期 %s 自动关闭",
					a.AlertID, closeAfter),
			})
		}
	}

	if len(auditEntries) > 0 {
		if err := s.audit.BulkAppend(ctx, auditEntries); err != nil {
			logger.WithFields(logrus.Fields{
				"type":    logger.ErrorLog,
				"entries": len(auditEntries),
				"error":   err.Error(),
			}).Error("审计日志批量写入失败")
		}
	}

	logger.WithFields(logrus.Fields{
		"type":      logger.BusinessLog,
		"scanned":   result.Scanned,
		"closed":    result.Closed,
		"conflicts": result.Conflicts,
		"skipped":   result.Skipped,
	}).Info("自动关闭扫描完成")

	return result, nil
}
