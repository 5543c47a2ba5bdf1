/*
 * 服务:告警聚合服务入口
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 由外部节拍触发的两个入口：聚合处理与自动关闭扫描
 * @func:
 * 1.RunAggregationTick 一轮聚合处理
 * 2.RunAutoCloseSweep 一轮自动关闭扫描
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

// Service 告警聚合服务
// 不含常驻事件循环，由外部定时器按节拍调用入口方法，单次调用同步执行完成
type Service struct {
	manager   *RuleManager
	processor *AlertProcessor
	sweeper   *AutoCloseSweeper
	scheduler *SmartScheduler
}

// NewService 创建告警聚合服务
func NewService(manager *RuleManager, processor *AlertProcessor, sweeper *AutoCloseSweeper, scheduler *SmartScheduler) *Service {
	return &Service{
		manager:   manager,
		processor: processor,
		sweeper:   sweeper,
		scheduler: scheduler,
	}
}

// Manager 返回规则管理器，供运维接口使用
func (s *Service) Manager() *RuleManager {
	return s.manager
}

// Sweeper 返回自动关闭扫描器，供运维接口使用
func (s *Service) Sweeper() *AutoCloseSweeper {
	return s.sweeper
}

// RunAggregationTick 执行一轮聚合处理
// 调度器划分本轮可执行规则，各窗口类型依次处理；
// 持久化错误向调用方传播，本轮失败不影响下一轮节拍
func (s *Service) RunAggregationTick(ctx context.Context, now time.Time) error {
	executable := s.scheduler.ExecutableRules(now, s.manager.ActiveRules())
	summary := s.scheduler.Summarize(now, executable)

	logger.WithFields(logrus.Fields{
		"type":          logger.BusinessLog,
		"current_time":  summary.CurrentTime,
		"sliding_rules": summary.SlidingCount,
		"fixed_rules":   summary.FixedCount,
		"session_rules": summary.SessionCount,
		"total_rules":   summary.TotalCount,
	}).Info("聚合处理开始")

	if summary.TotalCount == 0 {
		return nil
	}

	totalCreated := 0
	var firstErr error
	for _, kind := range []alertModel.WindowType{
		alertModel.WindowTypeSliding,
		alertModel.WindowTypeFixed,
		alertModel.WindowTypeSession,
	} {
		rules := executable[kind]
		if len(rules) == 0 {
			continue
		}
		created, err := s.processor.ProcessWindowRules(ctx, now, kind, rules)
		totalCreated += created
		if err != nil {
			logger.WithFields(logrus.Fields{
				"type":        logger.ErrorLog,
				"window_type": kind,
				"error":       err.Error(),
			}).Error("窗口规则处理失败")
			if firstErr == nil {
				firstErr = fmt.Errorf("窗口 %s 规则处理失败: %w", kind, err)
			}
		}
	}

	logger.WithFields(logrus.Fields{
		"type":           logger.BusinessLog,
		"alerts_created": totalCreated,
	}).Info("聚合处理完成")

	return firstErr
}

// RunAutoCloseSweep 执行一轮自动关闭扫描
func (s *Service) RunAutoCloseSweep(ctx context.Context, now time.Time) error {
	_, err := s.sweeper.Sweep(ctx, now)
	if err != nil {
		return fmt.Errorf("自动关闭扫描失败: %w", err)
	}
	return nil
}
