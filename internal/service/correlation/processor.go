/*
 * 服务:告警处理流水线
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 取窗口事件 -> 规则引擎求值 -> 触发分组映射为告警 -> 批量持久化
 * @func:
 * 1.ProcessWindowRules 处理一类窗口的可执行规则
 */
package correlation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AlertProcessor 告警处理流水线
// 每次调用为一次完整的 取数-求值-建告警-落库 流程，不跨调用保留状态
type AlertProcessor struct {
	events EventStore
	alerts AlertStore
}

// NewAlertProcessor 创建告警处理流水线
func NewAlertProcessor(events EventStore, alerts AlertStore) *AlertProcessor {
	return &AlertProcessor{events: events, alerts: alerts}
}

// NewAlertID 生成告警业务ID
func NewAlertID() string {
	hex := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return fmt.Sprintf("%s-%s", alertModel.AlertIDPrefix, hex)
}

// ruleGroupKey 同窗口参数的规则共享一次取数与一个引擎
func ruleGroupKey(kind alertModel.WindowType, rule *alertModel.AlertRule) string {
	if kind == alertModel.WindowTypeFixed {
		return rule.WindowSize + "|" + string(rule.Alignment)
	}
	return rule.WindowSize
}

// ProcessWindowRules 处理一类窗口的可执行规则，返回创建的告警数
// 事件存储或告警存储的错误向调用方传播，空事件批次不报错
func (p *AlertProcessor) ProcessWindowRules(ctx context.Context, now time.Time, kind alertModel.WindowType, rules []*alertModel.AlertRule) (int, error) {
	if len(rules) == 0 {
		return 0, nil
	}

	if kind == alertModel.WindowTypeSession {
		return p.processSessionRules(ctx, now, rules)
	}

	// 按窗口参数分组，同参数规则共享一次事件查询
	grouped := make(map[string][]*alertModel.AlertRule)
	var order []string
	for _, rule := range rules {
		key := ruleGroupKey(kind, rule)
		if _, ok := grouped[key]; !ok {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], rule)
	}
	sort.Strings(order)

	created := 0
	for _, key := range order {
		groupRules := grouped[key]
		size, err := ParseDuration(groupRules[0].WindowSize)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"type":        logger.ErrorLog,
				"window_size": groupRules[0].WindowSize,
				"error":       err.Error(),
			}).Error("窗口大小解析失败，跳过该组规则")
			continue
		}

		var rng Range
		switch kind {
		case alertModel.WindowTypeSliding:
			rng = SlidingRange(now, size)
		case alertModel.WindowTypeFixed:
			rng, err = FixedRange(now, size, groupRules[0].Alignment)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"type":  logger.ErrorLog,
					"error": err.Error(),
				}).Error("固定窗口范围计算失败，跳过该组规则")
				continue
			}
		default:
			return created, fmt.Errorf("未知窗口类型: %s", kind)
		}

		events, err := p.events.QueryRange(ctx, rng.Start, rng.End)
		if err != nil {
			return created, fmt.Errorf("查询窗口事件失败: %w", err)
		}
		if len(events) == 0 {
			continue
		}

		engine := NewRuleEngine(size)
		for _, rule := range groupRules {
			if err := engine.AddRule(rule); err != nil {
				logger.WithFields(logrus.Fields{
					"type":      logger.ErrorLog,
					"rule_name": rule.Name,
					"error":     err.Error(),
				}).Error("规则编译失败，已从本轮执行中剔除")
			}
		}

		alerts := p.buildAlerts(engine.Process(events), engine.Rules(), events)
		if len(alerts) == 0 {
			continue
		}
		if err := p.alerts.BulkCreate(ctx, alerts); err != nil {
			return created, fmt.Errorf("批量创建告警失败: %w", err)
		}
		created += len(alerts)
	}

	return created, nil
}

// processSessionRules 处理会话窗口规则
// 先以窗口大小回溯取数，按会话切分后对每个会话批次独立求值
func (p *AlertProcessor) processSessionRules(ctx context.Context, now time.Time, rules []*alertModel.AlertRule) (int, error) {
	created := 0
	for _, rule := range rules {
		cfg, err := WindowConfigFromRule(rule)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"type":      logger.ErrorLog,
				"rule_name": rule.Name,
				"error":     err.Error(),
			}).Error("会话窗口配置非法，跳过规则")
			continue
		}

		rng := SlidingRange(now, cfg.Size)
		events, err := p.events.QueryRange(ctx, rng.Start, rng.End)
		if err != nil {
			return created, fmt.Errorf("查询会话窗口事件失败: %w", err)
		}
		if len(events) == 0 {
			continue
		}

		engine := NewRuleEngine(cfg.Size)
		if err := engine.AddRule(rule); err != nil {
			logger.WithFields(logrus.Fields{
				"type":      logger.ErrorLog,
				"rule_name": rule.Name,
				"error":     err.Error(),
			}).Error("规则编译失败，已从本轮执行中剔除")
			continue
		}

		var alerts []*alertModel.Alert
		for sessionKey, batch := range SessionBatches(events, cfg) {
			sessionAlerts := p.buildAlerts(engine.Process(batch), engine.Rules(), batch)
			if len(sessionAlerts) > 0 {
				logger.WithFields(logrus.Fields{
					"type":        logger.BusinessLog,
					"rule_name":   rule.Name,
					"session_key": sessionKey,
					"alerts":      len(sessionAlerts),
				}).Debug("会话批次触发告警")
			}
			alerts = append(alerts, sessionAlerts...)
		}

		if len(alerts) == 0 {
			continue
		}
		if err := p.alerts.BulkCreate(ctx, alerts); err != nil {
			return created, fmt.Errorf("批量创建告警失败: %w", err)
		}
		created += len(alerts)
	}

	return created, nil
}

// buildAlerts 将规则触发结果映射为待持久化的告警聚合
// 等级取成员事件的最高等级，模板以组内首个事件渲染
func (p *AlertProcessor) buildAlerts(results map[string]*RuleResult, compiled map[string]*CompiledRule, events []*alertModel.Event) []*alertModel.Alert {
	index := make(map[string]*alertModel.Event, len(events))
	for _, ev := range events {
		index[ev.EventID] = ev
	}

	var names []string
	for name, result := range results {
		if result.Triggered {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var alerts []*alertModel.Alert
	for _, name := range names {
		result := results[name]
		rule := compiled[name].Rule

		for _, inst := range result.Instances {
			for _, group := range inst.Groups {
				members := make([]*alertModel.Event, 0, len(group))
				for _, id := range group {
					if ev, ok := index[id]; ok {
						members = append(members, ev)
					}
				}
				if len(members) == 0 {
					logger.WithFields(logrus.Fields{
						"type":      logger.ErrorLog,
						"rule_name": name,
					}).Warn("触发分组无法解析到事件记录，跳过")
					continue
				}
				sort.SliceStable(members, func(i, j int) bool {
					return members[i].ReceivedAt.Before(members[j].ReceivedAt)
				})

				levels := make([]alertModel.EventLevel, 0, len(members))
				for _, ev := range members {
					levels = append(levels, ev.Level)
				}
				title, content := RenderRuleTemplates(rule, members[0])

				alerts = append(alerts, &alertModel.Alert{
					AlertID:        NewAlertID(),
					RuleName:       rule.Name,
					Level:          alertModel.MaxLevel(levels),
					Status:         alertModel.AlertStatusUnassigned,
					Fingerprint:    inst.Fingerprint,
					FirstEventTime: members[0].ReceivedAt,
					LastEventTime:  members[len(members)-1].ReceivedAt,
					Title:          title,
					Content:        content,
					Events:         members,
				})
			}
		}
	}

	return alerts
}
