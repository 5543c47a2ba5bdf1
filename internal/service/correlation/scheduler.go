/*
 * 服务:智能窗口调度器
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 依据当前时间判断各窗口类型规则本轮是否可执行
 * @func:
 * 1.ExecutableRules 按窗口类型划分本轮可执行规则
 * 2.ExecutionSummary 执行摘要，用于日志
 */
package correlation

import (
	"fmt"
	"time"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"

	"github.com/sirupsen/logrus"
)

// SmartScheduler 智能窗口调度器
// 滑动与会话窗口每轮都执行，固定窗口只在对齐边界执行
type SmartScheduler struct {
	// AlwaysRun 调试开关，强制所有规则每轮可执行，仅用于非生产环境
	alwaysRun bool
}

// NewSmartScheduler 创建调度器
func NewSmartScheduler(alwaysRun bool) *SmartScheduler {
	return &SmartScheduler{alwaysRun: alwaysRun}
}

// windowSizeMinutes 窗口大小换算为分钟数，秒级窗口至少记 1 分钟
func windowSizeMinutes(spec string) (int, error) {
	d, err := ParseDuration(spec)
	if err != nil {
		return 0, err
	}
	minutes := int(d / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes, nil
}

// ShouldExecuteFixedWindow 固定窗口规则在当前时间是否对齐可执行
// minute 对齐要求当前分钟是窗口分钟数的倍数，hour 对齐要求整点且小时数对齐，
// day 对齐要求午夜零点
func (s *SmartScheduler) ShouldExecuteFixedWindow(now time.Time, windowSize string, alignment alertModel.WindowAlignment) bool {
	if s.alwaysRun {
		return true
	}

	minutes, err := windowSizeMinutes(windowSize)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"type":        logger.ErrorLog,
			"window_size": windowSize,
			"error":       err.Error(),
		}).Error("固定窗口大小解析失败")
		return false
	}

	switch alignment {
	case alertModel.AlignmentMinute:
		return now.Minute()%minutes == 0
	case alertModel.AlignmentHour:
		if now.Minute() != 0 {
			return false
		}
		hours := minutes / 60
		if hours < 1 {
			return false
		}
		return now.Hour()%hours == 0
	case alertModel.AlignmentDay:
		return now.Hour() == 0 && now.Minute() == 0
	default:
		logger.WithFields(logrus.Fields{
			"type":      logger.SystemLog,
			"alignment": alignment,
		}).Warn("未知的固定窗口对齐方式")
		return false
	}
}

// ExecutableRules 按窗口类型划分当前时间可执行的规则
// 会话状态每轮从原始事件重新推导，调度器不跨轮保留会话状态
func (s *SmartScheduler) ExecutableRules(now time.Time, rules []*alertModel.AlertRule) map[alertModel.WindowType][]*alertModel.AlertRule {
	executable := map[alertModel.WindowType][]*alertModel.AlertRule{
		alertModel.WindowTypeSliding: {},
		alertModel.WindowTypeFixed:   {},
		alertModel.WindowTypeSession: {},
	}

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		switch rule.WindowType {
		case alertModel.WindowTypeSliding:
			executable[alertModel.WindowTypeSliding] = append(executable[alertModel.WindowTypeSliding], rule)
		case alertModel.WindowTypeFixed:
			if s.ShouldExecuteFixedWindow(now, rule.WindowSize, rule.Alignment) {
				executable[alertModel.WindowTypeFixed] = append(executable[alertModel.WindowTypeFixed], rule)
			}
		case alertModel.WindowTypeSession:
			executable[alertModel.WindowTypeSession] = append(executable[alertModel.WindowTypeSession], rule)
		}
	}

	return executable
}

// ExecutionSummary 本轮调度摘要
type ExecutionSummary struct {
	CurrentTime  string   `json:"current_time"`
	SlidingCount int      `json:"sliding_rules_count"`
	FixedCount   int      `json:"fixed_rules_count"`
	SessionCount int      `json:"session_rules_count"`
	TotalCount   int      `json:"total_executable_rules"`
	SlidingRules []string `json:"sliding_rules"`
	FixedRules   []string `json:"fixed_rules"`
	SessionRules []string `json:"session_rules"`
}

// Summarize 生成本轮调度摘要，用于记录业务日志
func (s *SmartScheduler) Summarize(now time.Time, executable map[alertModel.WindowType][]*alertModel.AlertRule) ExecutionSummary {
	summary := ExecutionSummary{
		CurrentTime: now.Format("2006-01-02 15:04:05"),
	}
	for _, rule := range executable[alertModel.WindowTypeSliding] {
		summary.SlidingRules = append(summary.SlidingRules, rule.Name)
	}
	for _, rule := range executable[alertModel.WindowTypeFixed] {
		summary.FixedRules = append(summary.FixedRules, fmt.Sprintf("%s(%s,%s)", rule.Name, rule.WindowSize, rule.Alignment))
	}
	for _, rule := range executable[alertModel.WindowTypeSession] {
		summary.SessionRules = append(summary.SessionRules, fmt.Sprintf("%s(%s)", rule.Name, rule.SessionTimeout))
	}
	summary.SlidingCount = len(summary.SlidingRules)
	summary.FixedCount = len(summary.FixedRules)
	summary.SessionCount = len(summary.SessionRules)
	summary.TotalCount = summary.SlidingCount + summary.FixedCount + summary.SessionCount
	return summary
}
