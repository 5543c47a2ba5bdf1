/*
 * 服务:聚合窗口计算器
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 纯函数窗口计算，滑动/固定/会话三类窗口的时间范围推导
 * @func:
 * 1.ParseDuration 解析窗口大小字符串
 * 2.SlidingRange 滑动窗口范围
 * 3.FixedRange 固定窗口对齐范围
 * 4.SessionRanges 会话窗口分段
 */
package correlation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	alertModel "neoalert/internal/model/alert"
)

// durationPattern 窗口大小格式，如 5min/1h/1d/30s
var durationPattern = regexp.MustCompile(`^(\d+)(min|h|d|s)$`)

// Range 左闭右开时间范围 [Start, End)
// 会话窗口例外，其范围为成员事件的 [首事件时间, 末事件时间]
type Range struct {
	Start time.Time
	End   time.Time
}

// WindowConfig 单个规则的窗口参数，从规则模型解析而来
type WindowConfig struct {
	Kind           alertModel.WindowType
	Size           time.Duration
	Alignment      alertModel.WindowAlignment
	SessionTimeout time.Duration
	SessionKeys    []string // 空则按事件实例指纹分组
}

// ParseDuration 解析 "5min"/"1h"/"1d"/"30s" 形式的时间间隔
func ParseDuration(spec string) (time.Duration, error) {
	m := durationPattern.FindStringSubmatch(spec)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, spec)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, spec)
	}
	switch m[2] {
	case "min":
		return time.Duration(n) * time.Minute, nil
	case "h":
		return time.Duration(n) * time.Hour, nil
	case "d":
		return time.Duration(n) * 24 * time.Hour, nil
	case "s":
		return time.Duration(n) * time.Second, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, spec)
}

// WindowConfigFromRule 从规则模型解析窗口配置
// 窗口大小或会话超时非法时返回 ErrInvalidDuration
func WindowConfigFromRule(rule *alertModel.AlertRule) (WindowConfig, error) {
	cfg := WindowConfig{
		Kind:      rule.WindowType,
		Alignment: rule.Alignment,
	}

	size, err := ParseDuration(rule.WindowSize)
	if err != nil {
		return cfg, fmt.Errorf("规则 %s 窗口大小解析失败: %w", rule.Name, err)
	}
	cfg.Size = size

	if rule.WindowType == alertModel.WindowTypeSession {
		timeout, err := ParseDuration(rule.SessionTimeout)
		if err != nil {
			return cfg, fmt.Errorf("规则 %s 会话超时解析失败: %w", rule.Name, err)
		}
		cfg.SessionTimeout = timeout

		keys, err := rule.SessionKeys()
		if err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidRuleConfig, err)
		}
		cfg.SessionKeys = keys
	}

	return cfg, nil
}

// SlidingRange 滑动窗口范围 [now-size, now)
func SlidingRange(now time.Time, size time.Duration) Range {
	return Range{Start: now.Add(-size), End: now}
}

// FixedRange 固定窗口范围
// 先按对齐单位截断当前时间，再以窗口大小为步长相对纪元向下取整得到窗口序号
func FixedRange(now time.Time, size time.Duration, alignment alertModel.WindowAlignment) (Range, error) {
	var truncated time.Time
	switch alignment {
	case alertModel.AlignmentMinute:
		truncated = now.Truncate(time.Minute)
	case alertModel.AlignmentHour:
		truncated = now.Truncate(time.Hour)
	case alertModel.AlignmentDay:
		y, m, d := now.Date()
		truncated = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	default:
		return Range{}, fmt.Errorf("%w: 未知对齐方式 %q", ErrInvalidRuleConfig, alignment)
	}

	sizeSec := int64(size / time.Second)
	if sizeSec <= 0 {
		return Range{}, fmt.Errorf("%w: 窗口大小必须为正", ErrInvalidRuleConfig)
	}

	idx := truncated.Unix() / sizeSec
	start := time.Unix(idx*sizeSec, 0).In(now.Location())
	return Range{Start: start, End: start.Add(size)}, nil
}

// SessionBatches 会话窗口分段，返回各会话的成员事件
// 事件按会话键分组（未配置分组字段时按实例指纹），组内按接收时间排序，
// 相邻事件间隔超过超时阈值即切分新会话，键为 分组键_会话序号
func SessionBatches(events []*alertModel.Event, cfg WindowConfig) map[string][]*alertModel.Event {
	groups := make(map[string][]*alertModel.Event)
	for _, ev := range events {
		var key string
		if len(cfg.SessionKeys) > 0 {
			key = ev.GroupKey(cfg.SessionKeys)
		} else {
			key = ev.Fingerprint()
		}
		groups[key] = append(groups[key], ev)
	}

	sessions := make(map[string][]*alertModel.Event)
	for key, members := range groups {
		sort.Slice(members, func(i, j int) bool {
			return members[i].ReceivedAt.Before(members[j].ReceivedAt)
		})

		ordinal := 0
		current := []*alertModel.Event{members[0]}
		for _, ev := range members[1:] {
			last := current[len(current)-1]
			if ev.ReceivedAt.Sub(last.ReceivedAt) > cfg.SessionTimeout {
				sessions[fmt.Sprintf("%s_%d", key, ordinal)] = current
				ordinal++
				current = nil
			}
			current = append(current, ev)
		}
		sessions[fmt.Sprintf("%s_%d", key, ordinal)] = current
	}

	return sessions
}

// SessionRanges 会话窗口分段的时间范围，范围为成员事件的 [首事件时间, 末事件时间]
func SessionRanges(events []*alertModel.Event, cfg WindowConfig) map[string]Range {
	ranges := make(map[string]Range)
	for key, members := range SessionBatches(events, cfg) {
		ranges[key] = Range{
			Start: members[0].ReceivedAt,
			End:   members[len(members)-1].ReceivedAt,
		}
	}
	return ranges
}
