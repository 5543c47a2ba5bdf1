/*
 * 服务:告警聚合核心错误定义
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 编译期配置错误哨兵，规则在编译期被拒绝，不影响其他规则
 */
package correlation

import "errors"

var (
	// ErrInvalidDuration 时间间隔字符串无法解析
	ErrInvalidDuration = errors.New("invalid duration spec")

	// ErrInvalidRuleConfig 规则配置非法，编译期拒绝
	ErrInvalidRuleConfig = errors.New("invalid rule config")
)
