package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRenderTemplate 占位符字面替换，缺失字段渲染为空串
func TestRenderTemplate(t *testing.T) {
	ev := newTestEvent("e1", 0, "cpu_usage", 92.5)

	got := RenderTemplate("【${resource_type}】${resource_name}的${item}为${value}", ev)
	assert.Equal(t, "【host】主机1的cpu_usage为92.5", got)

	// 缺失字段替换为空串，不报错
	got = RenderTemplate("前${no_such_field}后", ev)
	assert.Equal(t, "前后", got)

	// 非占位符文本原样保留
	got = RenderTemplate("$value ${} {value}", ev)
	assert.Equal(t, "$value ${} {value}", got)

	assert.Equal(t, "", RenderTemplate("", ev))
}

// TestRenderRuleTemplates 规则未配置模板时使用默认模板
func TestRenderRuleTemplates(t *testing.T) {
	ev := newTestEvent("e1", 0, "cpu_usage", 92.5)

	rule := thresholdRule(t, "r1", "cpu_usage", ">", 80)
	title, content := RenderRuleTemplates(rule, ev)
	assert.Equal(t, "【host】主机1发生cpu_usage异常", title)
	assert.Contains(t, content, "主机1(host-1)")
	assert.Contains(t, content, "92.5")

	rule.TitleTemplate = "${resource_id} ${item} 告警"
	rule.ContentTemplate = "当前值 ${value}"
	title, content = RenderRuleTemplates(rule, ev)
	assert.Equal(t, "host-1 cpu_usage 告警", title)
	assert.Equal(t, "当前值 92.5", content)
}
