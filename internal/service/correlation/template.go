/*
 * 服务:告警模板渲染
 * @author: Sun977
 * @date: 2025.11.03
 * @description: ${field} 占位符的字面替换，缺失字段渲染为空串，永不报错
 */
package correlation

import (
	"regexp"

	alertModel "neoalert/internal/model/alert"
)

// templatePattern ${field} 形式的占位符
var templatePattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// RenderTemplate 以事件字段渲染模板
// 占位符做字面替换，事件缺失的字段替换为空串
func RenderTemplate(tpl string, ev *alertModel.Event) string {
	if tpl == "" || ev == nil {
		return tpl
	}
	return templatePattern.ReplaceAllStringFunc(tpl, func(token string) string {
		name := templatePattern.FindStringSubmatch(token)[1]
		return ev.Field(name)
	})
}

// RenderRuleTemplates 渲染规则的标题与内容，未配置模板时使用默认模板
func RenderRuleTemplates(rule *alertModel.AlertRule, first *alertModel.Event) (title, content string) {
	titleTpl := rule.TitleTemplate
	if titleTpl == "" {
		titleTpl = alertModel.DefaultTitleTemplate
	}
	contentTpl := rule.ContentTemplate
	if contentTpl == "" {
		contentTpl = alertModel.DefaultContentTemplate
	}
	return RenderTemplate(titleTpl, first), RenderTemplate(contentTpl, first)
}
