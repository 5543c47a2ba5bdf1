/*
 * 处理器:告警规则管理接口
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 规则CRUD、校验、统计与重载的HTTP入口，先落库再同步内存注册表
 * @func:
 * 1.CreateRule 创建规则
 * 2.UpdateRule 更新规则
 * 3.DeleteRule 删除规则
 * 4.GetRule 查询单条规则
 * 5.ListRules 查询全部规则
 * 6.ValidateRule 仅校验规则配置
 * 7.GetStatistics 规则统计
 * 8.ReloadRules 从存储重载规则
 */
package alert

import (
	"net/http"

	"github.com/gin-gonic/gin"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"
	mysqlAlert "neoalert/internal/repo/mysql/alert"
	"neoalert/internal/service/correlation"
)

type RuleHandler struct {
	manager *correlation.RuleManager
	rules   *mysqlAlert.RuleRepository
}

func NewRuleHandler(manager *correlation.RuleManager, rules *mysqlAlert.RuleRepository) *RuleHandler {
	return &RuleHandler{manager: manager, rules: rules}
}

// CreateRule 创建规则
func (h *RuleHandler) CreateRule(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")
	pathUrl := c.Request.URL.String()

	var req alertModel.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "POST", map[string]interface{}{
			"operation": "create_rule",
			"error":     "invalid_json",
		})
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	rule := buildRuleFromCreateRequest(&req)
	if err := h.manager.ValidateRuleConfig(rule); err != nil {
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid rule config",
			Error:   err.Error(),
		})
		return
	}

	// 先落库，库内唯一索引兜底防重
	if err := h.rules.Create(c.Request.Context(), rule); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "POST", map[string]interface{}{
			"operation": "create_rule",
			"rule_name": rule.Name,
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to create rule",
			Error:   err.Error(),
		})
		return
	}

	if err := h.manager.AddRule(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusConflict, alertModel.APIResponse{
			Code:    http.StatusConflict,
			Status:  "failed",
			Message: "Rule persisted but registry refused it",
			Error:   err.Error(),
		})
		return
	}

	logger.LogBusinessOperation("create_rule", rule.Name, clientIP, requestID, "success", "规则创建成功", map[string]interface{}{
		"condition_type": rule.ConditionType,
		"window_type":    rule.WindowType,
	})
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rule created successfully",
		Data:    alertModel.NewRuleResponse(rule),
	})
}

// UpdateRule 更新规则
// 指针字段未传时保留原值
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")
	pathUrl := c.Request.URL.String()
	name := c.Param("name")

	var req alertModel.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "PUT", map[string]interface{}{
			"operation": "update_rule",
			"error":     "invalid_json",
		})
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	existing, err := h.rules.FindByName(c.Request.Context(), name)
	if err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "PUT", map[string]interface{}{
			"operation": "update_rule",
			"rule_name": name,
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to load rule",
			Error:   err.Error(),
		})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, alertModel.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "Rule not found",
		})
		return
	}

	applyRuleUpdate(existing, &req)
	if err := h.manager.ValidateRuleConfig(existing); err != nil {
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid rule config",
			Error:   err.Error(),
		})
		return
	}

	if err := h.rules.Update(c.Request.Context(), existing); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "PUT", map[string]interface{}{
			"operation": "update_rule",
			"rule_name": name,
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to update rule",
			Error:   err.Error(),
		})
		return
	}

	if err := h.manager.UpdateRule(c.Request.Context(), existing); err != nil {
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Rule persisted but registry refused it",
			Error:   err.Error(),
		})
		return
	}

	logger.LogBusinessOperation("update_rule", name, clientIP, requestID, "success", "规则更新成功", nil)
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rule updated successfully",
		Data:    alertModel.NewRuleResponse(existing),
	})
}

// DeleteRule 删除规则
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")
	pathUrl := c.Request.URL.String()
	name := c.Param("name")

	if err := h.rules.DeleteByName(c.Request.Context(), name); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "DELETE", map[string]interface{}{
			"operation": "delete_rule",
			"rule_name": name,
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to delete rule",
			Error:   err.Error(),
		})
		return
	}

	// 注册表中不存在说明此前未加载，落库删除已生效，忽略即可
	_ = h.manager.RemoveRule(c.Request.Context(), name)

	logger.LogBusinessOperation("delete_rule", name, clientIP, requestID, "success", "规则删除成功", nil)
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rule deleted successfully",
	})
}

// GetRule 查询单条规则
func (h *RuleHandler) GetRule(c *gin.Context) {
	name := c.Param("name")

	rule, ok := h.manager.RuleByName(name)
	if !ok {
		c.JSON(http.StatusNotFound, alertModel.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "Rule not found",
		})
		return
	}

	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rule retrieved successfully",
		Data:    alertModel.NewRuleResponse(rule),
	})
}

// ListRules 查询全部规则
func (h *RuleHandler) ListRules(c *gin.Context) {
	rules := h.manager.AllRules()
	items := make([]*alertModel.RuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, alertModel.NewRuleResponse(r))
	}

	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rules retrieved successfully",
		Data:    items,
	})
}

// ValidateRule 仅校验规则配置，不落库不入注册表
func (h *RuleHandler) ValidateRule(c *gin.Context) {
	var req alertModel.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid request body",
			Error:   err.Error(),
		})
		return
	}

	rule := buildRuleFromCreateRequest(&req)
	if err := h.manager.ValidateRuleConfig(rule); err != nil {
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Invalid rule config",
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rule config is valid",
	})
}

// GetStatistics 规则统计
func (h *RuleHandler) GetStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Statistics retrieved successfully",
		Data:    h.manager.RuleStatistics(),
	})
}

// ReloadRules 从存储重载全部规则
func (h *RuleHandler) ReloadRules(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")

	if err := h.manager.Reload(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to reload rules",
			Error:   err.Error(),
		})
		return
	}

	stats := h.manager.RuleStatistics()
	logger.LogBusinessOperation("reload_rules", "", clientIP, requestID, "success", "规则重载成功", map[string]interface{}{
		"total_rules": stats.Total,
	})
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Rules reloaded successfully",
		Data:    stats,
	})
}

// buildRuleFromCreateRequest 由创建请求构建规则模型，未传字段取默认值
func buildRuleFromCreateRequest(req *alertModel.CreateRuleRequest) *alertModel.AlertRule {
	rule := &alertModel.AlertRule{
		Name:             req.Name,
		Description:      req.Description,
		ConditionType:    req.ConditionType,
		ConditionConfig:  req.ConditionConfig,
		Severity:         req.Severity,
		IsActive:         true,
		TitleTemplate:    req.TitleTemplate,
		ContentTemplate:  req.ContentTemplate,
		WindowType:       req.WindowType,
		WindowSize:       req.WindowSize,
		Alignment:        req.Alignment,
		SessionTimeout:   req.SessionTimeout,
		SessionKeyFields: req.SessionKeyFields,
		CloseTime:        req.CloseTime,
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if rule.Severity == "" {
		rule.Severity = alertModel.EventLevelWarning
	}
	if rule.WindowType == "" {
		rule.WindowType = alertModel.WindowTypeSliding
	}
	if rule.WindowSize == "" {
		rule.WindowSize = "10min"
	}
	if rule.Alignment == "" {
		rule.Alignment = alertModel.AlignmentMinute
	}
	if rule.SessionTimeout == "" {
		rule.SessionTimeout = "5min"
	}
	return rule
}

// applyRuleUpdate 把更新请求中已传的字段合并到现有规则
func applyRuleUpdate(rule *alertModel.AlertRule, req *alertModel.UpdateRuleRequest) {
	if req.Description != nil {
		rule.Description = *req.Description
	}
	if req.ConditionType != nil {
		rule.ConditionType = *req.ConditionType
	}
	if req.ConditionConfig != nil {
		rule.ConditionConfig = *req.ConditionConfig
	}
	if req.Severity != nil {
		rule.Severity = *req.Severity
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}
	if req.TitleTemplate != nil {
		rule.TitleTemplate = *req.TitleTemplate
	}
	if req.ContentTemplate != nil {
		rule.ContentTemplate = *req.ContentTemplate
	}
	if req.WindowType != nil {
		rule.WindowType = *req.WindowType
	}
	if req.WindowSize != nil {
		rule.WindowSize = *req.WindowSize
	}
	if req.Alignment != nil {
		rule.Alignment = *req.Alignment
	}
	if req.SessionTimeout != nil {
		rule.SessionTimeout = *req.SessionTimeout
	}
	if req.SessionKeyFields != nil {
		rule.SessionKeyFields = *req.SessionKeyFields
	}
	if req.CloseTime != nil {
		rule.CloseTime = *req.CloseTime
	}
}
