/*
 * 处理器:告警查询接口
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 告警详情查询的HTTP入口
 * @func:
 * 1.GetAlert 查询告警详情(含关联事件)
 */
package alert

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"
)

// alertQuerier 告警详情查询
type alertQuerier interface {
	QueryByAlertID(ctx context.Context, alertID string) (*alertModel.Alert, error)
}

type AlertHandler struct {
	alerts alertQuerier
}

func NewAlertHandler(alerts alertQuerier) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// GetAlert 按告警ID查询详情，携带关联事件
func (h *AlertHandler) GetAlert(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")
	pathUrl := c.Request.URL.String()
	alertID := c.Param("alert_id")

	a, err := h.alerts.QueryByAlertID(c.Request.Context(), alertID)
	if err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "GET", map[string]interface{}{
			"operation": "get_alert",
			"alert_id":  alertID,
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to query alert",
			Error:   err.Error(),
		})
		return
	}
	if a == nil {
		c.JSON(http.StatusNotFound, alertModel.APIResponse{
			Code:    http.StatusNotFound,
			Status:  "failed",
			Message: "Alert not found",
		})
		return
	}

	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Alert retrieved successfully",
		Data:    a,
	})
}
