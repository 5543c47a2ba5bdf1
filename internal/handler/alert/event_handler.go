/*
 * 处理器:监控事件摄入接口
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 上游采集批量上报原始事件的HTTP入口
 * @func:
 * 1.IngestEvents 批量写入事件
 */
package alert

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"
	mysqlAlert "neoalert/internal/repo/mysql/alert"
)

type EventHandler struct {
	events *mysqlAlert.EventRepository
}

func NewEventHandler(events *mysqlAlert.EventRepository) *EventHandler {
	return &EventHandler{events: events}
}

// IngestEvents 批量写入原始事件
// 未带接收时间的事件取服务端当前时间
func (h *EventHandler) IngestEvents(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")
	pathUrl := c.Request.URL.String()

	var req alertModel.IngestEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "POST", map[string]interface{}{
			"operation": "ingest_events",
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
	if len(req.Events) == 0 {
		c.JSON(http.StatusBadRequest, alertModel.APIResponse{
			Code:    http.StatusBadRequest,
			Status:  "failed",
			Message: "Event list cannot be empty",
		})
		return
	}

	now := time.Now()
	events := make([]*alertModel.Event, 0, len(req.Events))
	for _, item := range req.Events {
		receivedAt := now
		if item.ReceivedAt != nil {
			receivedAt = *item.ReceivedAt
		}
		level := item.Level
		if level == "" {
			level = alertModel.EventLevelWarning
		}
		events = append(events, &alertModel.Event{
			EventID:      item.EventID,
			ReceivedAt:   receivedAt,
			Item:         item.Item,
			Value:        item.Value,
			Status:       item.Status,
			Level:        level,
			ResourceType: item.ResourceType,
			ResourceID:   item.ResourceID,
			ResourceName: item.ResourceName,
			SourceID:     item.SourceID,
		})
	}

	if err := h.events.BulkInsert(c.Request.Context(), events); err != nil {
		logger.LogError(err, requestID, clientIP, pathUrl, "POST", map[string]interface{}{
			"operation":   "ingest_events",
			"event_count": len(events),
		})
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Failed to insert events",
			Error:   err.Error(),
		})
		return
	}

	logger.LogBusinessOperation("ingest_events", "", clientIP, requestID, "success", "事件批量写入成功", map[string]interface{}{
		"event_count": len(events),
	})
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Events ingested successfully",
		Data:    alertModel.IngestResponse{Accepted: len(events)},
	})
}
