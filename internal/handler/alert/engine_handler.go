/*
 * 处理器:聚合引擎运维接口
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 手动触发一轮聚合处理或自动关闭扫描，用于排障与联调
 * @func:
 * 1.TriggerTick 手动触发聚合节拍
 * 2.TriggerSweep 手动触发自动关闭扫描
 */
package alert

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"
	"neoalert/internal/service/correlation"
)

type EngineHandler struct {
	svc *correlation.Service
}

func NewEngineHandler(svc *correlation.Service) *EngineHandler {
	return &EngineHandler{svc: svc}
}

// TriggerTick 手动触发一轮聚合处理
func (h *EngineHandler) TriggerTick(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")

	if err := h.svc.RunAggregationTick(c.Request.Context(), time.Now()); err != nil {
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Aggregation tick failed",
			Error:   err.Error(),
		})
		return
	}

	logger.LogBusinessOperation("trigger_tick", "", clientIP, requestID, "success", "手动聚合节拍完成", nil)
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Aggregation tick completed",
	})
}

// TriggerSweep 手动触发一轮自动关闭扫描，返回本轮计数
func (h *EngineHandler) TriggerSweep(c *gin.Context) {
	clientIP := c.ClientIP()
	requestID := c.GetHeader("X-Request-ID")

	result, err := h.svc.Sweeper().Sweep(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, alertModel.APIResponse{
			Code:    http.StatusInternalServerError,
			Status:  "failed",
			Message: "Auto close sweep failed",
			Error:   err.Error(),
		})
		return
	}

	logger.LogBusinessOperation("trigger_sweep", "", clientIP, requestID, "success", "手动自动关闭扫描完成", map[string]interface{}{
		"scanned": result.Scanned,
		"closed":  result.Closed,
	})
	c.JSON(http.StatusOK, alertModel.APIResponse{
		Code:    http.StatusOK,
		Status:  "success",
		Message: "Auto close sweep completed",
		Data: alertModel.SweepResponse{
			Scanned:   result.Scanned,
			Closed:    result.Closed,
			Conflicts: result.Conflicts,
			Skipped:   result.Skipped,
		},
	})
}
