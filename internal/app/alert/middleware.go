/*
 * 中间件:告警服务HTTP中间件
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 请求ID、访问日志、CORS、安全头、API密钥认证与恐慌恢复
 * @func:
 * 1.GinRequestIDMiddleware 请求追踪ID
 * 2.GinLoggingMiddleware 访问日志
 * 3.GinCORSMiddleware CORS
 * 4.GinSecurityHeadersMiddleware 安全头
 * 5.GinAPIKeyMiddleware API密钥认证
 * 6.GinRecoveryMiddleware 恐慌恢复
 */
package alert

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neoalert/internal/config"
	alertModel "neoalert/internal/model/alert"
	"neoalert/internal/pkg/logger"
)

// RequestIDHeader 请求追踪ID的请求头名
const RequestIDHeader = "X-Request-ID"

// MiddlewareManager 中间件管理器
type MiddlewareManager struct {
	security *config.SecurityConfig
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager(security *config.SecurityConfig) *MiddlewareManager {
	return &MiddlewareManager{security: security}
}

// GinRequestIDMiddleware 请求追踪ID中间件
// 透传上游带来的ID，没有则生成一个，响应头中回写
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
			c.Request.Header.Set(RequestIDHeader, requestID)
		}
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GinLoggingMiddleware 访问日志中间件
// 配置的跳过路径（健康检查等）不记录
func (m *MiddlewareManager) GinLoggingMiddleware() gin.HandlerFunc {
	skip := make(map[string]struct{}, len(m.security.Logging.SkipPaths))
	for _, p := range m.security.Logging.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if !m.security.Logging.EnableRequestLog {
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			return
		}

		requestID := c.GetHeader(RequestIDHeader)
		logger.LogAccessRequest(c, start, requestID)

		// 慢请求单独告警
		if threshold := m.security.Logging.SlowRequestThreshold; threshold > 0 && time.Since(start) > threshold {
			logger.LogSystemEvent("http", "slow_request", c.Request.URL.Path, logrus.WarnLevel, map[string]interface{}{
				"method":      c.Request.Method,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  requestID,
			})
		}
	}
}

// GinCORSMiddleware CORS中间件
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	cors := m.security.CORS
	return func(c *gin.Context) {
		if !cors.Enabled {
			c.Next()
			return
		}

		origin := "*"
		if !cors.AllowAllOrigins && len(cors.AllowOrigins) > 0 {
			origin = strings.Join(cors.AllowOrigins, ", ")
		}
		c.Header("Access-Control-Allow-Origin", origin)
		if len(cors.AllowMethods) > 0 {
			c.Header("Access-Control-Allow-Methods", strings.Join(cors.AllowMethods, ", "))
		} else {
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		}
		if len(cors.AllowHeaders) > 0 {
			c.Header("Access-Control-Allow-Headers", strings.Join(cors.AllowHeaders, ", "))
		} else {
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, X-Request-ID")
		}
		if cors.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		if cors.MaxAge > 0 {
			c.Header("Access-Control-Max-Age", fmt.Sprintf("%d", int(cors.MaxAge.Seconds())))
		}

		// 处理预检请求
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// GinSecurityHeadersMiddleware 安全头中间件
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// GinAPIKeyMiddleware API密钥认证中间件
// 密钥未配置时放行，配置的跳过路径（健康检查等）不校验
func (m *MiddlewareManager) GinAPIKeyMiddleware() gin.HandlerFunc {
	auth := m.security.Auth
	skip := make(map[string]struct{}, len(auth.SkipPaths))
	for _, p := range auth.SkipPaths {
		skip[p] = struct{}{}
	}
	header := auth.APIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}

	return func(c *gin.Context) {
		if auth.APIKey == "" {
			c.Next()
			return
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		if c.GetHeader(header) != auth.APIKey {
			c.JSON(http.StatusUnauthorized, alertModel.APIResponse{
				Code:    http.StatusUnauthorized,
				Status:  "failed",
				Message: "invalid or missing api key",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GinRecoveryMiddleware 恐慌恢复中间件
// 单个请求的恐慌不拖垮进程，记录错误日志后返回500
func (m *MiddlewareManager) GinRecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID := c.GetHeader(RequestIDHeader)
				logger.LogError(fmt.Errorf("panic recovered: %v", r), requestID, c.ClientIP(), c.Request.URL.Path, c.Request.Method, map[string]interface{}{
					"operation": "panic_recovery",
				})
				c.AbortWithStatusJSON(http.StatusInternalServerError, alertModel.APIResponse{
					Code:    http.StatusInternalServerError,
					Status:  "failed",
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}
