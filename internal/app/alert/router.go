/*
 * 路由:告警服务路由管理
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 装配仓储、聚合服务与处理器，注册全部HTTP路由
 * @func:
 * 1.NewRouter 创建路由管理器
 * 2.SetupRoutes 注册路由
 */
package alert

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"neoalert/internal/config"
	alertHandler "neoalert/internal/handler/alert"
	"neoalert/internal/pkg/logger"
	mysqlAlert "neoalert/internal/repo/mysql/alert"
	redisAlert "neoalert/internal/repo/redis/alert"
	"neoalert/internal/service/correlation"
)

// Router 路由管理器
type Router struct {
	engine            *gin.Engine
	middlewareManager *MiddlewareManager
	ruleHandler       *alertHandler.RuleHandler
	eventHandler      *alertHandler.EventHandler
	engineHandler     *alertHandler.EngineHandler
	alertsHandler     *alertHandler.AlertHandler
	service           *correlation.Service
	db                *gorm.DB
	redisClient       *redis.Client
}

// NewRouter 创建路由管理器实例
func NewRouter(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *Router {
	// 初始化仓储层(纯数据访问)
	eventRepo := mysqlAlert.NewEventRepository(db)
	alertRepo := mysqlAlert.NewAlertRepository(db)
	ruleRepo := mysqlAlert.NewRuleRepository(db)
	operatorLogRepo := mysqlAlert.NewOperatorLogRepository(db)
	ruleCache := redisAlert.NewRuleCacheRepository(redisClient, cfg.Alert.RuleCache.KeyPrefix, cfg.Alert.RuleCache.TTL)

	// 初始化聚合核心(规则注册表、处理流水线、自动关闭扫描、调度器)
	engineWindow, err := correlation.ParseDuration(cfg.Alert.Engine.WindowSize)
	if err != nil {
		// 配置加载时已校验过格式，这里兜底取缺省值
		engineWindow = 10 * time.Minute
	}
	manager := correlation.NewRuleManager(ruleRepo, ruleCache, engineWindow)
	processor := correlation.NewAlertProcessor(eventRepo, alertRepo)
	sweeper := correlation.NewAutoCloseSweeper(alertRepo, ruleRepo, operatorLogRepo)
	scheduler := correlation.NewSmartScheduler(cfg.Alert.Scheduler.AlwaysRun)
	service := correlation.NewService(manager, processor, sweeper, scheduler)

	// 初始化中间件管理器
	middlewareManager := NewMiddlewareManager(&cfg.Security)

	// 初始化处理器(控制器是服务集合,先初始化服务,然后服务装填成控制器)
	ruleHandler := alertHandler.NewRuleHandler(manager, ruleRepo)
	eventHandler := alertHandler.NewEventHandler(eventRepo)
	engineHandler := alertHandler.NewEngineHandler(service)
	alertsHandler := alertHandler.NewAlertHandler(alertRepo)

	// 创建Gin引擎
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	return &Router{
		engine:            engine,
		middlewareManager: middlewareManager,
		ruleHandler:       ruleHandler,
		eventHandler:      eventHandler,
		engineHandler:     engineHandler,
		alertsHandler:     alertsHandler,
		service:           service,
		db:                db,
		redisClient:       redisClient,
	}
}

// SetupRoutes 设置路由
func (r *Router) SetupRoutes() {
	// 设置全局中间件
	r.engine.Use(r.middlewareManager.GinRecoveryMiddleware())
	r.engine.Use(r.middlewareManager.GinRequestIDMiddleware())
	r.engine.Use(r.middlewareManager.GinCORSMiddleware())
	r.engine.Use(r.middlewareManager.GinSecurityHeadersMiddleware())
	r.engine.Use(r.middlewareManager.GinLoggingMiddleware())

	// API版本路由组
	// /api/v1
	api := r.engine.Group("/api")
	v1 := api.Group("/v1")
	v1.Use(r.middlewareManager.GinAPIKeyMiddleware())

	// 规则管理路由
	r.setupRuleRoutes(v1)

	// 事件摄入路由
	r.setupEventRoutes(v1)

	// 告警查询路由
	r.setupAlertRoutes(v1)

	// 引擎运维路由
	r.setupEngineRoutes(v1)

	// 健康检查路由
	r.setupHealthRoutes(api)
}

// setupRuleRoutes 设置规则管理路由
func (r *Router) setupRuleRoutes(v1 *gin.RouterGroup) {
	rules := v1.Group("/rules")
	{
		rules.GET("/list", r.ruleHandler.ListRules)           // 获取规则列表
		rules.POST("/create", r.ruleHandler.CreateRule)       // 创建规则(写库并同步注册表)
		rules.POST("/validate", r.ruleHandler.ValidateRule)   // 仅校验规则配置
		rules.POST("/reload", r.ruleHandler.ReloadRules)      // 从存储重载全部规则
		rules.GET("/statistics", r.ruleHandler.GetStatistics) // 规则统计
		rules.GET("/:name", r.ruleHandler.GetRule)            // 获取规则详情
		rules.POST("/:name", r.ruleHandler.UpdateRule)        // 更新规则
		rules.DELETE("/:name", r.ruleHandler.DeleteRule)      // 删除规则(软删除)
	}
}

// setupEventRoutes 设置事件摄入路由
func (r *Router) setupEventRoutes(v1 *gin.RouterGroup) {
	events := v1.Group("/events")
	{
		events.POST("/ingest", r.eventHandler.IngestEvents) // 批量写入原始事件
	}
}

// setupAlertRoutes 设置告警查询路由
func (r *Router) setupAlertRoutes(v1 *gin.RouterGroup) {
	alerts := v1.Group("/alerts")
	{
		alerts.GET("/:alert_id", r.alertsHandler.GetAlert) // 获取告警详情(含关联事件)
	}
}

// setupEngineRoutes 设置引擎运维路由
func (r *Router) setupEngineRoutes(v1 *gin.RouterGroup) {
	engine := v1.Group("/engine")
	{
		engine.POST("/tick", r.engineHandler.TriggerTick)   // 手动触发一轮聚合处理
		engine.POST("/sweep", r.engineHandler.TriggerSweep) // 手动触发一轮自动关闭扫描
	}
}

// setupHealthRoutes 设置健康检查路由
func (r *Router) setupHealthRoutes(api *gin.RouterGroup) {
	// 健康检查
	api.GET("/health", r.healthCheck)
	// 就绪检查
	api.GET("/ready", r.readinessCheck)
	// 存活检查
	api.GET("/live", r.livenessCheck)
}

// GetEngine 获取Gin引擎实例
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// GetService 获取聚合服务，供定时调度使用
func (r *Router) GetService() *correlation.Service {
	return r.service
}

// 健康检查处理器
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": logger.NowFormatted(),
	})
}

func (r *Router) readinessCheck(c *gin.Context) {
	// 依赖任一不可达则返回未就绪
	sqlDB, err := r.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"component": "mysql",
			"error":     err.Error(),
			"timestamp": logger.NowFormatted(),
		})
		return
	}

	if err := r.redisClient.Ping(c.Request.Context()).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "not_ready",
			"component": "redis",
			"error":     err.Error(),
			"timestamp": logger.NowFormatted(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": logger.NowFormatted(),
	})
}

func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": logger.NowFormatted(),
	})
}
