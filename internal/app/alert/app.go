/*
 * 应用:告警服务应用装配
 * @author: Sun977
 * @date: 2025.11.03
 * @description: 加载配置、初始化日志与存储连接、装配路由并注册定时节拍
 * @func:
 * 1.NewApp 创建应用实例
 * 2.Start 启动定时调度
 * 3.Stop 优雅停止
 */
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"neoalert/internal/config"
	"neoalert/internal/pkg/database"
	"neoalert/internal/pkg/logger"
)

// App 应用程序结构体
type App struct {
	config      *config.Config
	router      *Router
	db          *gorm.DB
	redisClient *redis.Client
	cron        *cron.Cron
}

// NewApp 创建新的应用程序实例
func NewApp() (*App, error) {
	// 加载配置(路径与环境由 NEOALERT_CONFIG_PATH / NEOALERT_ENV 控制)
	cfg, err := config.LoadConfig("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 初始化日志
	if _, err := logger.InitLogger(&cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	// 初始化MySQL连接
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect mysql: %w", err)
	}

	// 初始化Redis连接
	redisClient, err := database.NewRedisConnection(&cfg.Database.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to connect redis: %w", err)
	}

	// 装配路由与聚合核心
	router := NewRouter(db, redisClient, cfg)
	router.SetupRoutes()

	app := &App{
		config:      cfg,
		router:      router,
		db:          db,
		redisClient: redisClient,
		cron:        cron.New(),
	}

	// 注册定时节拍:聚合处理与自动关闭扫描
	if err := app.registerCronJobs(); err != nil {
		return nil, err
	}

	return app, nil
}

// 定时任务单轮执行的超时上限
const (
	aggregationTickTimeout = 5 * time.Minute
	autoCloseSweepTimeout  = 2 * time.Minute
)

// registerCronJobs 注册聚合处理与自动关闭扫描的定时任务
func (a *App) registerCronJobs() error {
	svc := a.router.GetService()

	if _, err := a.cron.AddFunc(a.config.Alert.Scheduler.AggregationCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), aggregationTickTimeout)
		defer cancel()
		if err := svc.RunAggregationTick(ctx, time.Now()); err != nil {
			logger.LogSystemEvent("scheduler", "aggregation_tick", err.Error(), logrus.ErrorLevel, nil)
		}
	}); err != nil {
		return fmt.Errorf("invalid aggregation cron spec %q: %w", a.config.Alert.Scheduler.AggregationCron, err)
	}

	if _, err := a.cron.AddFunc(a.config.Alert.Scheduler.AutoCloseCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), autoCloseSweepTimeout)
		defer cancel()
		if err := svc.RunAutoCloseSweep(ctx, time.Now()); err != nil {
			logger.LogSystemEvent("scheduler", "auto_close_sweep", err.Error(), logrus.ErrorLevel, nil)
		}
	}); err != nil {
		return fmt.Errorf("invalid auto close cron spec %q: %w", a.config.Alert.Scheduler.AutoCloseCron, err)
	}

	return nil
}

// GetConfig 获取配置实例
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *Router {
	return a.router
}

// Start 启动应用程序
// 从存储加载规则后启动定时调度
func (a *App) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.router.GetService().Manager().Reload(ctx); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	// 启动配置文件监听，变更后执行注册的回调
	if err := config.StartConfigWatcher("", ""); err != nil {
		logger.LogSystemEvent("app", "startup", err.Error(), logrus.WarnLevel, map[string]interface{}{"component": "config_watcher"})
	} else {
		_ = config.AddConfigReloadCallback(config.LogConfigReloadCallback)
		_ = config.AddConfigReloadCallback(config.AlertConfigReloadCallback)
	}

	a.cron.Start()
	logger.LogSystemEvent("app", "startup", "application started", logrus.InfoLevel, map[string]interface{}{
		"aggregation_cron": a.config.Alert.Scheduler.AggregationCron,
		"auto_close_cron":  a.config.Alert.Scheduler.AutoCloseCron,
	})
	return nil
}

// Stop 停止应用程序
// 等待运行中的定时任务结束后关闭存储连接
func (a *App) Stop() error {
	<-a.cron.Stop().Done()

	if err := config.StopConfigWatcher(); err != nil {
		logger.LogSystemEvent("app", "shutdown", err.Error(), logrus.WarnLevel, map[string]interface{}{"component": "config_watcher"})
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logger.LogSystemEvent("app", "shutdown", err.Error(), logrus.WarnLevel, map[string]interface{}{"component": "redis"})
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.LogSystemEvent("app", "shutdown", err.Error(), logrus.WarnLevel, map[string]interface{}{"component": "mysql"})
			}
		}
	}

	logger.LogSystemEvent("app", "shutdown", "application stopped", logrus.InfoLevel, nil)
	return nil
}
