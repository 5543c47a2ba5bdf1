/*
*
  - 数据库迁移工具
  - @author: Sun977
  - @date: 2025.11.03
  - @description: 告警模块数据库迁移和测试数据初始化工具
  - @usage: go run main.go -env=test -seed=true -drop=true
    -drop
    是否先删除表（危险操作）
    -env string
    环境标识 (test, dev, prod) (default "test")
    -seed
    是否填充测试数据 (default true)
    -verbose
    是否显示详细日志

示例:
main.exe -env=test -seed=true    # 测试环境迁移并填充数据
main.exe -env=prod -seed=false   # 生产环境仅迁移表结构
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"neoalert/internal/config"
	"neoalert/internal/model/alert"
	"neoalert/internal/pkg/database"
	"neoalert/internal/pkg/logger"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MigrateOptions 迁移选项配置
type MigrateOptions struct {
	Environment string // 环境标识: test, dev, prod
	SeedData    bool   // 是否填充测试数据
	DropFirst   bool   // 是否先删除表（危险操作）
	Verbose     bool   // 是否显示详细日志
}

// DataSeeder 测试数据填充器
type DataSeeder struct {
	db  *gorm.DB
	env string
	log *logger.LoggerManager
}

func main() {
	// 解析命令行参数
	opts := parseFlags()

	// 加载配置
	cfg, err := config.LoadConfig("", opts.Environment)
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	// 初始化日志管理器
	logManager, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("日志初始化失败: %v", err)
	}

	logManager.GetLogger().WithFields(logrus.Fields{
		"path":        "cmd/migrate/main.go",
		"operation":   "database_migration",
		"option":      "migrate.start",
		"func_name":   "main",
		"environment": opts.Environment,
		"seed_data":   opts.SeedData,
		"drop_first":  opts.DropFirst,
	}).Info("开始数据库迁移")

	// 初始化数据库连接
	db, err := database.NewMySQLConnection(&cfg.Database.MySQL)
	if err != nil {
		logManager.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "database_connection",
			"option":    "database.NewMySQLConnection",
			"func_name": "main",
			"error":     err.Error(),
		}).Fatal("数据库连接失败")
	}

	// 执行迁移
	if err := performMigration(db, opts, logManager); err != nil {
		logManager.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "database_migration",
			"option":    "performMigration",
			"func_name": "main",
			"error":     err.Error(),
		}).Fatal("数据库迁移失败")
	}

	logManager.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "database_migration",
		"option":    "migrate.complete",
		"func_name": "main",
	}).Info("数据库迁移完成")
}

// parseFlags 解析命令行参数
func parseFlags() *MigrateOptions {
	opts := &MigrateOptions{}

	flag.StringVar(&opts.Environment, "env", "test", "环境标识 (test, dev, prod)")
	flag.BoolVar(&opts.SeedData, "seed", true, "是否填充测试数据")
	flag.BoolVar(&opts.DropFirst, "drop", false, "是否先删除表（危险操作）")
	flag.BoolVar(&opts.Verbose, "verbose", false, "是否显示详细日志")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "NeoAlert 数据库迁移工具\n\n")
		fmt.Fprintf(os.Stderr, "用法: %s [选项]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "选项:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n示例:\n")
		fmt.Fprintf(os.Stderr, "  %s -env=test -seed=true    # 测试环境迁移并填充数据\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -env=prod -seed=false   # 生产环境仅迁移表结构\n", os.Args[0])
	}

	flag.Parse()
	return opts
}

// performMigration 执行数据库迁移
func performMigration(db *gorm.DB, opts *MigrateOptions, logManager *logger.LoggerManager) error {
	// 1. 删除表（如果指定）
	if opts.DropFirst {
		if err := dropTables(db, logManager); err != nil {
			return fmt.Errorf("删除表失败: %w", err)
		}
	}

	// 2. 执行模型迁移
	if err := migrateModels(db, logManager); err != nil {
		return fmt.Errorf("模型迁移失败: %w", err)
	}

	// 3. 填充测试数据（如果指定）
	if opts.SeedData {
		seeder := NewDataSeeder(db, opts.Environment, logManager)
		if err := seeder.SeedAll(); err != nil {
			return fmt.Errorf("数据填充失败: %w", err)
		}
	}

	return nil
}

// dropTables 删除所有表
// 危险操作，仅用于开发环境重置
func dropTables(db *gorm.DB, logManager *logger.LoggerManager) error {
	logManager.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "drop_tables",
		"option":    "dropTables",
		"func_name": "dropTables",
	}).Warn("开始删除数据库表")

	// 关联表先删除，主表后删除
	if err := db.Migrator().DropTable("alert_event_relations"); err != nil {
		logManager.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "drop_table",
			"option":    "db.Migrator().DropTable",
			"func_name": "dropTables",
			"model":     "alert_event_relations",
			"error":     err.Error(),
		}).Error("删除表失败")
	}

	models := []interface{}{
		&alert.OperatorLog{},
		&alert.Alert{},
		&alert.AlertRule{},
		&alert.Event{},
	}

	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			logManager.GetLogger().WithFields(logrus.Fields{
				"path":      "cmd/migrate/main.go",
				"operation": "drop_table",
				"option":    "db.Migrator().DropTable",
				"func_name": "dropTables",
				"model":     fmt.Sprintf("%T", model),
				"error":     err.Error(),
			}).Error("删除表失败")
		}
	}

	return nil
}

// migrateModels 执行模型迁移
func migrateModels(db *gorm.DB, loggerMgr *logger.LoggerManager) error {
	loggerMgr.GetLogger().Info("开始执行模型迁移...")

	// 定义所有需要迁移的模型
	models := []interface{}{
		&alert.Event{},
		&alert.AlertRule{},
		&alert.Alert{}, // 关联表 alert_event_relations 随之创建
		&alert.OperatorLog{},
	}

	// 执行自动迁移
	for _, model := range models {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("迁移模型 %T 失败: %w", model, err)
		}
		loggerMgr.GetLogger().WithField("model", fmt.Sprintf("%T", model)).Info("模型迁移成功")
	}

	loggerMgr.GetLogger().Info("所有模型迁移完成")
	return nil
}

// NewDataSeeder 创建数据填充器
func NewDataSeeder(db *gorm.DB, env string, logManager *logger.LoggerManager) *DataSeeder {
	return &DataSeeder{
		db:  db,
		env: env,
		log: logManager,
	}
}

// SeedAll 填充所有测试数据
// 生产环境拒绝执行
func (s *DataSeeder) SeedAll() error {
	if s.env == "prod" {
		s.log.GetLogger().Warn("生产环境跳过测试数据填充")
		return nil
	}

	s.log.GetLogger().WithFields(logrus.Fields{
		"path":      "cmd/migrate/main.go",
		"operation": "seed_data",
		"option":    "SeedAll",
		"func_name": "DataSeeder.SeedAll",
		"env":       s.env,
	}).Info("开始填充测试数据")

	// 按依赖关系顺序填充数据
	seedFunctions := []struct {
		name string
		fn   func() error
	}{
		{"告警规则数据", s.seedRules},
		{"监控事件数据", s.seedEvents},
	}

	for _, seed := range seedFunctions {
		s.log.GetLogger().WithFields(logrus.Fields{
			"path":      "cmd/migrate/main.go",
			"operation": "seed_module",
			"option":    seed.name,
			"func_name": "DataSeeder.SeedAll",
		}).Info("填充数据模块")

		if err := seed.fn(); err != nil {
			return fmt.Errorf("填充%s失败: %w", seed.name, err)
		}
	}

	s.log.GetLogger().Info("测试数据填充完成")
	return nil
}

// seedRules 填充示例规则，覆盖三种窗口类型
func (s *DataSeeder) seedRules() error {
	rules := []alert.AlertRule{
		{
			Name:            "cpu_usage_high",
			Description:     "CPU使用率滑动窗口阈值告警",
			ConditionType:   alert.ConditionTypeThreshold,
			ConditionConfig: `{"field":"value","operator":">","threshold":90}`,
			Severity:        alert.EventLevelSeverity,
			IsActive:        true,
			WindowType:      alert.WindowTypeSliding,
			WindowSize:      "10min",
			CloseTime:       "30min",
		},
		{
			Name:            "disk_usage_sustained",
			Description:     "磁盘使用率固定窗口持续超限告警",
			ConditionType:   alert.ConditionTypeSustained,
			ConditionConfig: `{"field":"value","operator":">","threshold":85,"required_consecutive":3}`,
			Severity:        alert.EventLevelWarning,
			IsActive:        true,
			WindowType:      alert.WindowTypeFixed,
			WindowSize:      "5min",
			Alignment:       alert.AlignmentMinute,
		},
		{
			Name:             "login_failure_burst",
			Description:      "登录失败会话窗口告警",
			ConditionType:    alert.ConditionTypeThreshold,
			ConditionConfig:  `{"field":"value","operator":">=","threshold":5}`,
			Severity:         alert.EventLevelFatal,
			IsActive:         true,
			WindowType:       alert.WindowTypeSession,
			WindowSize:       "30min",
			SessionTimeout:   "5min",
			SessionKeyFields: `["resource_id","source_id"]`,
			CloseTime:        "1h",
		},
	}

	for _, rule := range rules {
		if err := s.db.Where("name = ?", rule.Name).FirstOrCreate(&rule).Error; err != nil {
			return fmt.Errorf("创建示例规则失败: %w", err)
		}
		s.log.GetLogger().WithField("rule", rule.Name).Info("示例规则创建成功")
	}

	s.log.GetLogger().Info("告警规则模块测试数据填充完成")
	return nil
}

// seedEvents 填充最近窗口内的示例事件
func (s *DataSeeder) seedEvents() error {
	now := time.Now()
	events := []alert.Event{
		{
			EventID:      "seed-evt-001",
			ReceivedAt:   now.Add(-8 * time.Minute),
			Item:         "cpu_usage",
			Value:        95.2,
			Status:       "firing",
			Level:        alert.EventLevelSeverity,
			ResourceType: "host",
			ResourceID:   "host-001",
			ResourceName: "web-server-01",
			SourceID:     "node-exporter",
		},
		{
			EventID:      "seed-evt-002",
			ReceivedAt:   now.Add(-5 * time.Minute),
			Item:         "cpu_usage",
			Value:        97.8,
			Status:       "firing",
			Level:        alert.EventLevelSeverity,
			ResourceType: "host",
			ResourceID:   "host-001",
			ResourceName: "web-server-01",
			SourceID:     "node-exporter",
		},
		{
			EventID:      "seed-evt-003",
			ReceivedAt:   now.Add(-3 * time.Minute),
			Item:         "disk_usage",
			Value:        88.1,
			Status:       "firing",
			Level:        alert.EventLevelWarning,
			ResourceType: "host",
			ResourceID:   "host-002",
			ResourceName: "db-server-01",
			SourceID:     "node-exporter",
		},
	}

	for _, event := range events {
		if err := s.db.Where("event_id = ?", event.EventID).FirstOrCreate(&event).Error; err != nil {
			return fmt.Errorf("创建示例事件失败: %w", err)
		}
	}

	s.log.GetLogger().WithField("event_count", len(events)).Info("监控事件模块测试数据填充完成")
	return nil
}
