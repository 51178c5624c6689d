package dependencies

import (
	"fmt"
	"time"

	"github.com/Xushengqwer/go-common/core"
	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/models/entities"
)

const (
	defaultMySQLRetries       = 5
	defaultMySQLRetryInterval = 2 * time.Second
	defaultConnMaxLifetime    = time.Hour
)

// profileTables 资料服务持有的全部表：用户、Google 身份与资料文档
var profileTables = []interface{}{
	&entities.User{},
	&entities.UserIdentity{},
	&entities.UserProfile{},
}

// InitMySQL 连接资料库、配置连接池并迁移资料相关的表。
func InitMySQL(cfg *config.KathHubConfig, logger *core.ZapLogger) (*gorm.DB, error) {
	mc := withMySQLDefaults(cfg.MySQLConfig)
	if mc.DSN == "" {
		logger.Error("未配置 MySQL DSN")
		return nil, fmt.Errorf("mySQLConfig.dsn 为空")
	}
	dsnPreview := previewDSN(mc.DSN)

	gormConfig := &gorm.Config{Logger: core.NewGormLogger(logger, cfg.GormLogConfig)}

	db, err := openWithRetry(mc, gormConfig, logger, dsnPreview)
	if err != nil {
		logger.Error("连接 MySQL 失败", zap.String("dsn_preview", dsnPreview), zap.Error(err))
		return nil, fmt.Errorf("连接 MySQL 失败 (DSN: %s): %w", dsnPreview, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(mc.MaxIdleConn)
	sqlDB.SetMaxOpenConns(mc.MaxOpenConn)
	sqlDB.SetConnMaxLifetime(mc.ConnMaxLifetime)

	if err := db.AutoMigrate(profileTables...); err != nil {
		logger.Error("迁移资料表失败", zap.Error(err))
		return nil, fmt.Errorf("迁移资料表失败: %w", err)
	}

	logger.Info("MySQL 已就绪",
		zap.String("dsn_preview", dsnPreview),
		zap.Int("tables", len(profileTables)),
	)
	return db, nil
}

// openWithRetry 打开连接并 Ping，失败时按配置的间隔重试，最后一次失败不再等待。
func openWithRetry(mc config.MySQLConfig, gormConfig *gorm.Config, logger *core.ZapLogger, dsnPreview string) (*gorm.DB, error) {
	var lastErr error
	for attempt := 1; attempt <= mc.ConnectRetries; attempt++ {
		db, err := gorm.Open(mysql.Open(mc.DSN), gormConfig)
		if err == nil {
			err = ping(db)
		}
		if err == nil {
			return db, nil
		}
		lastErr = err
		logger.Warn("MySQL 连接失败",
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", mc.ConnectRetries),
			zap.String("dsn_preview", dsnPreview),
			zap.Error(err),
		)
		if attempt < mc.ConnectRetries {
			time.Sleep(mc.RetryInterval)
		}
	}
	return nil, lastErr
}

func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func withMySQLDefaults(mc config.MySQLConfig) config.MySQLConfig {
	if mc.ConnectRetries <= 0 {
		mc.ConnectRetries = defaultMySQLRetries
	}
	if mc.RetryInterval <= 0 {
		mc.RetryInterval = defaultMySQLRetryInterval
	}
	if mc.ConnMaxLifetime <= 0 {
		mc.ConnMaxLifetime = defaultConnMaxLifetime
	}
	return mc
}

// previewDSN 用驱动解析 DSN 后把密码替换为 ****，解析失败时不输出原文。
func previewDSN(dsn string) string {
	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "<invalid dsn>"
	}
	if parsed.Passwd != "" {
		parsed.Passwd = "****"
	}
	return parsed.FormatDSN()
}
