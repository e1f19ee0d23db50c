package db

import (
	"fmt"
	"log/slog"
	"strings"

	"carelink/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Init 连接数据库并迁移本地状态表，结果同时保存在 DB 全局变量中
func Init(dsn string) (*gorm.DB, error) {
	conn, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	DB = conn
	slog.Info("Database connection established", "driver", conn.Dialector.Name())
	return conn, nil
}

// Open picks the driver from the DSN: postgres URLs / key=value DSNs go to
// postgres, anything else is a sqlite path (":memory:" works for tests).
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "carelink.db"
	}

	var dialector gorm.Dialector
	if isPostgres(dsn) {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if dialector.Name() == "sqlite" && strings.Contains(dsn, ":memory:") {
		// 内存库每个连接都是独立的库
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	// Auto Migrate
	if err := conn.AutoMigrate(
		&models.StoredValue{},
		&models.RecentEntry{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return conn, nil
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}
