package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ficha-attendance/backend/config"
	"ficha-attendance/backend/internal/repository"
	"ficha-attendance/backend/internal/service"
	"ficha-attendance/backend/pkg/clock"
	"ficha-attendance/backend/pkg/database"
	applogger "ficha-attendance/backend/pkg/logger"
	"ficha-attendance/backend/pkg/metrics"
)

// app 一次命令执行所需的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
	svc    *service.Service
}

func loadConfig(opts *RootOptions) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log, "attendctl")
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openDB 只连库，不装配服务（migrate 使用）
func openDB(opts *RootOptions) (*app, error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db, sqlDB: sqlDB}, nil
}

// openApp 连库并装配全部服务
func openApp(opts *RootOptions) (*app, error) {
	a, err := openDB(opts)
	if err != nil {
		return nil, err
	}
	svc, err := service.NewService(a.cfg, repository.NewRepository(a.db), clock.System{}, metrics.New(), a.logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

// Close 释放连接并刷新日志
func (a *app) Close() {
	if a.sqlDB != nil {
		a.sqlDB.Close()
	}
	_ = a.logger.Sync()
}

// printResult 按 --format 输出结果
func printResult(w io.Writer, format string, v interface{}, text string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
