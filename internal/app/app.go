// Package app 进程级装配：日志、数据库、缓存、服务与路由注册表
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"projecthub/internal/core/auth"
	"projecthub/internal/core/cache"
	"projecthub/internal/core/config"
	"projecthub/internal/core/database"
	"projecthub/internal/core/logger"
	"projecthub/internal/repo"
	"projecthub/internal/service"
	"projecthub/internal/transport/http/handler"
	mdw "projecthub/internal/transport/http/middleware"
	"projecthub/internal/transport/http/router"
)

type App struct {
	Cfg      *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache
	Users    *service.UserService
	Projects *service.ProjectService
	Deps     router.Deps

	closers []func()
}

// NewLogger 按配置决定是否写文件切割
func NewLogger(cfg *config.Config) (*zap.Logger, func()) {
	opt := logger.Options{
		Level:       cfg.Log.Level,
		JSON:        cfg.Log.JSON,
		AddCaller:   true,
		Development: !cfg.Log.JSON,
		Fields:      []zap.Field{zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)},
	}
	if f := cfg.Log.File; f.Enable {
		opt.Rotate = logger.FileRotate{
			Enable:     true,
			Filename:   f.Filename,
			MaxSizeMB:  f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAgeDays: f.MaxAgeDays,
			Compress:   f.Compress,
		}
	}
	return logger.NewWithOptions(opt)
}

// New 打开外部依赖并装配服务；失败时已打开的资源会被关闭
func New(cfg *config.Config, l *zap.Logger) (_ *App, err error) {
	a := &App{Cfg: cfg, Log: l}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	gin.DefaultWriter = logger.ToWriter(l, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(l, zapcore.ErrorLevel)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	stdLog, err := logger.ToStdLogger(l.Named("gorm"), zapcore.WarnLevel)
	if err != nil {
		return nil, fmt.Errorf("gorm logger: %w", err)
	}
	a.DB, err = database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Writer:             stdLog,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	a.closers = append(a.closers, func() { _ = database.Close(a.DB) })
	l.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.AutoMigrate(a.DB); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		l.Info("automigrate done")
	}

	// redis 可选，连不上只告警，统计接口直接查库
	a.Cache = cache.New(cfg.Redis)
	if a.Cache.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.Cache.Ping(ctx); err != nil {
			l.Warn("redis unavailable, stats cache disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			_ = a.Cache.Close()
			a.Cache = nil
		} else {
			c := a.Cache
			a.closers = append(a.closers, func() { _ = c.Close() })
			l.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
		}
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}
	users := repo.NewUserRepo(a.DB)
	projects := repo.NewProjectRepo(a.DB)
	statsTTL := time.Duration(cfg.Cache.StatsTTLSec) * time.Second
	a.Users = service.NewUserService(users, jwter, l).WithStatsCache(a.Cache, statsTTL)
	a.Projects = service.NewProjectService(projects, users, l).WithStatsCache(a.Cache, statsTTL)

	a.Deps = router.Deps{
		Log:   l,
		Auth:  mdw.NewAuth(auth.NewResolver(jwter, users), l),
		Limit: cfg.Limit,
		Registry: router.NewRegistry(
			handler.NewAuthHandler(a.Users),
			handler.NewUserHandler(a.Users),
			handler.NewProjectHandler(a.Projects),
		),
		Health: func() error { return database.Ping(a.DB) },
	}
	return a, nil
}

// Close 逆序释放
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
