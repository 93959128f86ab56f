package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"projecthub/internal/app"
	"projecthub/internal/core/config"
	"projecthub/internal/core/database"
	"projecthub/internal/repo"
)

func main() {
	def := app.DefaultSeed()
	reset := flag.Bool("reset", false, "delete all users and projects before seeding")
	adminEmail := flag.String("admin-email", def.Admin.Email, "admin account email")
	adminPass := flag.String("admin-password", def.Admin.Password, "admin account password")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := app.NewLogger(cfg)
	defer cleanup()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	opt := def
	opt.Reset = *reset
	opt.Admin.Email = *adminEmail
	opt.Admin.Password = *adminPass

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := app.Seed(ctx, db, opt, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
	log.Info("seed completed",
		zap.String("admin", opt.Admin.Email),
		zap.String("demo", opt.Demo.Email),
	)
}
