package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/pieshop-backend/internal/admins"
	"github.com/angelmondragon/pieshop-backend/pkg/config"
	"github.com/angelmondragon/pieshop-backend/pkg/db"
	"github.com/angelmondragon/pieshop-backend/pkg/logger"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "admin"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "admin",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := admins.NewService(admins.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create admins service", err)
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], svc, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
