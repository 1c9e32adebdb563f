package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"todo-app/internal/db"
)

// migrate aplica (up, por defecto) o revierte (down) las migraciones embebidas.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	flag.Parse()
	direction := "up"
	if flag.NArg() > 0 {
		direction = flag.Arg(0)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	switch direction {
	case "up":
		if err := db.MigrateUp(databaseURL); err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
	case "down":
		if err := db.MigrateDown(databaseURL); err != nil {
			logger.Fatal("migrate down", zap.Error(err))
		}
	default:
		logger.Fatal("unknown direction, use up or down", zap.String("direction", direction))
	}
	logger.Info("migrations done", zap.String("direction", direction))
}
