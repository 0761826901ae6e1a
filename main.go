package main

import (
	"flag"
	"log"

	"github.com/EgorMarkor/BotOpros/internal/app"
	"github.com/EgorMarkor/BotOpros/internal/config"
	"github.com/EgorMarkor/BotOpros/pkg/logger"
)

func main() {
	// Флаги командной строки
	migrateOnly := flag.Bool("migrate-only", false, "выполнить миграцию базы и выйти")
	migrate := flag.Bool("migrate", false, "принудительно выполнить миграцию при старте")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Миграция базы завершена, выходим")
		return
	}

	application.Run()
}
