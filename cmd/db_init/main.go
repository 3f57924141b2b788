package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"tickwatch/internal/config"
	"tickwatch/internal/database"
	"tickwatch/internal/logger"
)

func main() {
	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	c, _, err := config.InitConfig(configPath)
	if err != nil && !errors.Is(err, config.ErrConfigMissing) {
		log.Fatalf("Ошибка чтения конфигурации: %v", err)
	}
	if c.Database.DSN == "" {
		log.Fatal("Ошибка: database.dsn не задан в конфигурации")
	}

	loggerManager, err := logger.NewLoggerManager(c.LogFilePath, logger.LogLevel(c.LogLevel))
	if err != nil {
		log.Fatalf("Ошибка инициализации логгера: %v", err)
	}
	defer loggerManager.Close()

	dbManager, err := database.Open(c.Database, loggerManager)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer dbManager.Close()

	if err := dbManager.EnsureSchema(); err != nil {
		log.Fatalf("Ошибка создания таблиц: %v", err)
	}
	if err := dbManager.UpdateStatus(database.StatusStopped); err != nil {
		log.Fatalf("Ошибка записи начального статуса: %v", err)
	}

	fmt.Println("Таблицы status, actions, tick_announcements, timing_samples готовы")
	fmt.Println("Инициализация базы завершена!")
}
