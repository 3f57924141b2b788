package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"tickwatch/internal/config"
	"tickwatch/internal/database"
	"tickwatch/internal/interrupt"
	"tickwatch/internal/logger"
)

func usage() {
	fmt.Println("Использование: status_manager <команда> [аргументы]")
	fmt.Println("Команды:")
	fmt.Println("  pause  - приостановить отслеживание")
	fmt.Println("  resume - продолжить отслеживание")
	fmt.Println("  stop   - остановить tickwatch")
	fmt.Println("  show   - показать текущий статус и последние действия")
	fmt.Println("Путь к конфигурации можно задать переменной TICKWATCH_CONFIG")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	c, _, err := config.InitConfig(os.Getenv("TICKWATCH_CONFIG"))
	if err != nil && !errors.Is(err, config.ErrConfigMissing) {
		log.Fatalf("Ошибка чтения конфигурации: %v", err)
	}
	if c.Database.DSN == "" {
		log.Fatal("Ошибка: database.dsn не задан в конфигурации")
	}

	dbManager, err := database.Open(c.Database, logger.NewNopLoggerManager())
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}
	defer dbManager.Close()

	command := os.Args[1]
	switch command {
	case "pause", "resume", "stop":
		if _, ok := interrupt.ParseAction(command); !ok {
			log.Fatalf("Действие %s не поддерживается", command)
		}
		if err := dbManager.AddAction(command); err != nil {
			log.Fatalf("Ошибка добавления действия: %v", err)
		}
		fmt.Printf("Действие добавлено: %s\n", command)

	case "show":
		status, actions, err := dbManager.GetStatusAndActions(10)
		if err != nil {
			log.Fatalf("Ошибка получения данных: %v", err)
		}
		if status.ID == 0 {
			fmt.Println("Статус ещё не записан")
		} else {
			fmt.Printf("Текущий статус: %s (обновлен: %s)\n", status.CurrentStatus, status.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println("Последние действия:")
		for _, action := range actions {
			mark := " "
			if action.Executed {
				mark = "✓"
			}
			fmt.Printf("  %s %s (%s)\n", mark, action.Action, action.CreatedAt.Format("2006-01-02 15:04:05"))
		}

	default:
		fmt.Printf("Неизвестная команда: %s\n", command)
		usage()
	}
}
