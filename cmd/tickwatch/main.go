package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
)

var (
	// Глобальные флаги
	configPath string
	logLevel   string

	cfg           config.Config
	v             *viper.Viper
	loggerManager *logger.LoggerManager
)

var rootCmd = &cobra.Command{
	Use:   "tickwatch",
	Short: "Отслеживание фаз игрового тика по индикатору на экране",
	Long: `tickwatch опрашивает индикатор фазы тика (цифры 1-4), превращает шумные
показания классификатора в строго последовательный поток фаз и оценивает
длительность тика.

  watch   : отслеживать фазы, при необходимости кликать через Arduino
  record  : записывать задержку между сменой цифры и кликом мыши
  analyze : посчитать статистику по логу замеров и рекомендуемый сдвиг
  snapshot: сохранить кадр индикатора, например как эталон цифры`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		var missing error
		cfg, v, err = config.InitConfig(configPath)
		if errors.Is(err, config.ErrConfigMissing) {
			missing = err
		} else if err != nil {
			return err
		}

		level := logger.LogLevel(cfg.LogLevel)
		if logLevel != "" {
			level = logger.LogLevel(logLevel)
		}
		loggerManager, err = logger.NewLoggerManager(cfg.LogFilePath, level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if missing != nil {
			loggerManager.Warn("⚠️ %v, используются значения по умолчанию", missing)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if loggerManager != nil {
			_ = loggerManager.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "путь к config.yaml (по умолчанию ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логирования: DEBUG, INFO, WARN, ERROR")

	rootCmd.AddCommand(watchCmd, recordCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
