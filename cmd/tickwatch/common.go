package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickwatch/internal/analyzer"
	"tickwatch/internal/classifier"
	"tickwatch/internal/config"
	"tickwatch/internal/database"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/recorder"
	"tickwatch/internal/screenshot"
)

// signalContext отменяется по Ctrl+C или SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// resolveCaptureRegion ищет окно игры и переводит область индикатора в
// координаты экрана. При неудаче используется область из конфигурации.
func resolveCaptureRegion(c config.Capture, log *logger.LoggerManager) config.CoordinatesWithSize {
	if !c.FindWindow {
		return c.Region
	}
	full, err := screenshot.CaptureFullScreen(c.ScreenWidth, c.ScreenHeight)
	if err != nil {
		log.LogError(err, "Ошибка захвата экрана для поиска окна")
		return c.Region
	}
	region, err := screenshot.ResolveRegion(full, c.Region, c.WindowTopOffset)
	if err != nil {
		log.Warn("⚠️ %v, используем область из конфигурации", err)
		return c.Region
	}
	log.Info("🪟 Окно игры найдено, индикатор: (%d, %d) %dx%d", region.X, region.Y, region.Width, region.Height)
	return region
}

// openDatabase подключается к базе, если она включена. Ошибка подключения
// не фатальна: работа продолжается без зеркалирования.
func openDatabase(c config.Database, log *logger.LoggerManager) *database.DatabaseManager {
	if !c.SaveToDB {
		return nil
	}
	db, err := database.Open(c, log)
	if err != nil {
		log.LogError(err, "Ошибка подключения к базе данных, продолжаем без неё")
		return nil
	}
	if err := db.EnsureSchema(); err != nil {
		log.LogError(err, "Ошибка создания схемы, продолжаем без базы")
		_ = db.Close()
		return nil
	}
	log.Info("✅ Успешное подключение к базе данных")
	return db
}

// clickOffset: задержка клика после объявления фазы. Если в конфигурации
// задан 0, берется рекомендация анализатора по логу замеров.
func clickOffset(c config.Config, log *logger.LoggerManager) time.Duration {
	if c.Arduino.ClickOffsetMs > 0 {
		return time.Duration(c.Arduino.ClickOffsetMs) * time.Millisecond
	}

	samples, err := recorder.ReadSamples(c.Recorder.LogPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.LogError(err, "Ошибка чтения лога замеров")
		}
		return 0
	}
	report, err := analyzer.Analyze(samples, phase.Phase(c.Arduino.TargetPhase), c.Analyzer.MarginMs)
	if err != nil || report.RecommendedOffsetMs == nil {
		log.Warn("⚠️ Нет замеров для фазы %d, клик без сдвига", c.Arduino.TargetPhase)
		return 0
	}
	log.Info("🎯 Сдвиг клика по логу замеров: %.0f мс", *report.RecommendedOffsetMs)
	return time.Duration(*report.RecommendedOffsetMs * float64(time.Millisecond))
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// newClassifier загружает эталоны и при необходимости добавляет кэш кадров.
// minConfidence: текущий порог уверенности, ниже него результат не кэшируется.
// Возвращаемую функцию нужно вызвать для освобождения эталонов.
func newClassifier(c config.Classifier, minConfidence func() float64, log *logger.LoggerManager) (classifier.Classifier, func(), error) {
	templates, err := classifier.NewTemplateClassifier(c, log)
	if err != nil {
		return nil, nil, err
	}
	if !c.CacheFrames {
		return templates, templates.Close, nil
	}
	cached := classifier.NewCached(templates, c.FrameTolerance, minConfidence)
	return cached, func() {
		log.Debug("🔢 Кадров из кэша: %d", cached.Hits())
		templates.Close()
	}, nil
}
