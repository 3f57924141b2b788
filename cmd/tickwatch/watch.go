package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickwatch/internal/arduino"
	"tickwatch/internal/click_manager"
	"tickwatch/internal/config"
	"tickwatch/internal/interrupt"
	"tickwatch/internal/phase"
	"tickwatch/internal/screenshot"
	"tickwatch/internal/scripts/watch_ticks"
	"tickwatch/internal/tracker"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Отслеживать фазы тика",
	Long: `Опрашивает индикатор и объявляет фазы тика. Пропущенные фазы
синтезируются по оценке длительности тика.

Горячие клавиши: Shift+Enter: пауза, Q: выход, Num+/Num-: порог уверенности.
Изменение tracker.min_confidence в config.yaml применяется без перезапуска.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	runID := uuid.NewString()
	log := loggerManager.With("run_id", runID)
	log.Info("🚀 Запуск отслеживания тиков")

	frames := screenshot.NewScreenshotManager(resolveCaptureRegion(cfg.Capture, log), log)
	seq := tracker.NewSequencer(cfg.Tracker.Settings)
	cls, release, err := newClassifier(cfg.Classifier, seq.MinConfidence, log)
	if err != nil {
		return err
	}
	defer release()

	commands := interrupt.NewCommandQueue(32)
	interruptManager := interrupt.NewInterruptManager(commands, 1, log)

	deps := watch_ticks.Deps{
		Frames:              frames,
		Classifier:          cls,
		Sequencer:           seq,
		Commands:            commands,
		Listeners:           []watch_ticks.Listener{watch_ticks.LogAnnouncements(log, seq.CycleEstimate)},
		Logger:              log,
		PollInterval:        cfg.Tracker.PollInterval(),
		ActionCheckInterval: msDuration(cfg.Database.ActionCheckIntervalMs),
		ThresholdStep:       cfg.Tracker.ThresholdStep,
	}

	if db := openDatabase(cfg.Database, log); db != nil {
		defer db.Close()
		deps.Actions = db
		deps.Listeners = append(deps.Listeners, watch_ticks.ListenerFunc(func(a tracker.Announcement) {
			db.MirrorAnnouncement(runID, a)
		}))
	}

	if cfg.Arduino.Enabled {
		controller, err := arduino.Open(cfg.Arduino, log)
		if err != nil {
			return err
		}
		defer controller.Close()

		clicker := click_manager.NewTickClicker(controller, phase.Phase(cfg.Arduino.TargetPhase), clickOffset(cfg, log), log)
		defer clicker.Close()
		deps.Listeners = append(deps.Listeners, clicker)
	}

	if config.WatchTracker(v, func(tc config.TrackerConfig, err error) {
		if err != nil {
			log.LogError(err, "Изменение конфигурации отклонено")
			return
		}
		commands.Push(interrupt.Command{Kind: interrupt.SetThreshold, Value: tc.MinConfidence})
	}) {
		log.Debug("👀 Слежение за %s включено", v.ConfigFileUsed())
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// без горячих клавиш управление остается через Ctrl+C и базу
		if err := interruptManager.RunKeyboard(gctx); err != nil {
			log.LogError(err, "Горячие клавиши недоступны")
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		_, err := watch_ticks.Run(gctx, deps)
		return err
	})
	return g.Wait()
}
