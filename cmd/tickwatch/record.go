package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"tickwatch/internal/interrupt"
	"tickwatch/internal/recorder"
	"tickwatch/internal/screenshot"
	"tickwatch/internal/scripts/record_ticks"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Записывать задержку между сменой цифры и кликом",
	Long: `На каждый клик левой кнопкой мыши дописывает в лог замеров строку
с последним показанием индикатора и временем с момента смены цифры.
Лог используется командой analyze.`,
	RunE: runRecord,
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	sampleLog, err := recorder.NewSampleLog(cfg.Recorder.LogPath)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := loggerManager.With("run_id", runID)

	frames := screenshot.NewScreenshotManager(resolveCaptureRegion(cfg.Capture, log), log)
	minConfidence := cfg.Tracker.MinConfidence
	cls, release, err := newClassifier(cfg.Classifier, func() float64 { return minConfidence }, log)
	if err != nil {
		return err
	}
	defer release()

	commands := interrupt.NewCommandQueue(8)
	interruptManager := interrupt.NewInterruptManager(commands, 64, log)

	deps := record_ticks.Deps{
		Frames:       frames,
		Classifier:   cls,
		Recorder:     recorder.NewRecorder(sampleLog),
		Clicks:       interruptManager.Clicks(),
		Commands:     commands,
		RunID:        runID,
		Logger:       log,
		PollInterval: cfg.Recorder.PollInterval(),
	}
	if db := openDatabase(cfg.Database, log); db != nil {
		defer db.Close()
		deps.Mirror = db
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := interruptManager.RunKeyboard(gctx); err != nil {
			log.LogError(err, "Горячие клавиши недоступны")
		}
		return nil
	})
	// без хука мыши записывать нечего
	g.Go(func() error {
		return interruptManager.RunMouse(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := record_ticks.Run(gctx, deps)
		return err
	})
	return g.Wait()
}
