package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"tickwatch/internal/classifier"
	"tickwatch/internal/helpers"
	"tickwatch/internal/phase"
	"tickwatch/internal/screenshot"
)

var (
	snapshotOut   string
	snapshotDigit int
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Сохранить кадр индикатора в PNG",
	Long: `Захватывает область индикатора и сохраняет её в PNG. С флагом --digit
кадр сохраняется как эталон цифры в classifier.templates_dir.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotOut, "out", "", "путь к PNG (по умолчанию snapshots/frame_<время>.png)")
	snapshotCmd.Flags().IntVar(&snapshotDigit, "digit", 0, "сохранить как эталон цифры 1-4")
	rootCmd.AddCommand(snapshotCmd)
}

// snapshotPath выбирает путь для кадра
func snapshotPath(out string, digit int, templatesDir string, now time.Time) (string, error) {
	if digit != 0 {
		p, ok := phase.FromInt(digit)
		if !ok {
			return "", fmt.Errorf("--digit должен быть в диапазоне 1..%d", phase.Count)
		}
		return classifier.TemplatePath(templatesDir, p), nil
	}
	if out != "" {
		return out, nil
	}
	return filepath.Join("snapshots", fmt.Sprintf("frame_%s.png", now.Format("20060102_150405.000"))), nil
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	path, err := snapshotPath(snapshotOut, snapshotDigit, cfg.Classifier.TemplatesDir, time.Now())
	if err != nil {
		return err
	}

	frames := screenshot.NewScreenshotManager(resolveCaptureRegion(cfg.Capture, loggerManager), loggerManager)
	img, ok := frames.CaptureFrame()
	if !ok {
		return fmt.Errorf("не удалось захватить область %v", frames.Region())
	}
	if err := helpers.SavePNG(img, path); err != nil {
		return err
	}
	loggerManager.Info("🖼️ Кадр сохранен: %s", path)
	return nil
}
