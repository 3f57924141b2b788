package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickwatch/internal/analyzer"
	"tickwatch/internal/phase"
	"tickwatch/internal/recorder"
)

var (
	analyzeLogPath string
	analyzePhase   int
	analyzeMargin  float64
	analyzeFormat  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Статистика задержек и рекомендуемый сдвиг клика",
	Long: `Читает лог замеров и считает по каждой цифре count, mean, median,
p25, p75 и stdev задержки. Рекомендуемый сдвиг: медиана целевой фазы минус
запас, не меньше нуля.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeLogPath, "log", "", "лог замеров (по умолчанию recorder.log_path)")
	analyzeCmd.Flags().IntVar(&analyzePhase, "phase", 0, "целевая фаза 1-4 (по умолчанию analyzer.target_phase)")
	analyzeCmd.Flags().Float64Var(&analyzeMargin, "margin", -1, "запас в мс (по умолчанию analyzer.margin_ms)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "text", "формат отчёта: text или yaml")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := cfg.Recorder.LogPath
	if analyzeLogPath != "" {
		path = analyzeLogPath
	}
	target := phase.Phase(cfg.Analyzer.TargetPhase)
	if cmd.Flags().Changed("phase") {
		var ok bool
		if target, ok = phase.FromInt(analyzePhase); !ok {
			return fmt.Errorf("--phase должен быть в диапазоне 1..%d", phase.Count)
		}
	}
	margin := cfg.Analyzer.MarginMs
	if cmd.Flags().Changed("margin") {
		if analyzeMargin < 0 {
			return fmt.Errorf("--margin не может быть отрицательным")
		}
		margin = analyzeMargin
	}

	samples, err := recorder.ReadSamples(path)
	if err != nil {
		return err
	}
	report, err := analyzer.Analyze(samples, target, margin)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	switch analyzeFormat {
	case "yaml":
		return report.WriteYAML(out)
	case "text":
		return report.WriteText(out)
	}
	return fmt.Errorf("неизвестный формат %q", analyzeFormat)
}
