package analyzer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"tickwatch/internal/phase"
	"tickwatch/internal/recorder"
)

// ErrNoSamples: в логе нет строк с известной цифрой и задержкой
var ErrNoSamples = errors.New("нет замеров для анализа")

// PhaseStats: описательная статистика задержек по одной фазе, в мс
type PhaseStats struct {
	Phase  phase.Phase `yaml:"phase"`
	Count  int         `yaml:"count"`
	Mean   float64     `yaml:"mean_ms"`
	Median float64     `yaml:"median_ms"`
	P25    float64     `yaml:"p25_ms"`
	P75    float64     `yaml:"p75_ms"`
	StdDev float64     `yaml:"stdev_ms"`
}

// Report: результат анализа лога замеров
type Report struct {
	TotalRows   int          `yaml:"total_rows"`
	UsedRows    int          `yaml:"used_rows"`
	Phases      []PhaseStats `yaml:"phases"`
	TargetPhase phase.Phase  `yaml:"target_phase"`
	MarginMs    float64      `yaml:"margin_ms"`
	// RecommendedOffsetMs: nil, если для целевой фазы нет замеров
	RecommendedOffsetMs *float64 `yaml:"recommended_offset_ms"`
}

// Analyze группирует строки по цифре и считает статистику задержек.
// Рекомендуемый сдвиг для целевой фазы: median - margin, не меньше нуля.
func Analyze(samples []recorder.TimingSample, target phase.Phase, marginMs float64) (Report, error) {
	report := Report{
		TotalRows:   len(samples),
		TargetPhase: target,
		MarginMs:    marginMs,
	}

	groups := make(map[phase.Phase][]float64)
	for _, s := range samples {
		if !s.Digit.Valid() || s.SinceChangeMs == nil {
			continue
		}
		groups[s.Digit] = append(groups[s.Digit], float64(*s.SinceChangeMs))
		report.UsedRows++
	}
	if report.UsedRows == 0 {
		return report, ErrNoSamples
	}

	for p := phase.Phase(1); p <= phase.Count; p++ {
		values, ok := groups[p]
		if !ok {
			continue
		}
		stats := Describe(values)
		stats.Phase = p
		report.Phases = append(report.Phases, stats)

		if p == target {
			offset := RecommendOffset(stats.Median, marginMs)
			report.RecommendedOffsetMs = &offset
		}
	}
	return report, nil
}

// RecommendOffset возвращает median - margin, не меньше нуля
func RecommendOffset(median, marginMs float64) float64 {
	return math.Max(0, median-marginMs)
}

// Describe считает статистику по непустому набору значений
func Describe(values []float64) PhaseStats {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean := sum / float64(len(sorted))

	var sq float64
	for _, v := range sorted {
		sq += (v - mean) * (v - mean)
	}

	return PhaseStats{
		Count:  len(sorted),
		Mean:   mean,
		Median: Percentile(sorted, 50),
		P25:    Percentile(sorted, 25),
		P75:    Percentile(sorted, 75),
		StdDev: math.Sqrt(sq / float64(len(sorted))),
	}
}

// Percentile: перцентиль с линейной интерполяцией между соседними рангами.
// sorted должен быть отсортирован по возрастанию.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Stats возвращает статистику фазы из отчёта
func (r Report) Stats(p phase.Phase) (PhaseStats, error) {
	for _, s := range r.Phases {
		if s.Phase == p {
			return s, nil
		}
	}
	return PhaseStats{}, fmt.Errorf("нет замеров для фазы %d", p)
}
