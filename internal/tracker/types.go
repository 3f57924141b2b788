package tracker

import (
	"fmt"
	"time"

	"tickwatch/internal/phase"
)

// Source показывает, чем подкреплено объявление фазы
type Source int

const (
	// Observed: объявление подтверждено распознанной цифрой
	Observed Source = iota
	// Inferred: объявление синтезировано по таймингу
	Inferred
)

func (s Source) String() string {
	switch s {
	case Observed:
		return "observed"
	case Inferred:
		return "inferred"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Observation: результат одного опроса классификатора.
// Confidence не имеет смысла, если Digit == phase.None.
type Observation struct {
	Digit      phase.Phase
	Confidence float64
	At         time.Time
}

// Announcement: очищенное объявление фазы, неизменяемое после выдачи
type Announcement struct {
	Phase  phase.Phase
	At     time.Time
	Source Source
	// GapMs: время с предыдущего объявления, 0 для первого
	GapMs float64
}

// State: состояние автомата секвенсора
type State int

const (
	Uninitialized State = iota
	Tracking
)

func (s State) String() string {
	if s == Tracking {
		return "tracking"
	}
	return "uninitialized"
}

// SequencerState: снимок внутреннего состояния для логов и отладки
type SequencerState struct {
	LastEmittedPhase  phase.Phase
	LastEmittedAt     time.Time
	ExpectedNextPhase phase.Phase
	RawLastDigitSeen  phase.Phase
	CycleEstimateMs   float64
}

// Stats: счётчики работы секвенсора
type Stats struct {
	Observed int
	Inferred int
	// Confirmed: синтезированные фазы, подтвержденные позже классификатором
	Confirmed int
	Rejected  int
}

// Settings: параметры правил приёма. Все множители подобраны эмпирически
// для 600-мс тика и должны перекалиброваться под конкретную игру.
type Settings struct {
	NominalCycleMs    float64 `mapstructure:"nominal_cycle_ms" yaml:"nominal_cycle_ms"`
	MinConfidence     float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	DebounceFactor    float64 `mapstructure:"debounce_factor" yaml:"debounce_factor"`
	StaleFactor       float64 `mapstructure:"stale_factor" yaml:"stale_factor"`
	InferFactor       float64 `mapstructure:"infer_factor" yaml:"infer_factor"`
	SmoothingWeight   float64 `mapstructure:"smoothing_weight" yaml:"smoothing_weight"`
	MinPlausibleGapMs float64 `mapstructure:"min_plausible_gap_ms" yaml:"min_plausible_gap_ms"`
	MaxPlausibleGapMs float64 `mapstructure:"max_plausible_gap_ms" yaml:"max_plausible_gap_ms"`
}

// DefaultSettings возвращает значения для одного игрового тика 616 мс
func DefaultSettings() Settings {
	return Settings{
		NominalCycleMs:    616,
		MinConfidence:     0.7,
		DebounceFactor:    0.4,
		StaleFactor:       1.5,
		InferFactor:       0.95,
		SmoothingWeight:   0.3,
		MinPlausibleGapMs: 300,
		MaxPlausibleGapMs: 900,
	}
}

// Validate проверяет диапазоны параметров
func (s Settings) Validate() error {
	switch {
	case s.NominalCycleMs <= 0:
		return fmt.Errorf("nominal_cycle_ms должен быть > 0, получено %v", s.NominalCycleMs)
	case s.MinConfidence < 0 || s.MinConfidence > 1:
		return fmt.Errorf("min_confidence должен быть в [0,1], получено %v", s.MinConfidence)
	case s.DebounceFactor <= 0 || s.StaleFactor <= 0 || s.InferFactor <= 0:
		return fmt.Errorf("множители debounce/stale/infer должны быть > 0")
	case s.DebounceFactor >= s.StaleFactor:
		return fmt.Errorf("debounce_factor (%v) должен быть меньше stale_factor (%v)", s.DebounceFactor, s.StaleFactor)
	case s.SmoothingWeight <= 0 || s.SmoothingWeight > 1:
		return fmt.Errorf("smoothing_weight должен быть в (0,1], получено %v", s.SmoothingWeight)
	case s.MinPlausibleGapMs >= s.MaxPlausibleGapMs:
		return fmt.Errorf("min_plausible_gap_ms (%v) должен быть меньше max_plausible_gap_ms (%v)", s.MinPlausibleGapMs, s.MaxPlausibleGapMs)
	}
	return nil
}
