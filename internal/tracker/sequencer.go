package tracker

import (
	"time"

	"tickwatch/internal/phase"
)

// Sequencer превращает шумные показания классификатора в строго
// последовательный поток фаз без повторов и пропусков.
//
// Не потокобезопасен: Poll должен вызываться из одного цикла опроса.
type Sequencer struct {
	settings  Settings
	estimator *CycleEstimator

	lastPhase  phase.Phase
	lastAt     time.Time
	lastSource Source
	expected   phase.Phase
	rawLast    phase.Phase

	// lastObservedAt: момент последнего реального наблюдения смены фазы
	// (принятого или подтвердившего синтез)
	lastObservedAt    time.Time
	lastObservedPhase phase.Phase

	stats Stats
}

// NewSequencer создает секвенсор в состоянии Uninitialized
func NewSequencer(settings Settings) *Sequencer {
	return &Sequencer{
		settings: settings,
		estimator: NewCycleEstimator(
			settings.NominalCycleMs,
			settings.SmoothingWeight,
			settings.MinPlausibleGapMs,
			settings.MaxPlausibleGapMs,
		),
	}
}

// Poll обрабатывает одно наблюдение и возвращает не более одного объявления.
// Порядок правил: холодный старт, подавление повтора, приём кандидата,
// синтез ожидаемой фазы по таймингу.
func (s *Sequencer) Poll(obs Observation, now time.Time) (Announcement, bool) {
	confident := obs.Digit.Valid() && obs.Confidence >= s.settings.MinConfidence

	// холодный старт: первая уверенная цифра принимается без проверки
	if s.lastPhase == phase.None {
		if !confident {
			return Announcement{}, false
		}
		s.rawLast = obs.Digit
		return s.emit(obs.Digit, now, Observed, 0), true
	}

	elapsed := msBetween(s.lastAt, now)

	if confident && obs.Digit != s.rawLast {
		s.rawLast = obs.Digit
		switch {
		case obs.Digit == s.lastPhase:
			// цифра подтверждает уже объявленную фазу
			if s.confirm(now) {
				elapsed = 0
			}
		case s.accepts(obs.Digit, elapsed):
			s.estimator.Update(elapsed)
			return s.emit(obs.Digit, now, Observed, elapsed), true
		default:
			s.stats.Rejected++
		}
	}

	if elapsed >= s.settings.InferFactor*s.estimator.Estimate() {
		return s.emit(s.expected, now, Inferred, elapsed), true
	}
	return Announcement{}, false
}

// accepts применяет debounce и проверку последовательности
func (s *Sequencer) accepts(digit phase.Phase, elapsedMs float64) bool {
	estimate := s.estimator.Estimate()
	if elapsedMs < s.settings.DebounceFactor*estimate {
		return false
	}
	return digit == s.expected || elapsedMs > s.settings.StaleFactor*estimate
}

// confirm переносит якорь времени на момент реального наблюдения,
// если фаза до этого была только синтезирована. Интервал между двумя
// реальными наблюдениями идёт в оценку периода.
func (s *Sequencer) confirm(now time.Time) bool {
	if s.lastSource != Inferred || !now.After(s.lastAt) {
		return false
	}
	// только соседние фазы: пропущенное подтверждение дало бы два цикла
	if s.lastObservedPhase.Next() == s.lastPhase {
		s.estimator.Update(msBetween(s.lastObservedAt, now))
	}
	s.lastAt = now
	s.lastObservedAt = now
	s.lastObservedPhase = s.lastPhase
	s.lastSource = Observed
	s.stats.Confirmed++
	return true
}

func (s *Sequencer) emit(p phase.Phase, now time.Time, source Source, gapMs float64) Announcement {
	s.lastPhase = p
	s.lastAt = now
	s.lastSource = source
	s.expected = p.Next()

	if source == Observed {
		s.lastObservedAt = now
		s.lastObservedPhase = p
		s.stats.Observed++
	} else {
		s.stats.Inferred++
	}

	return Announcement{
		Phase:  p,
		At:     now,
		Source: source,
		GapMs:  gapMs,
	}
}

// Reset возвращает секвенсор в Uninitialized после паузы.
// Оценка периода и счётчики сохраняются.
func (s *Sequencer) Reset() {
	s.lastPhase = phase.None
	s.lastAt = time.Time{}
	s.lastSource = Observed
	s.expected = phase.None
	s.rawLast = phase.None
	s.lastObservedAt = time.Time{}
	s.lastObservedPhase = phase.None
}

// SetMinConfidence меняет порог уверенности на лету
func (s *Sequencer) SetMinConfidence(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.settings.MinConfidence = v
}

// MinConfidence возвращает текущий порог уверенности
func (s *Sequencer) MinConfidence() float64 {
	return s.settings.MinConfidence
}

// State возвращает состояние автомата
func (s *Sequencer) State() State {
	if s.lastPhase == phase.None {
		return Uninitialized
	}
	return Tracking
}

// Snapshot возвращает копию состояния
func (s *Sequencer) Snapshot() SequencerState {
	return SequencerState{
		LastEmittedPhase:  s.lastPhase,
		LastEmittedAt:     s.lastAt,
		ExpectedNextPhase: s.expected,
		RawLastDigitSeen:  s.rawLast,
		CycleEstimateMs:   s.estimator.Estimate(),
	}
}

// Stats возвращает счётчики
func (s *Sequencer) Stats() Stats {
	return s.stats
}

// CycleEstimate возвращает текущую оценку периода
func (s *Sequencer) CycleEstimate() float64 {
	return s.estimator.Estimate()
}

func msBetween(from, to time.Time) float64 {
	return float64(to.Sub(from)) / float64(time.Millisecond)
}
