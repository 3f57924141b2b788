package recorder

import (
	"math"
	"time"

	"tickwatch/internal/phase"
)

// Recorder сопоставляет внешние события (клики) с последним сырым
// показанием классификатора. Сглаженный поток секвенсора здесь намеренно
// не используется: замеряется задержка классификатора вместе с реакцией.
type Recorder struct {
	log *SampleLog

	currentDigit      phase.Phase
	currentConfidence float64
	lastChange        time.Time
	hasChange         bool
}

// NewRecorder создает рекордер поверх лога замеров
func NewRecorder(log *SampleLog) *Recorder {
	return &Recorder{log: log}
}

// Observe обновляет текущее сырое показание. Пустое показание не затирает
// последнюю цифру. Первое появление цифры сменой не считается: момент
// перехода неизвестен.
func (r *Recorder) Observe(digit phase.Phase, confidence float64, now time.Time) {
	if !digit.Valid() {
		return
	}
	if digit != r.currentDigit {
		if r.currentDigit != phase.None {
			r.lastChange = now
			r.hasChange = true
		}
		r.currentDigit = digit
	}
	r.currentConfidence = confidence
}

// Sample строит строку для события без записи в лог
func (r *Recorder) Sample(at time.Time, x, y int) TimingSample {
	s := TimingSample{
		TimestampMs: at.UnixMilli(),
		Digit:       r.currentDigit,
		Confidence:  math.Round(r.currentConfidence*1000) / 1000,
		X:           x,
		Y:           y,
	}
	if r.hasChange {
		since := at.Sub(r.lastChange).Milliseconds()
		if since < 0 {
			since = 0
		}
		s.SinceChangeMs = &since
	}
	return s
}

// RecordEvent формирует строку для события и дописывает её в лог.
// При ошибке записи строка всё равно возвращается, чтобы вызывающий мог её залогировать.
func (r *Recorder) RecordEvent(at time.Time, x, y int) (TimingSample, error) {
	s := r.Sample(at, x, y)
	return s, r.log.Append(s)
}

// Path возвращает путь к логу замеров
func (r *Recorder) Path() string {
	return r.log.Path()
}

// CurrentDigit возвращает последнюю распознанную цифру
func (r *Recorder) CurrentDigit() phase.Phase {
	return r.currentDigit
}
