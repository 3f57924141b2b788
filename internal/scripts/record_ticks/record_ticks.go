package record_ticks

import (
	"context"
	"image"
	"time"

	"tickwatch/internal/interrupt"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/recorder"
)

// FrameSource захватывает кадр индикатора
type FrameSource interface {
	CaptureFrame() (image.Image, bool)
}

// Classifier определяет цифру на кадре
type Classifier interface {
	Classify(img image.Image) (phase.Phase, float64)
}

// SampleMirror дублирует замеры, например в базу данных
type SampleMirror interface {
	MirrorTimingSample(runID string, s recorder.TimingSample)
}

// Deps: зависимости цикла записи
type Deps struct {
	Frames     FrameSource
	Classifier Classifier
	Recorder   *recorder.Recorder
	Clicks     <-chan interrupt.ClickEvent
	Commands   *interrupt.CommandQueue
	// Mirror может быть nil
	Mirror SampleMirror
	RunID  string
	Logger *logger.LoggerManager

	PollInterval time.Duration
	Now          func() time.Time
}

// Result: итог записи
type Result struct {
	Polls        int
	Recorded     int
	WriteErrors  int
	DigitChanges int
}

type loop struct {
	Deps
	paused bool
	result Result
}

// Run обновляет сырое показание с заданной частотой и записывает строку
// на каждый клик. Клики сопоставляются с показанием, полученным до них.
func Run(ctx context.Context, d Deps) (Result, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	l := &loop{Deps: d}

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	l.Logger.Info("⏺️ Запись замеров в %s, опрос каждые %v", d.Recorder.Path(), d.PollInterval)

	for {
		select {
		case <-ctx.Done():
			l.drainClicks()
			return l.finish(), nil
		case <-ticker.C:
		}

		if quit := l.applyCommands(l.Commands.Drain()); quit {
			l.drainClicks()
			return l.finish(), nil
		}
		l.drainClicks()
		if l.paused {
			continue
		}
		l.poll()
	}
}

func (l *loop) poll() {
	l.result.Polls++
	img, ok := l.Frames.CaptureFrame()
	if !ok {
		return
	}
	digit, conf := l.Classifier.Classify(img)
	before := l.Recorder.CurrentDigit()
	l.Recorder.Observe(digit, conf, l.Now())
	if after := l.Recorder.CurrentDigit(); after != before && before != phase.None {
		l.result.DigitChanges++
		l.Logger.Debug("🔢 Цифра %d → %d (%.2f)", before, after, conf)
	}
}

func (l *loop) drainClicks() {
	for {
		select {
		case click := <-l.Clicks:
			l.record(click)
		default:
			return
		}
	}
}

func (l *loop) record(click interrupt.ClickEvent) {
	s, err := l.Recorder.RecordEvent(click.At, click.X, click.Y)
	if err != nil {
		l.result.WriteErrors++
		l.Logger.LogError(err, "Ошибка записи замера")
		return
	}
	l.result.Recorded++

	digit, since := "-", "-"
	if s.Digit.Valid() {
		digit = s.Digit.String()
	}
	if s.SinceChangeMs != nil {
		since = time.Duration(*s.SinceChangeMs * int64(time.Millisecond)).String()
	}
	l.Logger.Info("🖱️ Клик (%d, %d): цифра %s (%.3f), после смены %s", s.X, s.Y, digit, s.Confidence, since)

	if l.Mirror != nil {
		l.Mirror.MirrorTimingSample(l.RunID, s)
	}
}

func (l *loop) applyCommands(cmds []interrupt.Command) bool {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case interrupt.Quit:
			return true
		case interrupt.Pause:
			l.paused = true
		case interrupt.Resume:
			l.paused = false
		case interrupt.TogglePause:
			l.paused = !l.paused
		default:
			continue
		}
		if l.paused {
			l.Logger.Info("⏸️ Запись на паузе, клики по-прежнему записываются")
		} else {
			l.Logger.Info("▶️ Опрос индикатора продолжен")
		}
	}
	return false
}

func (l *loop) finish() Result {
	l.Logger.Info("📊 Записано замеров: %d, ошибок записи: %d, смен цифры: %d", l.result.Recorded, l.result.WriteErrors, l.result.DigitChanges)
	return l.result
}
