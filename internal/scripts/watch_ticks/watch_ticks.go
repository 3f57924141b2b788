package watch_ticks

import (
	"context"
	"image"
	"time"

	"tickwatch/internal/database"
	"tickwatch/internal/interrupt"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/tracker"
)

// FrameSource захватывает кадр индикатора
type FrameSource interface {
	CaptureFrame() (image.Image, bool)
}

// Classifier определяет цифру на кадре
type Classifier interface {
	Classify(img image.Image) (phase.Phase, float64)
}

// Listener получает каждое объявление фазы
type Listener interface {
	OnAnnouncement(a tracker.Announcement)
}

// ListenerFunc позволяет использовать функцию как Listener
type ListenerFunc func(a tracker.Announcement)

func (f ListenerFunc) OnAnnouncement(a tracker.Announcement) { f(a) }

// ActionSource: удаленное управление через таблицы actions и status
type ActionSource interface {
	GetLatestUnexecutedAction() (string, int, error)
	MarkActionAsExecuted(id int) error
	UpdateStatus(status string) error
}

// Deps: зависимости цикла опроса
type Deps struct {
	Frames     FrameSource
	Classifier Classifier
	Sequencer  *tracker.Sequencer
	Commands   *interrupt.CommandQueue
	Listeners  []Listener
	// Actions может быть nil, если база отключена
	Actions ActionSource
	Logger  *logger.LoggerManager

	PollInterval        time.Duration
	ActionCheckInterval time.Duration
	ThresholdStep       float64
	Now                 func() time.Time
}

// Result: итог работы цикла
type Result struct {
	Polls          int
	FailedCaptures int
	Announcements  int
	Stats          tracker.Stats
}

type loop struct {
	Deps
	paused          bool
	lastActionCheck time.Time
	result          Result
}

// Run опрашивает классификатор с фиксированной частотой и раздает объявления
// фаз слушателям. Завершается по отмене контекста или команде Quit.
func Run(ctx context.Context, d Deps) (Result, error) {
	if d.Now == nil {
		d.Now = time.Now
	}
	l := &loop{Deps: d}

	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	l.Logger.Info("▶️ Отслеживание тиков запущено, опрос каждые %v", d.PollInterval)
	l.setStatus(database.StatusRunning)

	for {
		select {
		case <-ctx.Done():
			return l.finish(), nil
		case <-ticker.C:
		}

		if quit := l.applyCommands(l.Commands.Drain()); quit {
			return l.finish(), nil
		}
		if quit := l.checkActions(); quit {
			return l.finish(), nil
		}
		if l.paused {
			continue
		}
		l.poll()
	}
}

func (l *loop) poll() {
	now := l.Now()
	l.result.Polls++

	obs := tracker.Observation{At: now}
	if img, ok := l.Frames.CaptureFrame(); ok {
		obs.Digit, obs.Confidence = l.Classifier.Classify(img)
	} else {
		// без кадра синтез по таймингу продолжается
		l.result.FailedCaptures++
	}

	a, ok := l.Sequencer.Poll(obs, now)
	if !ok {
		return
	}
	l.result.Announcements++
	for _, listener := range l.Listeners {
		listener.OnAnnouncement(a)
	}
}

// applyCommands выполняет команды по порядку, возвращает true при Quit
func (l *loop) applyCommands(cmds []interrupt.Command) bool {
	for _, cmd := range cmds {
		switch cmd.Kind {
		case interrupt.Quit:
			l.Logger.Info("⏹️ Получена команда выхода")
			return true
		case interrupt.Pause:
			l.setPaused(true)
		case interrupt.Resume:
			l.setPaused(false)
		case interrupt.TogglePause:
			l.setPaused(!l.paused)
		case interrupt.ThresholdUp:
			l.setThreshold(l.Sequencer.MinConfidence() + l.ThresholdStep)
		case interrupt.ThresholdDown:
			l.setThreshold(l.Sequencer.MinConfidence() - l.ThresholdStep)
		case interrupt.SetThreshold:
			l.setThreshold(cmd.Value)
		}
	}
	return false
}

func (l *loop) setPaused(paused bool) {
	if l.paused == paused {
		return
	}
	l.paused = paused
	if paused {
		l.Logger.Info("⏸️ Пауза")
		l.setStatus(database.StatusPaused)
		return
	}
	// после паузы фаза неизвестна, начинаем с холодного старта
	l.Sequencer.Reset()
	l.Logger.Info("▶️ Продолжаем")
	l.setStatus(database.StatusRunning)
}

func (l *loop) setThreshold(v float64) {
	l.Sequencer.SetMinConfidence(v)
	l.Logger.Info("🎚️ Порог уверенности: %.2f", l.Sequencer.MinConfidence())
}

func (l *loop) setStatus(status string) {
	if l.Actions == nil {
		return
	}
	if err := l.Actions.UpdateStatus(status); err != nil {
		l.Logger.LogError(err, "Ошибка обновления статуса")
	}
}

// checkActions забирает действие из базы не чаще ActionCheckInterval
func (l *loop) checkActions() bool {
	if l.Actions == nil {
		return false
	}
	now := l.Now()
	if !l.lastActionCheck.IsZero() && now.Sub(l.lastActionCheck) < l.ActionCheckInterval {
		return false
	}
	l.lastActionCheck = now

	action, id, err := l.Actions.GetLatestUnexecutedAction()
	if err != nil {
		l.Logger.LogError(err, "Ошибка проверки действий в базе данных")
		return false
	}
	if action == "" {
		return false
	}
	if err := l.Actions.MarkActionAsExecuted(id); err != nil {
		l.Logger.LogError(err, "Ошибка пометки действия как выполненного")
	}

	cmd, ok := interrupt.ParseAction(action)
	if !ok {
		l.Logger.Warn("⚠️ Неизвестное действие '%s' (ID: %d)", action, id)
		return false
	}
	l.Logger.Info("📥 Действие '%s' из базы данных (ID: %d)", action, id)
	return l.applyCommands([]interrupt.Command{cmd})
}

func (l *loop) finish() Result {
	l.result.Stats = l.Sequencer.Stats()
	l.setStatus(database.StatusStopped)
	l.Logger.Info("📊 Опросов: %d, без кадра: %d, объявлений: %d (observed %d, inferred %d, подтверждено %d, отклонено %d), цикл %.1f мс",
		l.result.Polls, l.result.FailedCaptures, l.result.Announcements,
		l.result.Stats.Observed, l.result.Stats.Inferred, l.result.Stats.Confirmed, l.result.Stats.Rejected,
		l.Sequencer.CycleEstimate())
	return l.result
}

// LogAnnouncements: слушатель, пишущий объявления в лог
func LogAnnouncements(loggerManager *logger.LoggerManager, estimate func() float64) Listener {
	return ListenerFunc(func(a tracker.Announcement) {
		icon := "🔔"
		if a.Source == tracker.Inferred {
			icon = "🔮"
		}
		loggerManager.Info("%s Фаза %d (%s, +%.0f мс, цикл %.1f мс)", icon, a.Phase, a.Source, a.GapMs, estimate())
	})
}
