package click_manager

import (
	"sync"
	"time"

	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/tracker"
)

// Clicker выполняет клик, например через Arduino
type Clicker interface {
	FastClick() error
}

// ClickStats: счётчики кликов
type ClickStats struct {
	Scheduled int
	Clicked   int
	Skipped   int
	Failed    int
}

// TickClicker кликает через offset после объявления целевой фазы.
// Одновременно ожидает не больше одного клика.
type TickClicker struct {
	mu      sync.Mutex
	clicker Clicker
	target  phase.Phase
	offset  time.Duration
	pending *time.Timer
	closed  bool
	wg      sync.WaitGroup
	stats   ClickStats
	logger  *logger.LoggerManager
	now     func() time.Time
}

// NewTickClicker создает новый экземпляр TickClicker
func NewTickClicker(clicker Clicker, target phase.Phase, offset time.Duration, loggerManager *logger.LoggerManager) *TickClicker {
	if offset < 0 {
		offset = 0
	}
	return &TickClicker{
		clicker: clicker,
		target:  target,
		offset:  offset,
		logger:  loggerManager,
		now:     time.Now,
	}
}

// OnAnnouncement планирует клик, если объявлена целевая фаза
func (m *TickClicker) OnAnnouncement(a tracker.Announcement) {
	if a.Phase != m.target {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.pending != nil {
		m.stats.Skipped++
		m.logger.Debug("🖱️ Клик для фазы %d уже запланирован, пропускаем", a.Phase)
		return
	}

	delay := a.At.Add(m.offset).Sub(m.now())
	if delay < 0 {
		delay = 0
	}
	m.stats.Scheduled++
	m.wg.Add(1)
	m.pending = time.AfterFunc(delay, m.fire)
}

func (m *TickClicker) fire() {
	defer m.wg.Done()
	err := m.clicker.FastClick()

	m.mu.Lock()
	m.pending = nil
	if err != nil {
		m.stats.Failed++
	} else {
		m.stats.Clicked++
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.LogError(err, "Ошибка клика по тику")
	}
}

// Stats возвращает счётчики кликов
func (m *TickClicker) Stats() ClickStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Close отменяет ожидающий клик и ждет завершения выполняющегося
func (m *TickClicker) Close() {
	m.mu.Lock()
	m.closed = true
	if m.pending != nil && m.pending.Stop() {
		m.pending = nil
		m.wg.Done()
	}
	m.mu.Unlock()
	m.wg.Wait()
}
