package click_manager

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClicker struct {
	mu     sync.Mutex
	clicks []time.Time
	err    error
	block  chan struct{}
}

func (c *fakeClicker) FastClick() error {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clicks = append(c.clicks, time.Now())
	return c.err
}

func (c *fakeClicker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clicks)
}

func announce(p phase.Phase, at time.Time) tracker.Announcement {
	return tracker.Announcement{Phase: p, At: at, Source: tracker.Observed}
}

func TestTickClickerClicksOnTargetPhaseAfterOffset(t *testing.T) {
	c := &fakeClicker{}
	m := NewTickClicker(c, phase.Phase(2), 30*time.Millisecond, logger.NewNopLoggerManager())
	defer m.Close()

	start := time.Now()
	m.OnAnnouncement(announce(phase.Phase(1), start))
	m.OnAnnouncement(announce(phase.Phase(2), start))

	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 2*time.Millisecond)
	c.mu.Lock()
	assert.GreaterOrEqual(t, c.clicks[0].Sub(start), 30*time.Millisecond)
	c.mu.Unlock()
	assert.Equal(t, ClickStats{Scheduled: 1, Clicked: 1}, m.Stats())
}

func TestTickClickerKeepsOnePendingClick(t *testing.T) {
	c := &fakeClicker{}
	m := NewTickClicker(c, phase.Phase(1), time.Hour, logger.NewNopLoggerManager())

	now := time.Now()
	m.OnAnnouncement(announce(phase.Phase(1), now))
	m.OnAnnouncement(announce(phase.Phase(1), now))
	assert.Equal(t, ClickStats{Scheduled: 1, Skipped: 1}, m.Stats())

	m.Close()
	assert.Zero(t, c.count(), "pending click cancelled on close")

	m.OnAnnouncement(announce(phase.Phase(1), now))
	assert.Equal(t, 1, m.Stats().Scheduled, "closed clicker ignores announcements")
}

func TestTickClickerLateAnnouncementClicksImmediately(t *testing.T) {
	c := &fakeClicker{}
	m := NewTickClicker(c, phase.Phase(3), 10*time.Millisecond, logger.NewNopLoggerManager())
	m.now = func() time.Time { return time.Now().Add(time.Second) }

	m.OnAnnouncement(announce(phase.Phase(3), time.Now()))
	require.Eventually(t, func() bool { return c.count() == 1 }, time.Second, 2*time.Millisecond)
	m.Close()
}

func TestTickClickerCountsFailures(t *testing.T) {
	c := &fakeClicker{err: errors.New("no ack")}
	m := NewTickClicker(c, phase.Phase(4), 0, logger.NewNopLoggerManager())

	m.OnAnnouncement(announce(phase.Phase(4), time.Now()))
	require.Eventually(t, func() bool { return m.Stats().Failed == 1 }, time.Second, 2*time.Millisecond)

	// после неудачи можно планировать снова
	m.OnAnnouncement(announce(phase.Phase(4), time.Now()))
	require.Eventually(t, func() bool { return m.Stats().Failed == 2 }, time.Second, 2*time.Millisecond)
	m.Close()
}

func TestTickClickerCloseWaitsForRunningClick(t *testing.T) {
	c := &fakeClicker{block: make(chan struct{})}
	m := NewTickClicker(c, phase.Phase(1), 0, logger.NewNopLoggerManager())
	m.OnAnnouncement(announce(phase.Phase(1), time.Now()))

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()

	// Close не может завершиться, пока клик выполняется
	select {
	case <-closed:
		// таймер мог еще не сработать: тогда Close отменил его
		assert.Zero(t, c.count())
		close(c.block)
	case <-time.After(50 * time.Millisecond):
		close(c.block)
		<-closed
		assert.Equal(t, 1, c.count())
	}
}
