package watch_ticks

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tickwatch/internal/database"
	"tickwatch/internal/interrupt"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
	"tickwatch/internal/tracker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// sim: имитация экрана: цифра зависит от модельного времени, которое
// сдвигается на step при каждом захвате кадра
type sim struct {
	now       time.Time
	frameAt   time.Time
	step      time.Duration
	digitAt   func(ms float64) phase.Phase
	failAfter time.Duration
	stopAt    time.Duration
	commands  *interrupt.CommandQueue
}

func (s *sim) Now() time.Time { return s.now }

func (s *sim) CaptureFrame() (image.Image, bool) {
	s.frameAt = s.now
	s.now = s.now.Add(s.step)
	if s.stopAt > 0 && s.now.Sub(t0) >= s.stopAt {
		s.commands.Push(interrupt.Command{Kind: interrupt.Quit})
	}
	if s.failAfter > 0 && s.frameAt.Sub(t0) >= s.failAfter {
		return nil, false
	}
	return image.NewGray(image.Rect(0, 0, 1, 1)), true
}

func (s *sim) Classify(image.Image) (phase.Phase, float64) {
	ms := float64(s.frameAt.Sub(t0)) / float64(time.Millisecond)
	return s.digitAt(ms), 0.9
}

func newDeps(s *sim, seq *tracker.Sequencer, got *[]tracker.Announcement) Deps {
	return Deps{
		Frames:     s,
		Classifier: s,
		Sequencer:  seq,
		Commands:   s.commands,
		Listeners: []Listener{ListenerFunc(func(a tracker.Announcement) {
			*got = append(*got, a)
		})},
		Logger:        logger.NewNopLoggerManager(),
		PollInterval:  time.Millisecond,
		ThresholdStep: 0.05,
		Now:           s.Now,
	}
}

func phases(got []tracker.Announcement) ([]phase.Phase, []tracker.Source) {
	var ps []phase.Phase
	var ss []tracker.Source
	for _, a := range got {
		ps = append(ps, a.Phase)
		ss = append(ss, a.Source)
	}
	return ps, ss
}

func TestRunFillsDropoutAndStopsOnQuit(t *testing.T) {
	// индикатор показывает 1, пусто, 3, 4, 1 с шагом 616 мс
	s := &sim{
		now:  t0,
		step: 20 * time.Millisecond,
		digitAt: func(ms float64) phase.Phase {
			k := int(ms / 616)
			if k == 1 {
				return phase.None
			}
			return phase.Phase(k%4 + 1)
		},
		stopAt:   2500 * time.Millisecond,
		commands: interrupt.NewCommandQueue(4),
	}
	seq := tracker.NewSequencer(tracker.DefaultSettings())
	var got []tracker.Announcement

	res, err := Run(context.Background(), newDeps(s, seq, &got))
	require.NoError(t, err)

	ps, sources := phases(got)
	assert.Equal(t, []phase.Phase{1, 2, 3, 4, 1}, ps)
	assert.Equal(t, tracker.Observed, sources[0])
	assert.Equal(t, tracker.Inferred, sources[1], "gap filled by timing")
	assert.Equal(t, 125, res.Polls)
	assert.Equal(t, 5, res.Announcements)
	assert.Equal(t, 3, res.Stats.Confirmed, "inferred phases confirmed by later readings")
	assert.Zero(t, res.FailedCaptures)
}

func TestRunKeepsInferringWithoutFrames(t *testing.T) {
	s := &sim{
		now:       t0,
		step:      20 * time.Millisecond,
		digitAt:   func(float64) phase.Phase { return 2 },
		failAfter: 20 * time.Millisecond,
		stopAt:    700 * time.Millisecond,
		commands:  interrupt.NewCommandQueue(4),
	}
	seq := tracker.NewSequencer(tracker.DefaultSettings())
	var got []tracker.Announcement

	res, err := Run(context.Background(), newDeps(s, seq, &got))
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, tracker.Announcement{Phase: 3, At: t0.Add(600 * time.Millisecond), Source: tracker.Inferred, GapMs: 600}, got[1])
	assert.Equal(t, 35, res.Polls)
	assert.Equal(t, 34, res.FailedCaptures)
}

func TestRunAppliesThresholdCommands(t *testing.T) {
	s := &sim{
		now:      t0,
		step:     20 * time.Millisecond,
		digitAt:  func(float64) phase.Phase { return 1 },
		stopAt:   100 * time.Millisecond,
		commands: interrupt.NewCommandQueue(8),
	}
	s.commands.Push(interrupt.Command{Kind: interrupt.ThresholdDown})
	s.commands.Push(interrupt.Command{Kind: interrupt.ThresholdDown})
	s.commands.Push(interrupt.Command{Kind: interrupt.ThresholdUp})
	seq := tracker.NewSequencer(tracker.DefaultSettings())
	var got []tracker.Announcement

	_, err := Run(context.Background(), newDeps(s, seq, &got))
	require.NoError(t, err)
	assert.InDelta(t, 0.65, seq.MinConfidence(), 1e-9)

	s.stopAt = 0
	s.commands.Push(interrupt.Command{Kind: interrupt.SetThreshold, Value: 0.92})
	s.commands.Push(interrupt.Command{Kind: interrupt.Quit})
	_, err = Run(context.Background(), newDeps(s, seq, &got))
	require.NoError(t, err)
	assert.Equal(t, 0.92, seq.MinConfidence())
}

// fakeActions отдает действия по одному на каждую проверку
type fakeActions struct {
	actions  []string
	calls    int
	marked   []int
	statuses []string
}

func (f *fakeActions) GetLatestUnexecutedAction() (string, int, error) {
	f.calls++
	if f.calls > len(f.actions) || f.actions[f.calls-1] == "" {
		return "", 0, nil
	}
	return f.actions[f.calls-1], f.calls, nil
}

func (f *fakeActions) MarkActionAsExecuted(id int) error {
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeActions) UpdateStatus(status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func TestRunFollowsRemoteActionsWhilePaused(t *testing.T) {
	s := &sim{
		now:      t0,
		step:     20 * time.Millisecond,
		digitAt:  func(float64) phase.Phase { return 1 },
		commands: interrupt.NewCommandQueue(4),
	}
	s.commands.Push(interrupt.Command{Kind: interrupt.Pause})
	actions := &fakeActions{actions: []string{"dance", "resume", "", "", "", "stop"}}
	seq := tracker.NewSequencer(tracker.DefaultSettings())
	var got []tracker.Announcement

	deps := newDeps(s, seq, &got)
	deps.Actions = actions
	res, err := Run(context.Background(), deps)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Polls)
	assert.Equal(t, []int{1, 2, 6}, actions.marked)
	assert.Equal(t, []string{
		database.StatusRunning,
		database.StatusPaused,
		database.StatusRunning,
		database.StatusStopped,
	}, actions.statuses)
	require.Len(t, got, 1)
	assert.Equal(t, phase.Phase(1), got[0].Phase)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := &sim{
		now:      t0,
		step:     20 * time.Millisecond,
		digitAt:  func(float64) phase.Phase { return phase.None },
		commands: interrupt.NewCommandQueue(4),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, newDeps(s, tracker.NewSequencer(tracker.DefaultSettings()), new([]tracker.Announcement)))
	require.NoError(t, err)
	assert.Equal(t, tracker.Stats{}, res.Stats)
}
