package classifier

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"tickwatch/internal/phase"
)

func TestPickBest(t *testing.T) {
	tests := []struct {
		name     string
		scores   Scores
		minScore float64
		want     phase.Phase
		wantConf float64
	}{
		{"clear winner", Scores{0, 0.2, 0.91, 0.3, 0.1}, 0.5, phase.Phase(2), 0.91},
		{"below threshold", Scores{0, 0.3, 0.4, 0.2, 0.1}, 0.5, phase.None, 0.4},
		{"tie goes to lower digit", Scores{0, 0.1, 0.8, 0.8, 0.1}, 0.5, phase.Phase(2), 0.8},
		{"negative scores", Scores{0, -0.4, -0.2, -0.9, -0.5}, 0.5, phase.None, 0},
		{"last digit", Scores{0, 0.1, 0.1, 0.1, 0.77}, 0.5, phase.Phase(4), 0.77},
		{"score above one clamped", Scores{0, 1.0000001, 0, 0, 0}, 0.5, phase.Phase(1), 1},
		{"zero threshold", Scores{0, 0.05, 0.02, 0, 0}, 0, phase.Phase(1), 0.05},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, conf := PickBest(tt.scores, tt.minScore)
			assert.Equal(t, tt.want, got)
			assert.InDelta(t, tt.wantConf, conf, 1e-9)
		})
	}
}

func TestTemplatePath(t *testing.T) {
	assert.Equal(t, "templates/digit_3.png", TemplatePath("templates", phase.Phase(3)))
}

type countingClassifier struct {
	calls int
	conf  float64
	none  bool
}

func (c *countingClassifier) Classify(img image.Image) (phase.Phase, float64) {
	c.calls++
	if c.none {
		return phase.None, c.conf
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	return phase.Phase(r>>8%4 + 1), c.conf
}

func threshold(v float64) func() float64 {
	return func() float64 { return v }
}

func frame(v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestCachedSkipsUnchangedFrames(t *testing.T) {
	next := &countingClassifier{conf: 0.9}
	c := NewCached(next, 1, threshold(0.7))

	d, _ := c.Classify(frame(1))
	assert.Equal(t, phase.Phase(2), d)
	d, _ = c.Classify(frame(2))
	assert.Equal(t, phase.Phase(2), d, "within tolerance: cached")
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, c.Hits())

	d, conf := c.Classify(frame(6))
	assert.Equal(t, phase.Phase(3), d)
	assert.Equal(t, 0.9, conf)
	assert.Equal(t, 2, next.calls)
}

func TestCachedRescoresWeakResults(t *testing.T) {
	next := &countingClassifier{conf: 0.5}
	floor := 0.7
	c := NewCached(next, 1, func() float64 { return floor })

	c.Classify(frame(1))
	c.Classify(frame(1))
	assert.Equal(t, 2, next.calls, "below threshold: frame is scored again")
	assert.Zero(t, c.Hits())

	// порог снижен на лету: тот же результат уже можно повторять
	floor = 0.4
	c.Classify(frame(1))
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 1, c.Hits())

	next.none = true
	c.Classify(frame(9))
	c.Classify(frame(9))
	assert.Equal(t, 4, next.calls, "empty result is never cached")
}
