package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCycleEstimatorBlendsPlausibleGaps(t *testing.T) {
	e := NewCycleEstimator(616, 0.3, 300, 900)

	assert.True(t, e.Update(700))
	assert.InDelta(t, 0.7*616+0.3*700, e.Estimate(), 1e-9)
	assert.Equal(t, 1, e.Samples())
}

func TestCycleEstimatorIgnoresOutliers(t *testing.T) {
	e := NewCycleEstimator(616, 0.3, 300, 900)

	for _, gap := range []float64{120, 299.9, 900.1, 1800} {
		assert.False(t, e.Update(gap), "gap %v", gap)
	}
	assert.Equal(t, 616.0, e.Estimate())
	assert.Equal(t, 0, e.Samples())
}

func TestCycleEstimatorBandEdgesAreInclusive(t *testing.T) {
	e := NewCycleEstimator(616, 0.3, 300, 900)
	assert.True(t, e.Plausible(300))
	assert.True(t, e.Plausible(900))
}

func TestCycleEstimatorTracksDrift(t *testing.T) {
	e := NewCycleEstimator(616, 0.3, 300, 900)
	for i := 0; i < 40; i++ {
		e.Update(580)
	}
	assert.InDelta(t, 580, e.Estimate(), 0.01)
}
