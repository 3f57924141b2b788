package classifier

import (
	"image"

	"tickwatch/internal/phase"
)

// Classifier определяет цифру фазы на кадре индикатора.
// phase.None означает, что цифра не выделена уверенно.
type Classifier interface {
	Classify(img image.Image) (phase.Phase, float64)
}

// Scores: лучший результат сопоставления для каждой цифры, индекс = цифра
type Scores [phase.Count + 1]float64

// PickBest выбирает цифру с наибольшим результатом. При равенстве выигрывает
// меньшая цифра. Если лучший результат ниже minScore, возвращается None.
// Уверенность всегда приводится к [0,1].
func PickBest(scores Scores, minScore float64) (phase.Phase, float64) {
	best := phase.None
	bestScore := 0.0
	for d := phase.Phase(1); d <= phase.Count; d++ {
		if best == phase.None || scores[d] > bestScore {
			best, bestScore = d, scores[d]
		}
	}

	conf := clamp01(bestScore)
	if bestScore < minScore {
		return phase.None, conf
	}
	return best, conf
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
