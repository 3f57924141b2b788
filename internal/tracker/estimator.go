package tracker

// CycleEstimator сглаживает оценку периода цикла по наблюдаемым интервалам
type CycleEstimator struct {
	estimateMs float64
	weight     float64
	minGapMs   float64
	maxGapMs   float64
	samples    int
}

// NewCycleEstimator создает оценщик, начинающий с номинального периода.
// weight: вес нового наблюдения при экспоненциальном сглаживании.
func NewCycleEstimator(nominalMs, weight, minGapMs, maxGapMs float64) *CycleEstimator {
	return &CycleEstimator{
		estimateMs: nominalMs,
		weight:     weight,
		minGapMs:   minGapMs,
		maxGapMs:   maxGapMs,
	}
}

// Update вмешивает интервал в оценку. Неправдоподобные интервалы
// (пропуск детекции, двойная детекция) игнорируются, возвращается false.
func (e *CycleEstimator) Update(gapMs float64) bool {
	if !e.Plausible(gapMs) {
		return false
	}
	e.estimateMs = (1-e.weight)*e.estimateMs + e.weight*gapMs
	e.samples++
	return true
}

// Plausible проверяет попадание интервала в полосу правдоподобия
func (e *CycleEstimator) Plausible(gapMs float64) bool {
	return gapMs >= e.minGapMs && gapMs <= e.maxGapMs
}

// Estimate возвращает текущую оценку периода в миллисекундах
func (e *CycleEstimator) Estimate() float64 {
	return e.estimateMs
}

// Samples возвращает число принятых интервалов
func (e *CycleEstimator) Samples() int {
	return e.samples
}
