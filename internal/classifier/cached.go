package classifier

import (
	"image"

	"tickwatch/internal/helpers"
	"tickwatch/internal/phase"
)

// Cached повторно использует результат, если кадр не изменился с прошлого
// опроса. Индикатор меняется раз в тик, а опрос идет в десятки раз чаще.
// Кэшируются только уверенные цифры: пустой или слабый результат
// пересчитывается на каждом кадре.
type Cached struct {
	next          Classifier
	tolerance     int
	minConfidence func() float64

	last  image.Image
	digit phase.Phase
	conf  float64
	hits  int
}

// NewCached оборачивает классификатор кэшем последнего кадра.
// minConfidence читается на каждом кадре, порог может меняться на лету.
func NewCached(next Classifier, tolerance int, minConfidence func() float64) *Cached {
	return &Cached{next: next, tolerance: tolerance, minConfidence: minConfidence}
}

func (c *Cached) Classify(img image.Image) (phase.Phase, float64) {
	if c.last != nil && c.conf >= c.minConfidence() && helpers.FramesEqual(c.last, img, c.tolerance) {
		c.hits++
		return c.digit, c.conf
	}
	c.digit, c.conf = c.next.Classify(img)
	c.last = nil
	if c.digit.Valid() {
		c.last = img
	}
	return c.digit, c.conf
}

// Hits возвращает число кадров, классифицированных из кэша
func (c *Cached) Hits() int {
	return c.hits
}
