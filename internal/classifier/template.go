package classifier

import (
	"fmt"
	"image"
	"path/filepath"

	"gocv.io/x/gocv"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
	"tickwatch/internal/phase"
)

// TemplateClassifier сравнивает кадр с эталонами digit_1..4.png на нескольких масштабах
type TemplateClassifier struct {
	templates []gocv.Mat // индекс d-1 для цифры d
	scales    []float64
	minScore  float64
	logger    *logger.LoggerManager
}

// TemplatePath возвращает путь к эталону цифры
func TemplatePath(dir string, d phase.Phase) string {
	return filepath.Join(dir, fmt.Sprintf("digit_%d.png", d))
}

// NewTemplateClassifier загружает эталоны цифр в оттенках серого
func NewTemplateClassifier(cfg config.Classifier, loggerManager *logger.LoggerManager) (*TemplateClassifier, error) {
	c := &TemplateClassifier{
		scales:   cfg.Scales,
		minScore: cfg.MinScore,
		logger:   loggerManager,
	}
	for d := phase.Phase(1); d <= phase.Count; d++ {
		path := TemplatePath(cfg.TemplatesDir, d)
		mat := gocv.IMRead(path, gocv.IMReadGrayScale)
		if mat.Empty() {
			mat.Close()
			c.Close()
			return nil, fmt.Errorf("не удалось загрузить эталон %s", path)
		}
		c.templates = append(c.templates, mat)
	}
	loggerManager.Info("🔢 Загружено %d эталонов цифр из %s, масштабы %v", phase.Count, cfg.TemplatesDir, cfg.Scales)
	return c, nil
}

// Close освобождает матрицы эталонов
func (c *TemplateClassifier) Close() {
	for _, mat := range c.templates {
		mat.Close()
	}
	c.templates = nil
}

// Classify возвращает цифру с лучшим совпадением TM_CCOEFF_NORMED
func (c *TemplateClassifier) Classify(img image.Image) (phase.Phase, float64) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		c.logger.Debug("🔢 Не удалось преобразовать кадр: %v", err)
		return phase.None, 0
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	var scores Scores
	for d := phase.Phase(1); d <= phase.Count; d++ {
		scores[d] = c.bestScore(gray, c.templates[d-1])
	}
	return PickBest(scores, c.minScore)
}

// bestScore: максимум совпадения эталона по всем масштабам.
// Масштабы, при которых эталон больше кадра, пропускаются.
func (c *TemplateClassifier) bestScore(frame, templ gocv.Mat) float64 {
	best := -1.0
	for _, scale := range c.scales {
		size := image.Pt(int(float64(templ.Cols())*scale), int(float64(templ.Rows())*scale))
		if size.X < 1 || size.Y < 1 || size.X > frame.Cols() || size.Y > frame.Rows() {
			continue
		}

		scaled := gocv.NewMat()
		gocv.Resize(templ, &scaled, size, 0, 0, gocv.InterpolationLinear)

		result := gocv.NewMat()
		mask := gocv.NewMat()
		gocv.MatchTemplate(frame, scaled, &result, gocv.TmCcoeffNormed, mask)
		_, maxVal, _, _ := gocv.MinMaxLoc(result)

		mask.Close()
		result.Close()
		scaled.Close()

		if float64(maxVal) > best {
			best = float64(maxVal)
		}
	}
	return best
}
