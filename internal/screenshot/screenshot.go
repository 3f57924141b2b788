package screenshot

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
)

// captureRect вынесен в переменную, чтобы тесты могли подменить захват экрана
var captureRect = func(bounds image.Rectangle) (image.Image, error) {
	return screenshot.CaptureRect(bounds)
}

// ScreenshotManager захватывает область индикатора тика
type ScreenshotManager struct {
	region   image.Rectangle
	logger   *logger.LoggerManager
	failures int
}

// NewScreenshotManager создает новый экземпляр ScreenshotManager
func NewScreenshotManager(c config.CoordinatesWithSize, loggerManager *logger.LoggerManager) *ScreenshotManager {
	return &ScreenshotManager{
		region: image.Rect(c.X, c.Y, c.X+c.Width, c.Y+c.Height),
		logger: loggerManager,
	}
}

// Region возвращает область захвата в координатах экрана
func (m *ScreenshotManager) Region() image.Rectangle {
	return m.region
}

// CaptureFrame захватывает кадр. Сбой захвата: не ошибка цикла:
// возвращается false, и опрос просто пропускается.
func (m *ScreenshotManager) CaptureFrame() (image.Image, bool) {
	img, err := captureRect(m.region)
	if err != nil || img == nil {
		m.failures++
		m.logger.Debug("📷 Кадр не захвачен (%d подряд): %v", m.failures, err)
		return nil, false
	}
	m.failures = 0
	return img, true
}

// CaptureFullScreen захватывает скриншот всего экрана
func CaptureFullScreen(width, height int) (image.Image, error) {
	img, err := captureRect(image.Rect(0, 0, width, height))
	if err != nil {
		return nil, fmt.Errorf("failed to capture full screen: %v", err)
	}
	return img, nil
}
