package screenshot

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickwatch/internal/config"
	"tickwatch/internal/logger"
)

// screenWithWindow рисует черный экран с серым окном в заданном прямоугольнике
func screenWithWindow(w, h int, window image.Rectangle) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.Black)
		}
	}
	for y := window.Min.Y; y < window.Max.Y; y++ {
		for x := window.Min.X; x < window.Max.X; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	return img
}

func stubCapture(t *testing.T, fn func(image.Rectangle) (image.Image, error)) {
	t.Helper()
	orig := captureRect
	captureRect = fn
	t.Cleanup(func() { captureRect = orig })
}

func TestFindGameWindow(t *testing.T) {
	img := screenWithWindow(200, 150, image.Rect(30, 20, 130, 100))

	w, err := FindGameWindow(img)
	require.NoError(t, err)
	assert.Equal(t, GameWindow{X: 30, Y: 20, Width: 100, Height: 80}, *w)
}

func TestFindGameWindowAllBlack(t *testing.T) {
	img := screenWithWindow(50, 50, image.Rectangle{})
	_, err := FindGameWindow(img)
	assert.Error(t, err)
}

func TestResolveRegionOffsetsByWindowOrigin(t *testing.T) {
	// полоса сверху (панель задач) не черная и должна быть пропущена
	img := screenWithWindow(200, 150, image.Rect(30, 40, 130, 120))
	for x := 0; x < 200; x++ {
		for y := 0; y < 10; y++ {
			img.Set(x, y, color.White)
		}
	}

	region := config.CoordinatesWithSize{X: 5, Y: 7, Width: 20, Height: 10}
	got, err := ResolveRegion(img, region, 10)
	require.NoError(t, err)
	assert.Equal(t, config.CoordinatesWithSize{X: 35, Y: 47, Width: 20, Height: 10}, got)

	_, err = ResolveRegion(img, region, 500)
	assert.Error(t, err)
}

func TestCaptureFrame(t *testing.T) {
	var asked image.Rectangle
	frame := image.NewRGBA(image.Rect(0, 0, 4, 4))
	stubCapture(t, func(r image.Rectangle) (image.Image, error) {
		asked = r
		return frame, nil
	})

	m := NewScreenshotManager(config.CoordinatesWithSize{X: 10, Y: 20, Width: 48, Height: 32}, logger.NewNopLoggerManager())
	img, ok := m.CaptureFrame()
	require.True(t, ok)
	assert.Same(t, frame, img)
	assert.Equal(t, image.Rect(10, 20, 58, 52), asked)
	assert.Equal(t, asked, m.Region())
}

func TestCaptureFrameFailureIsNotFatal(t *testing.T) {
	stubCapture(t, func(image.Rectangle) (image.Image, error) {
		return nil, errors.New("display busy")
	})

	m := NewScreenshotManager(config.CoordinatesWithSize{Width: 8, Height: 8}, logger.NewNopLoggerManager())
	img, ok := m.CaptureFrame()
	assert.False(t, ok)
	assert.Nil(t, img)

	_, err := CaptureFullScreen(100, 100)
	assert.Error(t, err)
}
