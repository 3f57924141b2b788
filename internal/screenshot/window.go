package screenshot

import (
	"fmt"
	"image"

	"tickwatch/internal/config"
)

// GameWindow представляет найденное окно игры
type GameWindow struct {
	X, Y, Width, Height int
}

// isBlack: граница окна: все каналы ниже 10
func isBlack(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r>>8 < 10 && g>>8 < 10 && b>>8 < 10
}

// FindGameWindow ищет первую нечерную точку, затем расширяет прямоугольник до границ окна (граница: черный цвет)
func FindGameWindow(img image.Image) (*GameWindow, error) {
	bounds := img.Bounds()

	// 1. Найти первую нечерную точку
	found := false
	var startX, startY int
	for y := bounds.Min.Y; y < bounds.Max.Y && !found; y++ {
		for x := bounds.Min.X; x < bounds.Max.X && !found; x++ {
			if !isBlack(img, x, y) {
				startX, startY = x, y
				found = true
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("game window not found")
	}

	// 2. Расширяем прямоугольник до черной границы
	left, right := startX, startX
	top, bottom := startY, startY
	for x := startX; x < bounds.Max.X && !isBlack(img, x, startY); x++ {
		right = x
	}
	for x := startX; x >= bounds.Min.X && !isBlack(img, x, startY); x-- {
		left = x
	}
	for y := startY; y < bounds.Max.Y && !isBlack(img, startX, y); y++ {
		bottom = y
	}
	for y := startY; y >= bounds.Min.Y && !isBlack(img, startX, y); y-- {
		top = y
	}

	return &GameWindow{
		X:      left,
		Y:      top,
		Width:  right - left + 1,
		Height: bottom - top + 1,
	}, nil
}

// ResolveRegion переводит область индикатора из координат окна игры в
// координаты экрана. topOffset пикселей сверху (панель задач, заголовок)
// исключаются из поиска окна.
func ResolveRegion(screen image.Image, region config.CoordinatesWithSize, topOffset int) (config.CoordinatesWithSize, error) {
	bounds := screen.Bounds()
	searchArea := image.Rect(bounds.Min.X, bounds.Min.Y+topOffset, bounds.Max.X, bounds.Max.Y)
	if searchArea.Empty() {
		return region, fmt.Errorf("window_top_offset %d больше высоты экрана", topOffset)
	}

	sub, ok := screen.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return region, fmt.Errorf("изображение экрана не поддерживает SubImage")
	}

	window, err := FindGameWindow(sub.SubImage(searchArea))
	if err != nil {
		return region, fmt.Errorf("окно не найдено: %v", err)
	}

	return config.CoordinatesWithSize{
		X:      window.X + region.X,
		Y:      window.Y + region.Y,
		Width:  region.Width,
		Height: region.Height,
	}, nil
}
