package helpers

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// GetPixelColor получает цвет пикселя по координатам
func GetPixelColor(img image.Image, x int, y int) (int, int, int) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return 0, 0, 0
	}

	r, g, b, _ := img.At(x, y).RGBA()
	return int(r >> 8), int(g >> 8), int(b >> 8)
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// FramesEqual сравнивает два кадра попиксельно. Каналы могут отличаться не
// больше чем на tolerance. Кадры разного размера не равны.
func FramesEqual(a, b image.Image, tolerance int) bool {
	if a == nil || b == nil {
		return false
	}
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Dx() != bb.Dx() || ab.Dy() != bb.Dy() {
		return false
	}
	for dy := 0; dy < ab.Dy(); dy++ {
		for dx := 0; dx < ab.Dx(); dx++ {
			r1, g1, b1 := GetPixelColor(a, ab.Min.X+dx, ab.Min.Y+dy)
			r2, g2, b2 := GetPixelColor(b, bb.Min.X+dx, bb.Min.Y+dy)
			if absDiff(r1, r2) > tolerance || absDiff(g1, g2) > tolerance || absDiff(b1, b2) > tolerance {
				return false
			}
		}
	}
	return true
}

// SavePNG сохраняет кадр в файл, создавая директорию
func SavePNG(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create dir: %v", err)
	}
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("failed to encode image: %v", err)
	}
	return file.Close()
}
