package render

import (
	"image"
	"image/color"
)

const (
	// Binary threshold separating content from background, 0-255.
	binaryThreshold = 200

	// Minimum component size in pixels, filters speckle noise.
	minComponentPixels = 100
)

// Region is a detected graphic area in pixel coordinates.
type Region struct {
	Rect       image.Rectangle
	PixelCount int
}

// DetectGraphics finds connected dark regions on a rendered page that
// are at least minSizePt wide and tall when mapped back to PDF points.
// Text lines fall below the size floor; figures, stamps and charts
// survive it.
func DetectGraphics(gray *image.Gray, dpi float64, minSizePt float64) []Region {
	binary := applyThreshold(gray, binaryThreshold)
	components := findConnectedComponents(binary, minComponentPixels)

	ptPerPixel := 72.0 / dpi
	var out []Region
	for _, c := range components {
		wPt := float64(c.Rect.Dx()) * ptPerPixel
		hPt := float64(c.Rect.Dy()) * ptPerPixel
		if wPt >= minSizePt && hPt >= minSizePt {
			out = append(out, c)
		}
	}
	return out
}

// applyThreshold converts grayscale to binary (0 or 255).
func applyThreshold(img *image.Gray, threshold uint8) *image.Gray {
	bounds := img.Bounds()
	binary := image.NewGray(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if img.GrayAt(x, y).Y < threshold {
				binary.SetGray(x, y, color.Gray{Y: 0})
			} else {
				binary.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return binary
}

// findConnectedComponents finds dark connected components with an
// iterative flood fill.
func findConnectedComponents(img *image.Gray, minPixels int) []Region {
	bounds := img.Bounds()
	visited := make([][]bool, bounds.Dy())
	for i := range visited {
		visited[i] = make([]bool, bounds.Dx())
	}

	var components []Region
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y == 255 {
				continue
			}
			comp := floodFill(img, visited, x, y, bounds)
			if comp.PixelCount >= minPixels {
				components = append(components, comp)
			}
		}
	}
	return components
}

func floodFill(img *image.Gray, visited [][]bool, startX, startY int, bounds image.Rectangle) Region {
	minX, minY, maxX, maxY := startX, startY, startX, startY
	count := 0

	stack := []image.Point{{X: startX, Y: startY}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := p.X, p.Y

		if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		if visited[y-bounds.Min.Y][x-bounds.Min.X] || img.GrayAt(x, y).Y == 255 {
			continue
		}

		visited[y-bounds.Min.Y][x-bounds.Min.X] = true
		count++

		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}

		stack = append(stack,
			image.Point{X: x + 1, Y: y},
			image.Point{X: x - 1, Y: y},
			image.Point{X: x, Y: y + 1},
			image.Point{X: x, Y: y - 1},
		)
	}

	return Region{
		Rect:       image.Rect(minX, minY, maxX+1, maxY+1),
		PixelCount: count,
	}
}
