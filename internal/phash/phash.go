// Package phash computes 64-bit perceptual hashes of images. Two visually
// similar frames hash to values with a small Hamming distance, which is what
// the duplicate index compares.
package phash

import (
	"image"
	"image/color"

	"github.com/clipherd/clipherd/pkg/clipherd"
)

const gridSize = 8

// AverageHasher implements clipherd.PerceptualHasher with the average-hash
// algorithm: downscale to an 8x8 grayscale grid, then set one bit per cell
// that is brighter than the grid mean.
type AverageHasher struct{}

// New returns an AverageHasher.
func New() AverageHasher {
	return AverageHasher{}
}

// Hash computes the 64-bit average hash of img.
func (AverageHasher) Hash(img image.Image) clipherd.Fingerprint {
	var cells [gridSize * gridSize]uint64
	downscale(img, &cells)

	var sum uint64
	for _, c := range cells {
		sum += c
	}
	mean := sum / (gridSize * gridSize)

	var bits uint64
	for i, c := range cells {
		if c > mean {
			bits |= 1 << uint(i)
		}
	}
	return clipherd.Fingerprint(bits)
}

// downscale averages the source pixels into an 8x8 grayscale grid. Each cell
// covers an equal share of the bounds; images smaller than the grid degrade
// to nearest-pixel sampling.
func downscale(img image.Image, cells *[gridSize * gridSize]uint64) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return
	}

	for cy := 0; cy < gridSize; cy++ {
		y0 := bounds.Min.Y + cy*h/gridSize
		y1 := bounds.Min.Y + (cy+1)*h/gridSize
		if y1 == y0 {
			y1 = y0 + 1
		}
		for cx := 0; cx < gridSize; cx++ {
			x0 := bounds.Min.X + cx*w/gridSize
			x1 := bounds.Min.X + (cx+1)*w/gridSize
			if x1 == x0 {
				x1 = x0 + 1
			}

			var sum, n uint64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sum += uint64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
					n++
				}
			}
			cells[cy*gridSize+cx] = sum / n
		}
	}
}
