// Package grid places the initial superpixel seeds on a regular lattice.
package grid

import (
	"image"
	"math"
)

// Spacing returns the expected distance between neighbouring seeds for k
// seeds on a width x height image, rounded to the nearest odd integer so
// that windows centred on a seed are symmetric.
func Spacing(width, height, k int) int {
	s := int(math.Round(math.Sqrt(float64(width*height) / float64(k))))
	if s%2 == 0 {
		s++
	}
	return s
}

// Dimensions returns the number of seed columns and rows of the lattice
// before any remainder column is split off.
func Dimensions(width, height, k int) (columns, rows int) {
	columns = int(math.Round(math.Sqrt(float64(k) * float64(width) / float64(height))))
	columns = max(1, min(columns, k))
	return columns, k / columns
}

// SamplePositions returns exactly k seed positions inside the image, one
// at the centre of each lattice cell. When k does not factor into the
// lattice, the last column is replaced by a column at the right edge that
// spreads the leftover seeds evenly over the image height. The result
// depends only on its arguments.
//
// Positions may repeat when the leftover column holds more seeds than the
// image has rows.
func SamplePositions(width, height, k int) []image.Point {
	if width <= 0 || height <= 0 || k <= 0 {
		return nil
	}

	columns, rows := Dimensions(width, height, k)
	cellWidth := float64(width) / float64(columns)
	cellHeight := float64(height) / float64(rows)

	exact := columns*rows == k
	if !exact {
		columns--
	}

	positions := make([]image.Point, 0, k)
	for i := 0; i < columns; i++ {
		x := cellCenter(i, cellWidth, width)
		for j := 0; j < rows; j++ {
			positions = append(positions, image.Pt(x, cellCenter(j, cellHeight, height)))
		}
	}
	if exact {
		return positions
	}

	remainder := k - columns*rows
	x := cellCenter(columns, cellWidth, width)
	step := float64(height) / float64(remainder)
	for j := 0; j < remainder; j++ {
		positions = append(positions, image.Pt(x, cellCenter(j, step, height)))
	}
	return positions
}

func cellCenter(i int, size float64, limit int) int {
	return min(int((float64(i)+0.5)*size), limit-1)
}
