package pixel

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"superpix/internal/colorspace"
)

// Pixel is a color sample at an integer image position.
type Pixel struct {
	X, Y  int
	Color colorspace.Lab
}

// Centroid summarizes a cluster by its mean position and mean color.
type Centroid struct {
	Position r2.Vec
	Color    colorspace.Lab
}

// FromRGB builds a pixel from an sRGB sample.
func FromRGB(x, y int, c colorspace.RGB) Pixel {
	return Pixel{X: x, Y: y, Color: c.Lab()}
}

// Position returns the pixel coordinate as a vector.
func (p Pixel) Position() r2.Vec {
	return r2.Vec{X: float64(p.X), Y: float64(p.Y)}
}

// Centroid returns a centroid sitting exactly on p.
func (p Pixel) Centroid() Centroid {
	return Centroid{Position: p.Position(), Color: p.Color}
}

// LabVec returns the color as a vector in L*a*b* space.
func LabVec(c colorspace.Lab) r3.Vec {
	return r3.Vec{X: c.L, Y: c.A, Z: c.B}
}

// VecLab is the inverse of LabVec.
func VecLab(v r3.Vec) colorspace.Lab {
	return colorspace.Lab{L: v.X, A: v.Y, B: v.Z}
}

// ColorDistance is the squared Euclidean distance between two colors.
func ColorDistance(a, b colorspace.Lab) float64 {
	return r3.Norm2(r3.Sub(LabVec(a), LabVec(b)))
}

// SpatialDistance is the squared Euclidean distance between two positions.
func SpatialDistance(a, b r2.Vec) float64 {
	return r2.Norm2(r2.Sub(a, b))
}

// Distance weighs the squared color distance against the squared spatial
// distance between p and c. The spatial term is scaled by m/s, where m is
// the compactness and s the expected centroid spacing.
func Distance(p Pixel, c Centroid, m, s float64) float64 {
	return ColorDistance(p.Color, c.Color) + (m/s)*SpatialDistance(p.Position(), c.Position)
}
