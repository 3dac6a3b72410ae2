package colorspace

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// D65 reference white, scaled so that Yn is 100.
const (
	RefX = 95.047
	RefY = 100.0
	RefZ = 108.883
)

const (
	gammaThreshold    = 0.04045
	invGammaThreshold = 0.0031308
	labThreshold      = 0.008856
)

// RGB is an 8-bit sRGB color.
type RGB struct {
	R, G, B uint8
}

// XYZ is a CIE 1931 color with Y in the range [0, 100].
type XYZ struct {
	X, Y, Z float64
}

// Lab is a CIE L*a*b* color relative to the D65 white point.
type Lab struct {
	L, A, B float64
}

// linearize inverts the sRGB gamma curve and scales the result to [0, 100].
// Values at the threshold take the power branch.
func linearize(v float64) float64 {
	if v >= gammaThreshold {
		v = math.Pow((v+0.055)/1.055, 2.4)
	} else {
		v /= 12.92
	}
	return v * 100
}

// compand applies the sRGB gamma curve and quantizes to 8 bits.
func compand(v float64) uint8 {
	if v >= invGammaThreshold {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	} else {
		v *= 12.92
	}
	return clamp8(math.Round(v * 255))
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

func labForward(t float64) float64 {
	if t >= labThreshold {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

func labInverse(t float64) float64 {
	cube := t * t * t
	if cube >= labThreshold {
		return cube
	}
	return (t - 16.0/116.0) / 7.787
}

// RGBToXYZ converts an 8-bit sRGB color to XYZ.
func RGBToXYZ(c RGB) XYZ {
	r := linearize(float64(c.R) / 255)
	g := linearize(float64(c.G) / 255)
	b := linearize(float64(c.B) / 255)

	return XYZ{
		X: r*0.4124 + g*0.3576 + b*0.1805,
		Y: r*0.2126 + g*0.7152 + b*0.0722,
		Z: r*0.0193 + g*0.1192 + b*0.9505,
	}
}

// XYZToRGB converts an XYZ color to 8-bit sRGB. Out of gamut channels are
// clamped to [0, 255].
func XYZToRGB(c XYZ) RGB {
	x := c.X / 100
	y := c.Y / 100
	z := c.Z / 100

	r := x*3.2406 + y*-1.5372 + z*-0.4986
	g := x*-0.9689 + y*1.8758 + z*0.0415
	b := x*0.0557 + y*-0.2040 + z*1.0570

	return RGB{R: compand(r), G: compand(g), B: compand(b)}
}

// XYZToLab converts an XYZ color to CIE L*a*b*.
func XYZToLab(c XYZ) Lab {
	x := labForward(c.X / RefX)
	y := labForward(c.Y / RefY)
	z := labForward(c.Z / RefZ)

	return Lab{
		L: 116*y - 16,
		A: 500 * (x - y),
		B: 200 * (y - z),
	}
}

// LabToXYZ converts a CIE L*a*b* color back to XYZ.
func LabToXYZ(c Lab) XYZ {
	y := (c.L + 16) / 116
	x := c.A/500 + y
	z := y - c.B/200

	return XYZ{
		X: labInverse(x) * RefX,
		Y: labInverse(y) * RefY,
		Z: labInverse(z) * RefZ,
	}
}

// Lab converts the color through XYZ into CIE L*a*b*.
func (c RGB) Lab() Lab {
	return XYZToLab(RGBToXYZ(c))
}

// Colorful returns the color as a go-colorful value.
func (c RGB) Colorful() colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return c.Colorful().Hex()
}

// RGB converts the color back to displayable sRGB.
func (c Lab) RGB() RGB {
	return XYZToRGB(LabToXYZ(c))
}

// Hex returns the displayable sRGB of the color as "#rrggbb".
func (c Lab) Hex() string {
	return c.RGB().Hex()
}

// FromColorful quantizes a go-colorful value to 8-bit sRGB.
func FromColorful(c colorful.Color) RGB {
	r, g, b := c.Clamped().RGB255()
	return RGB{R: r, G: g, B: b}
}

// Mean returns the channel-wise arithmetic mean of colors. The mean of an
// empty slice is the zero Lab.
func Mean(colors []Lab) Lab {
	if len(colors) == 0 {
		return Lab{}
	}
	var sum Lab
	for _, c := range colors {
		sum.L += c.L
		sum.A += c.A
		sum.B += c.B
	}
	n := float64(len(colors))
	return Lab{L: sum.L / n, A: sum.A / n, B: sum.B / n}
}
