package imageproc

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/samber/lo"

	"superpix/internal/colorspace"
	"superpix/internal/kmeans"
	"superpix/internal/pixel"
)

// Palette picks the fill color of a superpixel.
type Palette func(sp kmeans.Superpixel) colorspace.RGB

// MeanPalette fills each superpixel with its mean color.
func MeanPalette(sp kmeans.Superpixel) colorspace.RGB {
	return sp.Color
}

// RandomPalette returns a palette of k bright, distinguishable colors drawn
// from a seeded source, so the same seed always colors a superpixel the same.
func RandomPalette(k int, seed uint64) Palette {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	colors := lo.Times(k, func(int) colorspace.RGB {
		c := colorful.Hsv(rng.Float64()*360, 0.4+0.5*rng.Float64(), 0.6+0.4*rng.Float64())
		return colorspace.FromColorful(c)
	})
	return func(sp kmeans.Superpixel) colorspace.RGB {
		if len(colors) == 0 {
			return sp.Color
		}
		return colors[sp.Index%len(colors)]
	}
}

// PixelsFromImage converts every pixel of img to L*a*b*. Positions are
// relative to the image bounds, so the result always starts at (0, 0).
func PixelsFromImage(img image.Image) (pixels []pixel.Pixel, width, height int) {
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	pixels = make([]pixel.Pixel, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			pixels = append(pixels, pixel.FromRGB(x, y, colorspace.RGB{R: c.R, G: c.G, B: c.B}))
		}
	}
	return pixels, width, height
}

// Render paints every superpixel member with the palette color of its
// superpixel.
func Render(width, height int, sps []kmeans.Superpixel, palette Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for _, sp := range sps {
		c := palette(sp)
		fill := color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
		for _, p := range sp.Members {
			img.SetRGBA(p.X, p.Y, fill)
		}
	}
	return img
}

// DrawBoundaries marks every pixel whose right or lower neighbour belongs to
// a different superpixel.
func DrawBoundaries(img *image.RGBA, labelAt func(x, y int) int, c color.RGBA) {
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			l := labelAt(x, y)
			if (x+1 < b.Dx() && labelAt(x+1, y) != l) || (y+1 < b.Dy() && labelAt(x, y+1) != l) {
				img.SetRGBA(b.Min.X+x, b.Min.Y+y, c)
			}
		}
	}
}
