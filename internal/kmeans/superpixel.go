package kmeans

import (
	"image"

	"github.com/samber/lo"

	"superpix/internal/colorspace"
	"superpix/internal/pixel"
)

// Superpixel is one cluster of the current segmentation.
type Superpixel struct {
	Index    int
	Centroid pixel.Centroid
	// Color is the displayable mean color of the members.
	Color   colorspace.RGB
	Members []pixel.Pixel
}

// Empty reports whether the cluster had no members in the last tick.
func (sp Superpixel) Empty() bool {
	return len(sp.Members) == 0
}

// Points returns the member positions.
func (sp Superpixel) Points() []image.Point {
	return lo.Map(sp.Members, func(p pixel.Pixel, _ int) image.Point {
		return image.Pt(p.X, p.Y)
	})
}

// Superpixels groups the pixels by their current label. The result has one
// entry per cluster, indexed by cluster identifier; members keep the order
// in which the pixels were given to New. Unassigned pixels are left out.
func (s *Solver) Superpixels() []Superpixel {
	out := make([]Superpixel, len(s.centroids))
	for j, c := range s.centroids {
		out[j] = Superpixel{Index: j, Centroid: c, Color: c.Color.RGB()}
	}
	for i, l := range s.labels {
		if l.cluster != Unassigned {
			out[l.cluster].Members = append(out[l.cluster].Members, s.pixels[i])
		}
	}
	return out
}

// Sizes returns the number of pixels labelled with each cluster.
func (s *Solver) Sizes() []int {
	counts := lo.CountValues(lo.Map(s.labels, func(l label, _ int) int { return l.cluster }))
	return lo.Times(len(s.centroids), func(j int) int { return counts[j] })
}
