package imageproc

import (
	"sort"

	"superpix/internal/kmeans"
)

// SuperpixelAnalysis summarizes one superpixel for reporting.
type SuperpixelAnalysis struct {
	Index      int     `json:"index"`
	Color      string  `json:"color"`
	Size       int     `json:"size"`
	Proportion float64 `json:"proportion"`
	Hue        float64 `json:"hue"`
	Saturation float64 `json:"saturation"`
	Lightness  float64 `json:"lightness"`
}

// Analyze describes every non-empty superpixel, largest first. Proportions
// are relative to the total member count.
func Analyze(sps []kmeans.Superpixel) []SuperpixelAnalysis {
	total := 0
	for _, sp := range sps {
		total += len(sp.Members)
	}
	if total == 0 {
		return nil
	}

	out := make([]SuperpixelAnalysis, 0, len(sps))
	for _, sp := range sps {
		if sp.Empty() {
			continue
		}
		h, s, l := sp.Color.Colorful().Hsl()
		out = append(out, SuperpixelAnalysis{
			Index:      sp.Index,
			Color:      sp.Color.Hex(),
			Size:       len(sp.Members),
			Proportion: float64(len(sp.Members)) / float64(total),
			Hue:        h,
			Saturation: s,
			Lightness:  l,
		})
	}

	// Sort by proportion in descending order, keeping index order for ties
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Proportion > out[j].Proportion
	})
	return out
}
