package kmeans

import (
	"context"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"superpix/internal/pixel"
	"superpix/internal/worker"
)

// assignAll labels every pixel with its nearest centroid. Each worker owns a
// disjoint range of labels and only reads centroids.
func assignAll(ctx context.Context, pixels []pixel.Pixel, labels []label, centroids []pixel.Centroid, m, s float64, workers int) error {
	return worker.ForEachChunk(ctx, len(pixels), workers, func(_ context.Context, _ int, c worker.Chunk) error {
		assign(pixels[c.Start:c.End], labels[c.Start:c.End], centroids, m, s)
		return nil
	})
}

// assign resets each label and scans all centroids. Ties keep the earlier
// centroid.
func assign(pixels []pixel.Pixel, labels []label, centroids []pixel.Centroid, m, s float64) {
	for i, p := range pixels {
		l := unassigned()
		for j, c := range centroids {
			d := pixel.Distance(p, c, m, s)
			if d < l.distance || l.cluster == Unassigned {
				l = label{distance: d, cluster: j}
			}
		}
		labels[i] = l
	}
}

// accumulator sums the members of one cluster.
type accumulator struct {
	position r2.Vec
	color    r3.Vec
	count    int
}

func (a *accumulator) add(p pixel.Pixel) {
	a.position = r2.Add(a.position, p.Position())
	a.color = r3.Add(a.color, pixel.LabVec(p.Color))
	a.count++
}

func (a *accumulator) merge(o accumulator) {
	a.position = r2.Add(a.position, o.position)
	a.color = r3.Add(a.color, o.color)
	a.count += o.count
}

func (a accumulator) centroid() pixel.Centroid {
	n := float64(a.count)
	return pixel.Centroid{
		Position: r2.Scale(1/n, a.position),
		Color:    pixel.VecLab(r3.Scale(1/n, a.color)),
	}
}

// updateAll computes the next centroids as the mean position and mean color
// of each cluster's members. Workers build partial sums over their own
// pixel ranges which are merged in worker order. A cluster without members
// keeps its current centroid and is reported in empty.
func updateAll(ctx context.Context, pixels []pixel.Pixel, labels []label, current []pixel.Centroid, workers int) (next []pixel.Centroid, empty []int, err error) {
	k := len(current)
	partials := make([][]accumulator, len(worker.Split(len(pixels), workers)))
	err = worker.ForEachChunk(ctx, len(pixels), workers, func(_ context.Context, w int, c worker.Chunk) error {
		acc := make([]accumulator, k)
		for i := c.Start; i < c.End; i++ {
			if j := labels[i].cluster; j != Unassigned {
				acc[j].add(pixels[i])
			}
		}
		partials[w] = acc
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	totals := make([]accumulator, k)
	for _, acc := range partials {
		for j := range acc {
			totals[j].merge(acc[j])
		}
	}

	next = make([]pixel.Centroid, k)
	for j, t := range totals {
		if t.count == 0 {
			next[j] = current[j]
			empty = append(empty, j)
			continue
		}
		next[j] = t.centroid()
	}
	return next, empty, nil
}
