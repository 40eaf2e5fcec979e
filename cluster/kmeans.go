package cluster

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

var ErrTooFewPoints = errors.New("cluster: fewer points than clusters")

// KMeans groups points into k clusters using k-means++ seeding followed by
// Lloyd iterations. Results are deterministic for a given seed. At least one
// assignment pass always runs, so every label is a valid cluster index.
func KMeans(points [][]float64, k, iterations int, seed uint64) (centroids [][]float64, labels []int, err error) {
	if k < 1 || len(points) < k {
		return nil, nil, ErrTooFewPoints
	}
	iterations = max(iterations, 1)
	rng := rand.New(rand.NewPCG(seed, seed+1))
	centroids = seedCentroids(rng, points, k)
	labels = make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	dim := len(points[0])
	for iter := 0; iter < iterations; iter++ {
		changed := false
		for i, p := range points {
			if c := Nearest(centroids, p); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for i, p := range points {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			// an empty cluster keeps its previous centroid
			if counts[c] == 0 {
				continue
			}
			floats.Scale(1/float64(counts[c]), sums[c])
			centroids[c] = sums[c]
		}
	}
	return centroids, labels, nil
}

func seedCentroids(rng *rand.Rand, points [][]float64, k int) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, clone(points[rng.IntN(len(points))]))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		var total float64
		for i, p := range points {
			d := floats.Distance(p, centroids[Nearest(centroids, p)], 2)
			dist[i] = d * d
			total += dist[i]
		}
		next := 0
		if total > 0 {
			target := rng.Float64() * total
			for i, d := range dist {
				target -= d
				if target <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.IntN(len(points))
		}
		centroids = append(centroids, clone(points[next]))
	}
	return centroids
}

// Nearest returns the index of the centroid closest to p.
func Nearest(centroids [][]float64, p []float64) int {
	best, bestDist := 0, -1.0
	for c, centroid := range centroids {
		d := floats.Distance(p, centroid, 2)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
