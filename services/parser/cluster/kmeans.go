// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cluster

import (
	"math"
	"math/rand"
)

// maxKMeansIterations bounds Lloyd iterations; convergence usually happens
// well before this on requirement batches.
const maxKMeansIterations = 20

// KMeans is the centroid-based pass used when density clustering finds no
// structure. k is derived from the batch size as min(N/2, maxK), and the
// random source is seeded so identical inputs always produce identical
// partitions.
type KMeans struct {
	maxK int
	seed int64
}

// NewKMeans creates a centroid pass with the given cluster cap and seed.
func NewKMeans(maxK int, seed int64) *KMeans {
	return &KMeans{maxK: maxK, seed: seed}
}

// Name implements Strategy.
func (k *KMeans) Name() string { return "kmeans" }

// Assign implements Strategy. ok is false when the derived k is below 2, in
// which case the chain's one-cluster fallback applies.
func (k *KMeans) Assign(matrix [][]float32) ([]int, bool) {
	n := len(matrix)
	numClusters := n / 2
	if numClusters > k.maxK {
		numClusters = k.maxK
	}
	if n < 2 || numClusters < 2 {
		return nil, false
	}

	rng := rand.New(rand.NewSource(k.seed))
	centroids := initCentroidsPlusPlus(matrix, numClusters, rng)

	labels := make([]int, n)
	for iter := 0; iter < maxKMeansIterations; iter++ {
		// Assignment step.
		for i, vec := range matrix {
			labels[i], _ = closestCentroid(vec, centroids)
		}

		// Update step.
		converged := true
		for c := range centroids {
			members := make([][]float32, 0)
			for i, l := range labels {
				if l == c {
					members = append(members, matrix[i])
				}
			}
			if len(members) == 0 {
				continue
			}
			updated := meanVector(members)
			if euclideanDistance(centroids[c], updated) > 1e-5 {
				converged = false
			}
			centroids[c] = updated
		}
		if converged {
			break
		}
	}

	return labels, true
}

// initCentroidsPlusPlus spreads the initial centroids apart by sampling each
// next centroid with probability proportional to squared distance from the
// nearest existing one (k-means++).
func initCentroidsPlusPlus(matrix [][]float32, k int, rng *rand.Rand) [][]float32 {
	centroids := make([][]float32, 0, k)
	centroids = append(centroids, matrix[rng.Intn(len(matrix))])

	for len(centroids) < k {
		distSq := make([]float64, len(matrix))
		var sumDistSq float64
		for i, vec := range matrix {
			_, d := closestCentroid(vec, centroids)
			distSq[i] = d * d
			sumDistSq += distSq[i]
		}

		selected := -1
		if sumDistSq > 0 {
			r := rng.Float64() * sumDistSq
			var cumulative float64
			for i, d := range distSq {
				cumulative += d
				if cumulative >= r {
					selected = i
					break
				}
			}
		}
		// Degenerate geometry or floating point residue: take the last point.
		if selected == -1 {
			selected = len(matrix) - 1
		}

		centroids = append(centroids, matrix[selected])
	}

	return centroids
}

// closestCentroid returns the index of and distance to the nearest centroid.
func closestCentroid(vec []float32, centroids [][]float32) (int, float64) {
	best := 0
	bestDist := math.MaxFloat64
	for i, c := range centroids {
		if d := euclideanDistance(vec, c); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best, bestDist
}

func euclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func meanVector(vecs [][]float32) []float32 {
	if len(vecs) == 0 {
		return nil
	}
	dim := len(vecs[0])
	mean := make([]float32, dim)
	for _, v := range vecs {
		for i := 0; i < dim && i < len(v); i++ {
			mean[i] += v[i]
		}
	}
	for i := range mean {
		mean[i] /= float32(len(vecs))
	}
	return mean
}
