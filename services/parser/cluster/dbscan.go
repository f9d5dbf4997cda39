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

// DBSCAN is the density-based pass over cosine distance.
//
// A point is a core point when its eps-neighborhood (itself included) holds
// at least minPts points. Clusters grow outward from core points; points
// reachable from no core point are labeled Noise.
type DBSCAN struct {
	eps    float64
	minPts int
}

// NewDBSCAN creates a density pass with the given cosine-distance radius and
// minimum neighborhood size.
func NewDBSCAN(eps float64, minPts int) *DBSCAN {
	return &DBSCAN{eps: eps, minPts: minPts}
}

// Name implements Strategy.
func (d *DBSCAN) Name() string { return "dbscan" }

// Assign implements Strategy. ok is false when every point lands in the same
// bucket (one cluster or all noise), which means density gave no usable
// partition.
func (d *DBSCAN) Assign(matrix [][]float32) ([]int, bool) {
	n := len(matrix)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}

	neighbors := d.neighborhoods(matrix)

	next := 0
	visited := make([]bool, n)
	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		visited[i] = true
		if len(neighbors[i]) < d.minPts {
			continue // not a core point; may still be claimed as a border point
		}

		labels[i] = next
		queue := append([]int(nil), neighbors[i]...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == Noise {
				labels[j] = next // border point
			}
			if visited[j] {
				continue
			}
			visited[j] = true
			labels[j] = next
			if len(neighbors[j]) >= d.minPts {
				queue = append(queue, neighbors[j]...)
			}
		}
		next++
	}

	return labels, foundStructure(labels)
}

// neighborhoods precomputes the eps-neighborhood (including self) of every
// point under cosine distance.
func (d *DBSCAN) neighborhoods(matrix [][]float32) [][]int {
	n := len(matrix)
	out := make([][]int, n)
	for i := 0; i < n; i++ {
		out[i] = append(out[i], i)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if CosineDistance(matrix[i], matrix[j]) <= d.eps {
				out[i] = append(out[i], j)
				out[j] = append(out[j], i)
			}
		}
	}
	return out
}
