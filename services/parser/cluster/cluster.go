// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cluster groups embedding vectors into semantic clusters.
//
// # Description
//
// Clustering runs as an ordered strategy chain: a density-based pass (DBSCAN
// over cosine distance) that discovers cluster count on its own, then a
// centroid-based pass (seeded k-means) when density clustering finds no
// structure. Every strategy either returns a valid partition or reports "no
// structure found", and the chain advances on that sentinel. The final
// fallback is a single cluster holding everything.
//
// The noise label -1 only ever comes out of the density pass; callers are
// expected to promote noise points to singleton clusters rather than drop
// them.
package cluster

import "log/slog"

// Noise is the label assigned by the density pass to points without a
// sufficiently dense neighborhood.
const Noise = -1

// Strategy assigns cluster labels to row vectors.
type Strategy interface {
	// Name identifies the strategy for logging.
	Name() string

	// Assign returns one label per row. ok is false when the strategy found
	// no structure and the caller should try the next strategy.
	Assign(matrix [][]float32) (labels []int, ok bool)
}

// Chain tries strategies in order and falls back to one-cluster labels.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain over the given strategies.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// DefaultChain is DBSCAN (eps 0.3 cosine, minPts 2) followed by seeded
// k-means with k = min(N/2, 20).
func DefaultChain() *Chain {
	return NewChain(
		NewDBSCAN(0.3, 2),
		NewKMeans(20, 42),
	)
}

// Assign labels every row of matrix. The result always has len(matrix)
// entries; when no strategy finds structure all rows share label 0.
func (c *Chain) Assign(matrix [][]float32) []int {
	n := len(matrix)
	if n == 0 {
		return []int{}
	}
	if n == 1 {
		return []int{0}
	}

	for _, s := range c.strategies {
		labels, ok := s.Assign(matrix)
		if ok {
			slog.Debug("cluster strategy assigned labels", "strategy", s.Name(), "points", n)
			return labels
		}
		slog.Debug("cluster strategy found no structure", "strategy", s.Name(), "points", n)
	}

	return make([]int, n)
}

// foundStructure reports whether labels contain more than one distinct
// value. A single value, whether one giant cluster or all noise, means the
// pass learned nothing useful.
func foundStructure(labels []int) bool {
	if len(labels) == 0 {
		return false
	}
	first := labels[0]
	for _, l := range labels[1:] {
		if l != first {
			return true
		}
	}
	return false
}
