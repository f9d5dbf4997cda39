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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBSCANTwoClustersWithNoise(t *testing.T) {
	matrix := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
		{0.01, 0.99, 0},
		{0.5, 0.5, 0.7}, // close to neither direction
	}

	labels, ok := NewDBSCAN(0.3, 2).Assign(matrix)
	require.True(t, ok)
	require.Len(t, labels, 5)

	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[2], labels[3])
	assert.NotEqual(t, labels[0], labels[2])
	assert.Equal(t, Noise, labels[4])
}

func TestDBSCANPairPlusOutlier(t *testing.T) {
	// Two near-duplicates plus one unrelated statement. The pair clusters and
	// the outlier is noise, but structure was still found, so the centroid
	// pass never runs.
	matrix := [][]float32{
		{1, 0},
		{0.999, 0.045},
		{0, 1},
	}

	labels, ok := NewDBSCAN(0.3, 2).Assign(matrix)
	require.True(t, ok)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, Noise, labels[2])
}

func TestDBSCANAllIdenticalNoStructure(t *testing.T) {
	matrix := [][]float32{
		{1, 0},
		{1, 0},
		{1, 0},
	}

	labels, ok := NewDBSCAN(0.3, 2).Assign(matrix)
	assert.False(t, ok, "one giant cluster is not usable structure")
	for _, l := range labels {
		assert.Equal(t, 0, l)
	}
}

func TestDBSCANAllNoiseNoStructure(t *testing.T) {
	// Mutually orthogonal vectors: nothing within eps of anything.
	matrix := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	labels, ok := NewDBSCAN(0.3, 2).Assign(matrix)
	assert.False(t, ok)
	for _, l := range labels {
		assert.Equal(t, Noise, l)
	}
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0.0, CosineDistance([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, 1.0, CosineDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, 2.0, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.InDelta(t, 1.0, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-6)
}

func TestMeanPairwiseCosine(t *testing.T) {
	matrix := [][]float32{
		{1, 0},
		{1, 0},
		{0, 1},
	}

	assert.InDelta(t, 1.0, MeanPairwiseCosine(matrix, []int{0}), 1e-6, "singleton scores 1.0")
	assert.InDelta(t, 1.0, MeanPairwiseCosine(matrix, []int{0, 1}), 1e-6)
	// Pairs: (0,1)=1, (0,2)=0, (1,2)=0 -> mean 1/3.
	assert.InDelta(t, 1.0/3.0, MeanPairwiseCosine(matrix, []int{0, 1, 2}), 1e-6)
}
