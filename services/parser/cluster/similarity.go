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

import "github.com/AleutianAI/AleutianComply/services/parser/embedding"

// CosineDistance is 1 minus cosine similarity. Zero-norm vectors are maximally
// distant from everything.
func CosineDistance(a, b []float32) float64 {
	return 1 - embedding.CosineSimilarity(a, b)
}

// MeanPairwiseCosine returns the mean pairwise cosine similarity among the
// rows of matrix selected by indices. Fewer than two rows score 1.0.
func MeanPairwiseCosine(matrix [][]float32, indices []int) float64 {
	if len(indices) < 2 {
		return 1.0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			sum += embedding.CosineSimilarity(matrix[indices[i]], matrix[indices[j]])
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return sum / float64(pairs)
}
