// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTFIDFEmptyBatch(t *testing.T) {
	matrix, err := NewTFIDF().EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, matrix)
}

func TestTFIDFNilContext(t *testing.T) {
	_, err := NewTFIDF().EmbedBatch(nil, []string{"text"}) //nolint:staticcheck
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestTFIDFRowShape(t *testing.T) {
	texts := []string{
		"file ownership disclosure statement with the commission",
		"disclose material risk factors annually",
		"maintain accurate books and records",
	}
	matrix, err := NewTFIDF().EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, matrix, 3)

	dim := len(matrix[0])
	for _, row := range matrix {
		assert.Equal(t, dim, len(row), "all rows share one dimension")
	}
}

func TestTFIDFRowsAreUnitNorm(t *testing.T) {
	texts := []string{
		"file ownership disclosure within ten days",
		"report insider transactions to the regulator",
	}
	matrix, err := NewTFIDF().EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	for i, row := range matrix {
		var norm float64
		for _, v := range row {
			norm += float64(v) * float64(v)
		}
		assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5, "row %d", i)
	}
}

func TestTFIDFIdenticalTextsGetIdenticalVectors(t *testing.T) {
	texts := []string{
		"file   ownership\tdisclosure within 10 days",
		"file ownership disclosure within 10 days",
		"completely unrelated maintenance obligation",
	}
	matrix, err := NewTFIDF().EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	// Whitespace-only differences vanish under tokenization.
	assert.Equal(t, matrix[0], matrix[1])
	assert.InDelta(t, 1.0, CosineSimilarity(matrix[0], matrix[1]), 1e-6)
	assert.Less(t, CosineSimilarity(matrix[0], matrix[2]), 0.5)
}

func TestTFIDFDeterministic(t *testing.T) {
	texts := []string{
		"beneficial owners must file ownership reports",
		"executive officers must certify financial statements",
	}
	a, err := NewTFIDF().EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	b, err := NewTFIDF().EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTFIDFStopWordOnlyBatch(t *testing.T) {
	matrix, err := NewTFIDF().EmbedBatch(context.Background(), []string{"the and of", "to be or"})
	require.NoError(t, err)
	require.Len(t, matrix, 2)
	for _, row := range matrix {
		assert.NotEmpty(t, row, "degenerate batches still produce well-formed rows")
	}
}

func TestTFIDFMaxFeaturesCap(t *testing.T) {
	texts := []string{
		"alpha beta gamma delta epsilon zeta eta theta",
		"iota kappa lambda mu nu xi omicron pi",
	}
	matrix, err := NewTFIDF().WithMaxFeatures(5).EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Equal(t, 5, len(matrix[0]))
}

func TestTFIDFAlwaysAvailable(t *testing.T) {
	assert.True(t, NewTFIDF().Available(context.Background()))
}
