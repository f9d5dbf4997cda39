// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package embedding provides the vector-space backends used to compare
// compliance requirement texts.
//
// # Description
//
// Requirement harmonization needs a numeric representation per requirement so
// that near-duplicate obligations land close together. This package exposes a
// single capability interface, Embedder, with several implementations:
//
//   - ServiceClient: HTTP client for the embeddings sidecar service.
//   - OpenAIEmbedder: hosted embedding model via the OpenAI API.
//   - ONNXEmbedder: local sentence-embedding model via onnxruntime.
//   - TFIDF: batch-local term-frequency vector space, always available.
//
// Semantic backends are preferred; TFIDF is the fallback when no model can be
// reached. Backend unavailability is never surfaced to harmonization callers.
package embedding

import (
	"context"
	"log/slog"
	"math"
)

// Embedder converts a batch of texts into fixed-width vectors.
//
// # Thread Safety
//
// Implementations are safe for concurrent use unless noted otherwise.
type Embedder interface {
	// EmbedBatch returns one vector per input text, in input order. An empty
	// batch returns an empty matrix and no error. Vectors within one call
	// share the same dimension.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name identifies the backend for logging and reports.
	Name() string

	// Available reports whether the backend can serve a batch right now.
	Available(ctx context.Context) bool
}

// Select returns the first available backend from preferred, falling back to
// a fresh TFIDF vectorizer when none responds.
//
// # Description
//
// Model unavailability is an expected condition, not an error: the TF-IDF
// vector space can always be fit over the batch itself, so selection never
// fails. The chosen backend is logged so degraded runs are visible.
func Select(ctx context.Context, preferred ...Embedder) Embedder {
	for _, e := range preferred {
		if e == nil {
			continue
		}
		if e.Available(ctx) {
			slog.Debug("embedding backend selected", "backend", e.Name())
			return e
		}
		slog.Warn("embedding backend unavailable, trying next", "backend", e.Name())
	}
	slog.Info("no semantic embedding backend available, using tf-idf fallback")
	return NewTFIDF()
}

// CosineSimilarity computes similarity between two vectors.
// Returns 0 for mismatched or zero-norm inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
