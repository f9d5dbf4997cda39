// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package harmonize reduces a pool of extracted compliance requirements to a
// deduplicated register of harmonized requirements.
//
// # Description
//
// Independently extracted requirement statements (pattern passes plus LLM
// passes over chunked documents) are full of near-duplicates. The Engine in
// this package builds a comparable text form per requirement, embeds the
// batch, clusters the vectors, and merges each cluster into one canonical
// requirement under the per-field merge table. Nothing is ever discarded: a
// requirement that clusters with nothing becomes its own singleton cluster,
// so every distinct regulatory obligation survives harmonization.
//
// # Example
//
//	engine := harmonize.NewEngine(nil) // tf-idf fallback, default chain
//	report, err := engine.Harmonize(ctx, requirements)
//	if err != nil {
//	    return err
//	}
//	for _, h := range report.HarmonizedRequirements {
//	    fmt.Println(h.Requirement)
//	}
package harmonize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianComply/services/parser/cluster"
	"github.com/AleutianAI/AleutianComply/services/parser/datatypes"
	"github.com/AleutianAI/AleutianComply/services/parser/embedding"
)

// Engine runs the harmonization pipeline. The zero backend configuration is
// fully functional: with no semantic embedder the engine fits a TF-IDF space
// over each batch.
//
// # Thread Safety
//
// Engine carries no per-run state; concurrent Harmonize calls are safe as
// long as the configured embedder is.
type Engine struct {
	embedder embedding.Embedder
	fallback embedding.Embedder
	chain    *cluster.Chain
}

// NewEngine creates an engine using the given embedding backend. A nil
// embedder means the TF-IDF fallback carries every batch.
func NewEngine(embedder embedding.Embedder) *Engine {
	return &Engine{
		embedder: embedder,
		fallback: embedding.NewTFIDF(),
		chain:    cluster.DefaultChain(),
	}
}

// WithChain overrides the clustering strategy chain.
func (e *Engine) WithChain(c *cluster.Chain) *Engine {
	if c != nil {
		e.chain = c
	}
	return e
}

// Harmonize clusters the requirement batch and merges each cluster into one
// canonical requirement.
//
// # Description
//
// The single externally visible operation of this core. An empty input is not
// an error: the report comes back with zero clusters and ratio 0. Embedding
// backend failures are absorbed by the TF-IDF fallback and never surface to
// the caller; the only failure modes are context cancellation and a nil
// context.
//
// # Inputs
//
//   - ctx: Context for cancellation. Required.
//   - reqs: Extracted requirements, consumed read-only.
//
// # Outputs
//
//   - *datatypes.HarmonizationReport: Clusters, harmonized requirements, and
//     the harmonization ratio. clusters[i] pairs with
//     harmonized_requirements[i].
//   - error: Non-nil only on invalid input or cancellation.
func (e *Engine) Harmonize(ctx context.Context, reqs []datatypes.ComplianceRequirement) (*datatypes.HarmonizationReport, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}

	start := time.Now()
	runID := uuid.NewString()

	if len(reqs) == 0 {
		return &datatypes.HarmonizationReport{
			RunID:                  runID,
			OriginalRequirements:   []datatypes.ComplianceRequirement{},
			Clusters:               []datatypes.SemanticCluster{},
			HarmonizedRequirements: []datatypes.ComplianceRequirement{},
			TotalClusters:          0,
			HarmonizationRatio:     0,
			ProcessingTime:         time.Since(start).Seconds(),
		}, nil
	}

	texts := Representations(reqs)
	matrix := e.embed(ctx, texts)
	if err := ctx.Err(); err != nil {
		return nil, ErrContextCanceled
	}

	labels := e.chain.Assign(matrix)
	clusters := e.buildClusters(reqs, labels, matrix)

	// Naming and merging are independent per cluster once labels are known.
	g, gctx := errgroup.WithContext(ctx)
	for i := range clusters {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return ErrContextCanceled
			}
			c := &clusters[i]
			c.ClusterName = ClusterName(c.Requirements)
			merged := Merge(c.Requirements)
			c.HarmonizedRequirement = &merged
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	harmonized := make([]datatypes.ComplianceRequirement, len(clusters))
	for i := range clusters {
		harmonized[i] = *clusters[i].HarmonizedRequirement
	}

	ratio := float64(len(harmonized)) / float64(len(reqs))
	slog.Info("harmonization run complete",
		"run_id", runID,
		"requirements", len(reqs),
		"clusters", len(clusters),
		"ratio", fmt.Sprintf("%.3f", ratio),
	)

	return &datatypes.HarmonizationReport{
		RunID:                  runID,
		OriginalRequirements:   reqs,
		Clusters:               clusters,
		HarmonizedRequirements: harmonized,
		TotalClusters:          len(clusters),
		HarmonizationRatio:     ratio,
		ProcessingTime:         time.Since(start).Seconds(),
	}, nil
}

// embed produces the batch matrix, absorbing semantic backend failures into
// the TF-IDF fallback.
func (e *Engine) embed(ctx context.Context, texts []string) [][]float32 {
	if e.embedder != nil {
		matrix, err := e.embedder.EmbedBatch(ctx, texts)
		if err == nil && len(matrix) == len(texts) {
			return matrix
		}
		slog.Warn("semantic embedding failed, falling back to tf-idf",
			"backend", e.embedder.Name(), "error", err)
	}

	matrix, err := e.fallback.EmbedBatch(ctx, texts)
	if err != nil {
		// The fallback only errors on a nil context, which Harmonize rejects
		// up front. Degrade to a zero matrix rather than dropping the batch.
		slog.Error("tf-idf fallback failed", "error", err)
		matrix = make([][]float32, len(texts))
		for i := range matrix {
			matrix[i] = []float32{0}
		}
	}
	return matrix
}

// buildClusters groups requirements by label in input order. Density noise
// (label -1) is promoted to singleton clusters so no requirement is dropped.
func (e *Engine) buildClusters(
	reqs []datatypes.ComplianceRequirement,
	labels []int,
	matrix [][]float32,
) []datatypes.SemanticCluster {
	clusterIdx := make(map[int]int)          // label -> index into clusters
	memberIdx := make(map[int][]int)         // cluster index -> input indices
	clusters := make([]datatypes.SemanticCluster, 0)

	for i, label := range labels {
		if label == cluster.Noise {
			idx := len(clusters)
			clusters = append(clusters, datatypes.SemanticCluster{})
			memberIdx[idx] = []int{i}
			continue
		}
		idx, ok := clusterIdx[label]
		if !ok {
			idx = len(clusters)
			clusterIdx[label] = idx
			clusters = append(clusters, datatypes.SemanticCluster{})
		}
		memberIdx[idx] = append(memberIdx[idx], i)
	}

	for idx := range clusters {
		indices := memberIdx[idx]
		members := make([]datatypes.ComplianceRequirement, len(indices))
		for j, i := range indices {
			members[j] = reqs[i]
		}
		clusters[idx].ClusterID = fmt.Sprintf("CLUSTER-%d", idx)
		clusters[idx].Requirements = members
		clusters[idx].SourceIndices = indices
		clusters[idx].SimilarityScore = cluster.MeanPairwiseCosine(matrix, indices)
	}

	return clusters
}
