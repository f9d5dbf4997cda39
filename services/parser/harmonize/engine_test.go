// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package harmonize

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianComply/services/parser/datatypes"
)

// ownershipPair returns two near-duplicate filing obligations plus one
// unrelated disclosure obligation.
func ownershipPair(t *testing.T) []datatypes.ComplianceRequirement {
	t.Helper()

	return []datatypes.ComplianceRequirement{
		{
			Policy:          "Securities Exchange Act of 1934 - Section 16(a)",
			Actor:           "Beneficial owner of >10% equity security",
			Requirement:     "File ownership disclosure statement with the Commission",
			Trigger:         "Within 10 days of becoming beneficial owner",
			Deadline:        "10 days",
			Penalty:         "fines",
			ConfidenceScore: 0.9,
			RiskLevel:       datatypes.SeverityMedium,
		},
		{
			Policy:          "Securities Exchange Act of 1934 - Section 16(a)",
			Actor:           "Beneficial owner of >10% equity security",
			Requirement:     "File ownership disclosure statement with the Commission",
			Trigger:         "Within 30 days of becoming beneficial owner",
			Deadline:        "30 days",
			Penalty:         "sanctions",
			ConfidenceScore: 0.7,
			RiskLevel:       datatypes.SeverityHigh,
		},
		{
			Policy:          "Regulation S-K",
			Actor:           "Registrant",
			Requirement:     "Disclose risk factors annually",
			Trigger:         "Annual report preparation",
			ConfidenceScore: 0.8,
			RiskLevel:       datatypes.SeverityLow,
		},
	}
}

func TestHarmonizeEmptyInput(t *testing.T) {
	report, err := NewEngine(nil).Harmonize(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalClusters)
	assert.Equal(t, 0.0, report.HarmonizationRatio)
	assert.Empty(t, report.Clusters)
	assert.Empty(t, report.HarmonizedRequirements)
}

func TestHarmonizeNilContext(t *testing.T) {
	_, err := NewEngine(nil).Harmonize(nil, nil) //nolint:staticcheck
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestHarmonizeSingleton(t *testing.T) {
	reqs := ownershipPair(t)[:1]
	report, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalClusters)
	assert.Equal(t, 1.0, report.HarmonizationRatio)
	assert.Equal(t, 1.0, report.Clusters[0].SimilarityScore)
	// Idempotent on singletons: the member comes back unchanged.
	assert.Equal(t, reqs[0], report.HarmonizedRequirements[0])
}

func TestHarmonizeNearDuplicatesMergeRestrictively(t *testing.T) {
	reqs := ownershipPair(t)
	report, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, 2, report.TotalClusters)
	require.Len(t, report.HarmonizedRequirements, 2)

	// Find the merged ownership cluster.
	var merged *datatypes.ComplianceRequirement
	for i := range report.Clusters {
		if len(report.Clusters[i].Requirements) == 2 {
			merged = report.Clusters[i].HarmonizedRequirement
		}
	}
	require.NotNil(t, merged, "the two filing duplicates share a cluster")

	assert.Equal(t, "10 days", merged.Deadline, "most restrictive deadline wins")
	penalties := strings.Split(merged.Penalty, "; ")
	assert.ElementsMatch(t, []string{"fines", "sanctions"}, penalties)
	assert.Equal(t, datatypes.SeverityHigh, merged.RiskLevel)
	assert.InDelta(t, 0.8, merged.ConfidenceScore, 1e-9)
}

func TestHarmonizePartitionProperty(t *testing.T) {
	reqs := ownershipPair(t)
	report, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	total := 0
	seen := make(map[int]bool)
	for _, c := range report.Clusters {
		total += len(c.Requirements)
		for _, idx := range c.SourceIndices {
			assert.False(t, seen[idx], "requirement %d appears in one cluster only", idx)
			seen[idx] = true
		}
	}
	assert.Equal(t, len(reqs), total, "clusters partition the input")
	assert.Equal(t, report.TotalClusters, len(report.HarmonizedRequirements))
}

func TestHarmonizeNearIdenticalBatchCollapses(t *testing.T) {
	base := datatypes.ComplianceRequirement{
		Policy:      "Securities Exchange Act of 1934 - Section 16(a)",
		Actor:       "Beneficial owner",
		Requirement: "File ownership disclosure statement with the Commission",
		Trigger:     "Within 10 days of acquisition",
		Penalty:     "fines",
	}

	reqs := make([]datatypes.ComplianceRequirement, 50)
	for i := range reqs {
		r := base
		if i%2 == 1 {
			// Whitespace-only differences must not block deduplication.
			r.Requirement = "File  ownership disclosure statement\twith the Commission"
		}
		reqs[i] = r
	}

	report, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, 1, report.TotalClusters)
	assert.Less(t, report.HarmonizationRatio, 0.1)
	assert.Greater(t, report.Clusters[0].SimilarityScore, 0.9)
}

func TestHarmonizeDeterministic(t *testing.T) {
	reqs := ownershipPair(t)

	first, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)
	second, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, first.TotalClusters, second.TotalClusters)
	assert.Equal(t, first.HarmonizedRequirements, second.HarmonizedRequirements)
	for i := range first.Clusters {
		assert.Equal(t, first.Clusters[i].SourceIndices, second.Clusters[i].SourceIndices)
		assert.Equal(t, first.Clusters[i].ClusterName, second.Clusters[i].ClusterName)
	}
}

func TestHarmonizeMalformedRequirementNeverDropped(t *testing.T) {
	reqs := append(ownershipPair(t), datatypes.ComplianceRequirement{
		// Every field empty: still clustered and harmonized best-effort.
	})

	report, err := NewEngine(nil).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	total := 0
	for _, c := range report.Clusters {
		total += len(c.Requirements)
	}
	assert.Equal(t, len(reqs), total, "malformed requirements stay in the register")
}

func TestHarmonizeClusterMetadata(t *testing.T) {
	report, err := NewEngine(nil).Harmonize(context.Background(), ownershipPair(t))
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	for i, c := range report.Clusters {
		assert.Equal(t, fmt.Sprintf("CLUSTER-%d", i), c.ClusterID)
		assert.NotEmpty(t, c.ClusterName)
		assert.NotNil(t, c.HarmonizedRequirement)
		assert.Equal(t, *c.HarmonizedRequirement, report.HarmonizedRequirements[i])
	}
	assert.GreaterOrEqual(t, report.ProcessingTime, 0.0)
}

func TestHarmonizeFailedBackendFallsBack(t *testing.T) {
	// A backend that always errors must never fail the run.
	engine := NewEngine(failingEmbedder{})
	report, err := engine.Harmonize(context.Background(), ownershipPair(t))
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalClusters)
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string                       { return "failing" }
func (failingEmbedder) Available(ctx context.Context) bool { return true }
func (failingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, context.DeadlineExceeded
}

// stubEmbedder returns fixed vectors keyed by substring, standing in for a
// semantic model in scenario tests.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s stubEmbedder) Name() string                       { return "stub" }
func (s stubEmbedder) Available(ctx context.Context) bool { return true }
func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		for key, vec := range s.vectors {
			if strings.Contains(t, key) {
				out[i] = vec
				break
			}
		}
		if out[i] == nil {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func TestHarmonizeSemanticBackendScenario(t *testing.T) {
	// The canonical near-duplicate scenario under a semantic model: two
	// filing deadlines phrased differently land on almost the same vector,
	// the unrelated disclosure lands elsewhere.
	reqs := []datatypes.ComplianceRequirement{
		{
			Requirement: "File ownership disclosure within 10 days",
			Deadline:    "10 days",
			Penalty:     "fines",
		},
		{
			Requirement: "File ownership disclosure within 30 days",
			Deadline:    "30 days",
			Penalty:     "sanctions",
		},
		{
			Requirement: "Disclose risk factors annually",
		},
	}
	embedder := stubEmbedder{vectors: map[string][]float32{
		"within 10 days": {1, 0, 0},
		"within 30 days": {0.99, 0.1, 0},
		"risk factors":   {0, 1, 0},
	}}

	report, err := NewEngine(embedder).Harmonize(context.Background(), reqs)
	require.NoError(t, err)

	require.Equal(t, 2, report.TotalClusters)

	var merged *datatypes.ComplianceRequirement
	for i := range report.Clusters {
		if len(report.Clusters[i].Requirements) == 2 {
			merged = report.Clusters[i].HarmonizedRequirement
		}
	}
	require.NotNil(t, merged)
	assert.Equal(t, "10 days", merged.Deadline)
	parts := strings.Split(merged.Penalty, "; ")
	assert.ElementsMatch(t, []string{"fines", "sanctions"}, parts)
}
