// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "time"

type ControlStatus string

const (
	ControlStatusImplemented   ControlStatus = "IMPLEMENTED"
	ControlStatusPending       ControlStatus = "PENDING"
	ControlStatusNotApplicable ControlStatus = "NOT_APPLICABLE"
	ControlStatusPartial       ControlStatus = "PARTIAL"
)

type ControlCategory string

const (
	ControlCategoryInsiderReporting   ControlCategory = "INSIDER_REPORTING"
	ControlCategoryFinancialReporting ControlCategory = "FINANCIAL_REPORTING"
	ControlCategoryDisclosure         ControlCategory = "DISCLOSURE"
	ControlCategoryGovernance         ControlCategory = "GOVERNANCE"
	ControlCategoryRiskManagement     ControlCategory = "RISK_MANAGEMENT"
	ControlCategoryCompliance         ControlCategory = "COMPLIANCE"
)

// MappedControl links a requirement to an organizational control.
type MappedControl struct {
	ControlID        string          `json:"control_id"`
	Category         ControlCategory `json:"category"`
	Status           ControlStatus   `json:"status"`
	Description      string          `json:"description,omitempty"`
	ResponsibleParty string          `json:"responsible_party,omitempty"`
	LastReviewed     *time.Time      `json:"last_reviewed,omitempty"`
}

// ComplianceRequirement is one extracted obligation statement. Records are
// produced by the extraction pipeline and consumed read-only here.
type ComplianceRequirement struct {
	Policy              string          `json:"policy"`
	Actor               string          `json:"actor"`
	Requirement         string          `json:"requirement"`
	Trigger             string          `json:"trigger"`
	Deadline            string          `json:"deadline,omitempty"`
	Penalty             string          `json:"penalty,omitempty"`
	MappedControls      []MappedControl `json:"mapped_controls"`
	ConfidenceScore     float64         `json:"confidence_score"`
	SourceText          string          `json:"source_text,omitempty"`
	RegulatoryFramework string          `json:"regulatory_framework,omitempty"`
	RiskLevel           Severity        `json:"risk_level,omitempty"`
	BusinessImpact      Severity        `json:"business_impact,omitempty"`
}

// SemanticCluster groups requirements judged to express the same obligation.
// Members keep input order.
type SemanticCluster struct {
	ClusterID             string                  `json:"cluster_id"`
	ClusterName           string                  `json:"cluster_name"`
	Requirements          []ComplianceRequirement `json:"requirements"`
	SimilarityScore       float64                 `json:"similarity_score"`
	HarmonizedRequirement *ComplianceRequirement  `json:"harmonized_requirement,omitempty"`
	SourceIndices         []int                   `json:"source_indices"`
}

// HarmonizationReport is the output of one harmonization run.
// TotalClusters always equals len(HarmonizedRequirements), and clusters[i]
// pairs with harmonized_requirements[i].
type HarmonizationReport struct {
	RunID                  string                  `json:"run_id"`
	OriginalRequirements   []ComplianceRequirement `json:"original_requirements"`
	Clusters               []SemanticCluster       `json:"clusters"`
	HarmonizedRequirements []ComplianceRequirement `json:"harmonized_requirements"`
	TotalClusters          int                     `json:"total_clusters"`
	HarmonizationRatio     float64                 `json:"harmonization_ratio"`
	ProcessingTime         float64                 `json:"processing_time"`
}
