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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/AleutianComply/services/parser/datatypes"
)

// Defaults used when every member leaves a merge axis empty. These mirror the
// extraction pipeline's generic labels.
const (
	defaultPolicy  = "General Compliance Requirement"
	defaultActor   = "Covered Entity"
	defaultTrigger = "Upon occurrence of triggering event"
)

var digitsRe = regexp.MustCompile(`\d+`)

// fieldRule merges one field of the harmonized requirement from the cluster
// members. Rules never mutate members.
type fieldRule struct {
	field string
	apply func(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement)
}

// mergeRules is the full per-field merge table. Merging iterates this table
// generically, so a new requirement field only needs a new row here.
//
// The table encodes monotonic safety: deadlines only tighten, penalties only
// accumulate, and severity only escalates, so a harmonized requirement never
// states a weaker obligation than any of its members.
var mergeRules = []fieldRule{
	{field: "policy", apply: mergePolicy},
	{field: "actor", apply: mergeActor},
	{field: "requirement", apply: mergeRequirementText},
	{field: "trigger", apply: mergeTrigger},
	{field: "deadline", apply: mergeDeadline},
	{field: "penalty", apply: mergePenalty},
	{field: "mapped_controls", apply: mergeControls},
	{field: "confidence_score", apply: mergeConfidence},
	{field: "regulatory_framework", apply: mergeFramework},
	{field: "risk_level", apply: mergeRiskLevel},
	{field: "business_impact", apply: mergeBusinessImpact},
}

// Merge collapses the members of one cluster into a single canonical
// requirement under the per-field merge table. A single-member cluster is
// returned unchanged; nothing is ever synthesized, only selected or unioned
// from member fields.
func Merge(members []datatypes.ComplianceRequirement) datatypes.ComplianceRequirement {
	if len(members) == 0 {
		return datatypes.ComplianceRequirement{}
	}
	if len(members) == 1 {
		return members[0]
	}

	var out datatypes.ComplianceRequirement
	for _, rule := range mergeRules {
		rule.apply(members, &out)
	}
	out.SourceText = fmt.Sprintf("Harmonized from %d requirements", len(members))
	return out
}

// mergePolicy prefers a policy carrying an explicit section or rule citation.
func mergePolicy(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	var first string
	for _, m := range members {
		if m.Policy == "" {
			continue
		}
		if first == "" {
			first = m.Policy
		}
		if strings.Contains(m.Policy, "Section") || strings.Contains(m.Policy, "Rule") {
			out.Policy = m.Policy
			return
		}
	}
	if first == "" {
		first = defaultPolicy
	}
	out.Policy = first
}

// mergeActor takes the longest actor string as the most specific; ties keep
// the earliest member.
func mergeActor(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	var best string
	for _, m := range members {
		if len(m.Actor) > len(best) {
			best = m.Actor
		}
	}
	if best == "" {
		best = defaultActor
	}
	out.Actor = best
}

// mergeRequirementText takes the longest obligation text as the most complete
// statement. No new text is ever generated.
func mergeRequirementText(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	var best string
	for _, m := range members {
		if len(m.Requirement) > len(best) {
			best = m.Requirement
		}
	}
	out.Requirement = best
}

// mergeTrigger prefers a trigger with a restrictive qualifier.
func mergeTrigger(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	var first string
	for _, m := range members {
		if m.Trigger == "" {
			continue
		}
		if first == "" {
			first = m.Trigger
		}
		lower := strings.ToLower(m.Trigger)
		if strings.Contains(lower, "within") || strings.Contains(lower, "immediately") {
			out.Trigger = m.Trigger
			return
		}
	}
	if first == "" {
		first = defaultTrigger
	}
	out.Trigger = first
}

// mergeDeadline keeps the most restrictive deadline: "immediately" beats any
// day count, then the numerically smallest count, then the first non-empty.
func mergeDeadline(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	deadlines := make([]string, 0, len(members))
	for _, m := range members {
		if m.Deadline != "" {
			deadlines = append(deadlines, m.Deadline)
		}
	}
	if len(deadlines) == 0 {
		out.Deadline = ""
		return
	}

	for _, d := range deadlines {
		if strings.Contains(strings.ToLower(d), "immediately") {
			out.Deadline = d
			return
		}
	}

	best := ""
	bestDays := 0
	for _, d := range deadlines {
		match := digitsRe.FindString(d)
		if match == "" {
			continue
		}
		days, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if best == "" || days < bestDays {
			best = d
			bestDays = days
		}
	}
	if best != "" {
		out.Deadline = best
		return
	}

	out.Deadline = deadlines[0]
}

// mergePenalty unions all distinct penalties. Penalties are never dropped.
func mergePenalty(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	seen := make(map[string]struct{})
	var parts []string
	for _, m := range members {
		if m.Penalty == "" {
			continue
		}
		if _, dup := seen[m.Penalty]; dup {
			continue
		}
		seen[m.Penalty] = struct{}{}
		parts = append(parts, m.Penalty)
	}
	out.Penalty = strings.Join(parts, "; ")
}

// mergeControls unions mapped controls, de-duplicated by control id with
// first occurrence winning.
func mergeControls(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	seen := make(map[string]struct{})
	controls := make([]datatypes.MappedControl, 0)
	for _, m := range members {
		for _, c := range m.MappedControls {
			if _, dup := seen[c.ControlID]; dup {
				continue
			}
			seen[c.ControlID] = struct{}{}
			controls = append(controls, c)
		}
	}
	out.MappedControls = controls
}

// mergeConfidence averages member confidence scores.
func mergeConfidence(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	var sum float64
	for _, m := range members {
		sum += m.ConfidenceScore
	}
	out.ConfidenceScore = sum / float64(len(members))
}

// mergeFramework takes the most frequent non-empty framework, earliest first
// on ties.
func mergeFramework(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, m := range members {
		if m.RegulatoryFramework == "" {
			continue
		}
		if _, ok := counts[m.RegulatoryFramework]; !ok {
			order = append(order, m.RegulatoryFramework)
		}
		counts[m.RegulatoryFramework]++
	}

	best := ""
	bestCount := 0
	for _, fw := range order {
		if counts[fw] > bestCount {
			best = fw
			bestCount = counts[fw]
		}
	}
	out.RegulatoryFramework = best
}

// mergeRiskLevel escalates to the highest member risk.
func mergeRiskLevel(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	levels := make([]datatypes.Severity, len(members))
	for i, m := range members {
		levels[i] = m.RiskLevel
	}
	out.RiskLevel = datatypes.MaxSeverity(levels)
}

// mergeBusinessImpact escalates to the highest member impact.
func mergeBusinessImpact(members []datatypes.ComplianceRequirement, out *datatypes.ComplianceRequirement) {
	impacts := make([]datatypes.Severity, len(members))
	for i, m := range members {
		impacts[i] = m.BusinessImpact
	}
	out.BusinessImpact = datatypes.MaxSeverity(impacts)
}
