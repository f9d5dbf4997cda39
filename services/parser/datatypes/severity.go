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

// Severity is the shared Low/Medium/High scale used for risk level and
// business impact. The zero value is treated as Medium when ranking.
type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

var severityRank = map[Severity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank returns the ordering value of s. Unknown or empty severities rank
// as Medium, matching the extraction pipeline's default.
func (s Severity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return severityRank[SeverityMedium]
}

// MaxSeverity returns the highest severity in vals, or Medium when vals is
// empty or contains only unknown values.
func MaxSeverity(vals []Severity) Severity {
	max := SeverityMedium
	best := 0
	for _, v := range vals {
		if v == "" {
			continue
		}
		if r := v.Rank(); r > best {
			best = r
			max = v
		}
	}
	if best == 0 {
		return SeverityMedium
	}
	return max
}
