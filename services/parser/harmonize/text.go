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
	"strings"

	"github.com/AleutianAI/AleutianComply/services/parser/datatypes"
)

// Representation builds the comparable text form of a requirement: policy,
// actor, obligation text, and trigger joined by single spaces, with empty
// fields skipped. Deterministic; never fails.
func Representation(req datatypes.ComplianceRequirement) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{req.Policy, req.Actor, req.Requirement, req.Trigger} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Representations maps a requirement batch through Representation, keeping
// input order.
func Representations(reqs []datatypes.ComplianceRequirement) []string {
	texts := make([]string, len(reqs))
	for i, r := range reqs {
		texts[i] = Representation(r)
	}
	return texts
}
