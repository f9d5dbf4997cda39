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

// nameBucket is one labeled keyword bucket on a naming axis. Buckets are
// enumerated in a fixed order so majority ties resolve the same way every
// run; the catch-all bucket matches everything and must come last.
type nameBucket struct {
	label string
	match func(string) bool
}

func contains(substr string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, substr) }
}

func containsFold(substr string) func(string) bool {
	return func(s string) bool { return strings.Contains(strings.ToLower(s), substr) }
}

func matchAll(string) bool { return true }

// regulatoryBuckets classifies the policy axis by named Act.
var regulatoryBuckets = []nameBucket{
	{label: "SEC", match: contains("Securities Exchange Act")},
	{label: "SOX", match: func(s string) bool {
		return strings.Contains(s, "Sarbanes-Oxley") || strings.Contains(s, "SOX")
	}},
	{label: "Dodd-Frank", match: contains("Dodd-Frank")},
	{label: "Other", match: matchAll},
}

// actorBuckets classifies the responsible-party axis.
var actorBuckets = []nameBucket{
	{label: "Beneficial Owners", match: containsFold("beneficial owner")},
	{label: "Executive Officers", match: containsFold("executive")},
	{label: "Directors", match: containsFold("director")},
	{label: "Registrants", match: containsFold("registrant")},
	{label: "Other", match: matchAll},
}

// obligationBuckets classifies the obligation-type axis.
var obligationBuckets = []nameBucket{
	{label: "Reporting", match: containsFold("report")},
	{label: "Disclosure", match: containsFold("disclose")},
	{label: "Filing", match: containsFold("file")},
	{label: "Maintenance", match: containsFold("maintain")},
	{label: "Other", match: matchAll},
}

// ClusterName derives a human-readable label of the form
// "<regulatory family> - <actor category> - <obligation type>" by majority
// vote over keyword buckets. It never fails; every axis defaults to "Other".
func ClusterName(members []datatypes.ComplianceRequirement) string {
	if len(members) == 0 {
		return "Unknown Cluster"
	}

	policy := dominantBucket(members, regulatoryBuckets, func(r datatypes.ComplianceRequirement) string { return r.Policy })
	actor := dominantBucket(members, actorBuckets, func(r datatypes.ComplianceRequirement) string { return r.Actor })
	obligation := dominantBucket(members, obligationBuckets, func(r datatypes.ComplianceRequirement) string { return r.Requirement })

	return policy + " - " + actor + " - " + obligation
}

// dominantBucket assigns each member to its first matching bucket and returns
// the label with the most members. Ties go to the bucket listed first.
func dominantBucket(
	members []datatypes.ComplianceRequirement,
	buckets []nameBucket,
	field func(datatypes.ComplianceRequirement) string,
) string {
	counts := make([]int, len(buckets))
	for _, m := range members {
		text := field(m)
		for i, b := range buckets {
			if b.match(text) {
				counts[i]++
				break
			}
		}
	}

	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return buckets[best].label
}
