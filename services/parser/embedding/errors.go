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

import "errors"

// Sentinel errors for the embedding package.
var (
	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the backend is not reachable or not loaded.
	ErrUnavailable = errors.New("embedding backend unavailable")

	// ErrDimensionMismatch indicates the backend returned vectors of
	// inconsistent width.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
