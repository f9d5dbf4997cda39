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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultServiceTimeout is the default timeout for embedding service requests.
const DefaultServiceTimeout = 30 * time.Second

// ServiceClient wraps calls to the embeddings sidecar service.
//
// # Description
//
// ServiceClient provides a Go interface to the embeddings service, which runs
// transformer models (like BGE, MiniLM) to generate vector embeddings for
// requirement text. A requirement statement embeds the same way every call;
// the service is stateless per request.
//
// # Thread Safety
//
// ServiceClient is safe for concurrent use.
type ServiceClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewServiceClient creates a client for the embeddings service at baseURL
// (e.g., "http://localhost:8000").
func NewServiceClient(baseURL string) *ServiceClient {
	return &ServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultServiceTimeout,
		},
		timeout: DefaultServiceTimeout,
	}
}

// WithTimeout sets a custom timeout for embedding requests.
func (c *ServiceClient) WithTimeout(timeout time.Duration) *ServiceClient {
	c.timeout = timeout
	c.httpClient.Timeout = timeout
	return c
}

// batchEmbedRequest is the request body for the /batch_embed endpoint.
type batchEmbedRequest struct {
	Texts []string `json:"texts"`
}

// batchEmbedResponse is the response from the /batch_embed endpoint.
type batchEmbedResponse struct {
	ID        string      `json:"id"`
	Timestamp int64       `json:"timestamp"`
	Model     string      `json:"model"`
	Vectors   [][]float32 `json:"vectors"`
	Dim       int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Name implements Embedder.
func (c *ServiceClient) Name() string { return "embeddings-service" }

// Available implements Embedder by probing the /health endpoint.
func (c *ServiceClient) Available(ctx context.Context) bool {
	return c.Health(ctx) == nil
}

// EmbedBatch computes embeddings for multiple texts in one request.
//
// # Description
//
// Batches all texts into a single service call. The response carries one
// vector per input, in input order.
//
// # Inputs
//
//   - ctx: Context for cancellation and timeout.
//   - texts: The requirement representations to embed.
//
// # Outputs
//
//   - [][]float32: The embedding vectors, one per input text.
//   - error: Non-nil if the service call fails.
func (c *ServiceClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	bodyBytes, err := json.Marshal(batchEmbedRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/batch_embed"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	var embResp batchEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embResp.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(embResp.Vectors), len(texts))
	}

	return embResp.Vectors, nil
}

// Health checks if the embeddings service is running with a model loaded.
func (c *ServiceClient) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrInvalidInput
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health status %d", ErrUnavailable, resp.StatusCode)
	}

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status != "ok" && health.Status != "healthy" {
		return fmt.Errorf("%w: service status %q", ErrUnavailable, health.Status)
	}

	return nil
}
