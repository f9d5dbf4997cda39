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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"gopkg.in/yaml.v3"
)

// bundleManifest describes a local sentence-embedding model bundle.
// The manifest lives at <bundleDir>/bundle.yaml.
type bundleManifest struct {
	Model         string `yaml:"model"`          // onnx file, relative to bundle dir
	Vocab         string `yaml:"vocab"`          // vocab.txt, relative to bundle dir
	SeqLen        int    `yaml:"seq_len"`        // max sequence length (default 256)
	Dim           int    `yaml:"dim"`            // hidden size of the encoder output
	InputIDs      string `yaml:"input_ids"`      // input tensor name (default "input_ids")
	AttentionMask string `yaml:"attention_mask"` // mask tensor name (default "attention_mask")
	Output        string `yaml:"output"`         // output tensor name (default "last_hidden_state")
}

// ONNXEmbedder runs a sentence-embedding transformer locally via onnxruntime.
//
// # Description
//
// The embedder loads a BERT-style encoder from an ONNX bundle (model,
// WordPiece vocab, YAML manifest) and produces one vector per text by mean
// pooling the token states under the attention mask. No network access is
// needed, which makes this the preferred backend for air-gapped deployments.
//
// # Thread Safety
//
// The session tensors are reused across calls; a mutex serializes inference.
type ONNXEmbedder struct {
	session   *ort.AdvancedSession
	tokenizer *wordPieceTokenizer
	seqLen    int
	dim       int
	model     string

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu sync.Mutex
}

// LoadONNXEmbedder initializes the ONNX session and tokenizer from bundleDir.
//
// # Inputs
//
//   - bundleDir: Directory holding bundle.yaml, the model, and the vocab.
//
// # Outputs
//
//   - *ONNXEmbedder: Ready-to-use local embedder.
//   - error: Non-nil when the bundle or the onnxruntime library is missing.
func LoadONNXEmbedder(bundleDir string) (*ONNXEmbedder, error) {
	if bundleDir == "" {
		return nil, errors.New("bundleDir is empty")
	}

	manifestPath := filepath.Join(bundleDir, "bundle.yaml")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read bundle manifest: %w", err)
	}
	var m bundleManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode bundle manifest: %w", err)
	}
	if m.Model == "" || m.Vocab == "" || m.Dim <= 0 {
		return nil, fmt.Errorf("bundle manifest incomplete: model, vocab, and dim are required")
	}
	if m.SeqLen <= 0 {
		m.SeqLen = 256
	}
	if m.InputIDs == "" {
		m.InputIDs = "input_ids"
	}
	if m.AttentionMask == "" {
		m.AttentionMask = "attention_mask"
	}
	if m.Output == "" {
		m.Output = "last_hidden_state"
	}

	libPath := resolveSharedLibraryPath(bundleDir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(bundleDir, m.Model)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}

	tokenizer, err := loadWordPieceTokenizer(filepath.Join(bundleDir, m.Vocab))
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(m.SeqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.SeqLen), int64(m.Dim)))
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{m.InputIDs, m.AttentionMask},
		[]string{m.Output},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNXEmbedder{
		session:       session,
		tokenizer:     tokenizer,
		seqLen:        m.SeqLen,
		dim:           m.Dim,
		model:         m.Model,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

// Name implements Embedder.
func (e *ONNXEmbedder) Name() string { return "onnx/" + e.model }

// Available implements Embedder.
func (e *ONNXEmbedder) Available(ctx context.Context) bool {
	return e != nil && e.session != nil && e.tokenizer != nil
}

// EmbedBatch implements Embedder. Texts run through the session one at a
// time; the session tensors are fixed at batch size 1.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if !e.Available(ctx) {
		return nil, ErrUnavailable
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := e.embedOne(text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// embedOne runs one forward pass and mean-pools the masked token states.
func (e *ONNXEmbedder) embedOne(text string) ([]float32, error) {
	ids, attn := e.tokenizer.Encode(text, e.seqLen)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputIDs.GetData(), ids)
	copy(e.attentionMask.GetData(), attn)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	hidden := e.output.GetData()
	vec := make([]float32, e.dim)
	var count float32
	for t := 0; t < e.seqLen; t++ {
		if attn[t] == 0 {
			continue
		}
		base := t * e.dim
		for d := 0; d < e.dim; d++ {
			vec[d] += hidden[base+d]
		}
		count++
	}
	if count > 0 {
		for d := range vec {
			vec[d] /= count
		}
	}
	return vec, nil
}

// Close releases the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	if e.session != nil {
		if err := e.session.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
		e.session = nil
	}
	for _, t := range []ort.Value{e.inputIDs, e.attentionMask, e.output} {
		if t == nil {
			continue
		}
		if err := t.Destroy(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.inputIDs, e.attentionMask, e.output = nil, nil, nil
	return firstErr
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared
// library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins when set; otherwise common
// names and locations are probed.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
