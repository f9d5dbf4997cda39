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
	"math"
	"sort"
	"strings"
	"unicode"
)

// TFIDF is the always-available fallback vector space.
//
// # Description
//
// TFIDF fits a term-frequency / inverse-document-frequency model over the
// batch it is given and transforms the same batch in one pass. The vocabulary
// is batch-local: vectors from two different batches are not comparable.
// That is acceptable for harmonization, which only compares requirements
// within one run.
//
// Features are word uni/bi/tri-grams with English stop words removed,
// capped at MaxFeatures terms ranked by corpus frequency (ties broken
// alphabetically so runs are reproducible). Rows are L2-normalized, which
// makes dot products equal cosine similarities downstream.
//
// # Thread Safety
//
// TFIDF is stateless between calls and safe for concurrent use.
type TFIDF struct {
	maxFeatures int
	ngramMin    int
	ngramMax    int
}

// DefaultMaxFeatures bounds the fallback vocabulary size.
const DefaultMaxFeatures = 1000

// NewTFIDF creates the fallback vectorizer with default settings
// (uni/bi/tri-grams, 1000 features).
func NewTFIDF() *TFIDF {
	return &TFIDF{
		maxFeatures: DefaultMaxFeatures,
		ngramMin:    1,
		ngramMax:    3,
	}
}

// WithMaxFeatures overrides the vocabulary cap.
func (t *TFIDF) WithMaxFeatures(n int) *TFIDF {
	if n > 0 {
		t.maxFeatures = n
	}
	return t
}

// Name implements Embedder.
func (t *TFIDF) Name() string { return "tfidf-fallback" }

// Available implements Embedder. The fallback never goes away.
func (t *TFIDF) Available(ctx context.Context) bool { return true }

// EmbedBatch implements Embedder by fitting the vector space over texts and
// transforming them in one pass.
func (t *TFIDF) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	docs := make([][]string, len(texts))
	for i, text := range texts {
		docs[i] = t.ngrams(tokenize(text))
	}

	vocab := t.buildVocabulary(docs)
	if len(vocab) == 0 {
		// Degenerate batch (all stop words or empty). Return zero vectors of
		// width 1 so clustering still gets a well-formed matrix.
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{0}
		}
		return out, nil
	}

	// Document frequency per vocabulary term.
	df := make([]int, len(vocab))
	termIdx := make(map[string]int, len(vocab))
	for i, term := range vocab {
		termIdx[term] = i
	}
	for _, doc := range docs {
		seen := make(map[int]struct{})
		for _, term := range doc {
			if idx, ok := termIdx[term]; ok {
				seen[idx] = struct{}{}
			}
		}
		for idx := range seen {
			df[idx]++
		}
	}

	// Smoothed idf: ln((1+n)/(1+df)) + 1.
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for i, d := range df {
		idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	matrix := make([][]float32, len(docs))
	for i, doc := range docs {
		row := make([]float64, len(vocab))
		for _, term := range doc {
			if idx, ok := termIdx[term]; ok {
				row[idx]++
			}
		}
		var norm float64
		for idx := range row {
			row[idx] *= idf[idx]
			norm += row[idx] * row[idx]
		}
		norm = math.Sqrt(norm)

		vec := make([]float32, len(vocab))
		for idx, v := range row {
			if norm > 0 {
				vec[idx] = float32(v / norm)
			}
		}
		matrix[i] = vec
	}

	return matrix, nil
}

// buildVocabulary ranks terms by corpus frequency and keeps the top
// maxFeatures, alphabetical on ties.
func (t *TFIDF) buildVocabulary(docs [][]string) []string {
	counts := make(map[string]int)
	for _, doc := range docs {
		for _, term := range doc {
			counts[term]++
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > t.maxFeatures {
		terms = terms[:t.maxFeatures]
	}
	sort.Strings(terms)
	return terms
}

// ngrams expands tokens into space-joined n-grams in [ngramMin, ngramMax].
func (t *TFIDF) ngrams(tokens []string) []string {
	var out []string
	for n := t.ngramMin; n <= t.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// tokenize lowercases, splits on non-alphanumeric runes, and drops English
// stop words and single-character tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		if _, stop := englishStopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// englishStopWords is the removal list applied before n-gram expansion.
var englishStopWords = map[string]struct{}{}

func init() {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before",
		"being", "below", "between", "both", "but", "by", "can", "could",
		"did", "do", "does", "doing", "down", "during", "each", "few", "for",
		"from", "further", "had", "has", "have", "having", "he", "her",
		"here", "hers", "herself", "him", "himself", "his", "how", "i", "if",
		"in", "into", "is", "it", "its", "itself", "just", "me", "more",
		"most", "my", "myself", "no", "nor", "not", "now", "of", "off", "on",
		"once", "only", "or", "other", "our", "ours", "ourselves", "out",
		"over", "own", "same", "she", "should", "so", "some", "such", "than",
		"that", "the", "their", "theirs", "them", "themselves", "then",
		"there", "these", "they", "this", "those", "through", "to", "too",
		"under", "until", "up", "very", "was", "we", "were", "what", "when",
		"where", "which", "while", "who", "whom", "why", "will", "with",
		"would", "you", "your", "yours", "yourself", "yourselves",
	}
	for _, w := range words {
		englishStopWords[w] = struct{}{}
	}
}
