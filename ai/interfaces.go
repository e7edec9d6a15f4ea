// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"

	"github.com/poiesic/datafinder/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer turns a prompt into free text.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends prompt, preceded by systemPrompt when non-empty, and
	// returns the model's text. Failures wrap ErrCollaboratorUnavailable.
	Complete(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error)
}

// IntentExtractor derives a canonical intent from a natural-language query.
type IntentExtractor interface {
	// ExtractIntent returns a validated intent whose OriginalQuery is query.
	ExtractIntent(ctx context.Context, query string) (*core.CanonicalIntent, error)
}

// QueryExpander adds acronyms, synonyms and related vocabulary to a query.
// The expansion is used for exact-match scoring only, never for embeddings.
type QueryExpander interface {
	// ExpandQuery returns the expanded text. On failure it returns the
	// query (plus any learned terms) together with the error.
	ExpandQuery(ctx context.Context, query, domainHint string) (string, error)
}

// KeywordEnricher generates search keywords for a catalog table.
type KeywordEnricher interface {
	// EnrichKeywords returns existing keywords merged with learned and
	// generated ones. On failure it returns existing unchanged together with the error.
	EnrichKeywords(ctx context.Context, name, domain, description string, existing []string) ([]string, error)
}

// RerankCandidate is the view of a ranked table shown to a reranking model.
type RerankCandidate struct {
	Index       int    `json:"idx"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// Reranker asks a model to reorder candidates by relevance to a query.
type Reranker interface {
	// Rerank returns candidate indices ordered by relevance. Indices may be
	// out of range or repeated; callers must sanitize them.
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]int, error)
}

// Vocabulary supplies terms learned from past human feedback.
// Implementations must be thread-safe for concurrent use.
type Vocabulary interface {
	// Keywords returns learned keywords for a table name.
	Keywords(tableName string) []string

	// Expansion returns learned expansion terms for a query.
	Expansion(query string) []string
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the free-text completion service.
	Completer() Completer

	// IntentExtractor returns the intent extraction service.
	IntentExtractor() IntentExtractor

	// QueryExpander returns the query expansion service.
	QueryExpander() QueryExpander

	// KeywordEnricher returns the keyword enrichment service.
	KeywordEnricher() KeywordEnricher

	// Reranker returns the reranking service.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	Close() error
}
