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

package mock

import (
	"context"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/core"
)

// MockCompleter is a test double for ai.Completer.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, Response is returned.
	CompleteFunc func(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error)

	// Response is the default completion text.
	Response string

	calls calls
}

var _ ai.Completer = (*MockCompleter)(nil)

// NewMockCompleter creates a mock completer answering response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{Response: response}
}

// Complete returns CompleteFunc's result or Response.
func (m *MockCompleter) Complete(ctx context.Context, prompt, systemPrompt string, temperature float64, maxTokens int) (string, error) {
	m.calls.inc()
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt, systemPrompt, temperature, maxTokens)
	}
	return m.Response, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.calls.count()
}

// MockIntentExtractor is a test double for ai.IntentExtractor.
type MockIntentExtractor struct {
	// ExtractIntentFunc is called by ExtractIntent if set.
	// If nil, ai.HeuristicIntent is used.
	ExtractIntentFunc func(ctx context.Context, query string) (*core.CanonicalIntent, error)

	calls calls
}

var _ ai.IntentExtractor = (*MockIntentExtractor)(nil)

// NewMockIntentExtractor creates a mock intent extractor with heuristic behavior.
func NewMockIntentExtractor() *MockIntentExtractor {
	return &MockIntentExtractor{}
}

// ExtractIntent returns ExtractIntentFunc's result or the heuristic intent.
func (m *MockIntentExtractor) ExtractIntent(ctx context.Context, query string) (*core.CanonicalIntent, error) {
	m.calls.inc()
	if m.ExtractIntentFunc != nil {
		return m.ExtractIntentFunc(ctx, query)
	}
	return ai.HeuristicIntent(query), nil
}

// CallCount returns the number of times ExtractIntent was called.
func (m *MockIntentExtractor) CallCount() int {
	return m.calls.count()
}

// MockQueryExpander is a test double for ai.QueryExpander.
type MockQueryExpander struct {
	// ExpandQueryFunc is called by ExpandQuery if set.
	// If nil, the query is returned unchanged.
	ExpandQueryFunc func(ctx context.Context, query, domainHint string) (string, error)

	calls calls
}

var _ ai.QueryExpander = (*MockQueryExpander)(nil)

// NewMockQueryExpander creates a pass-through mock expander.
func NewMockQueryExpander() *MockQueryExpander {
	return &MockQueryExpander{}
}

// ExpandQuery returns ExpandQueryFunc's result or query.
func (m *MockQueryExpander) ExpandQuery(ctx context.Context, query, domainHint string) (string, error) {
	m.calls.inc()
	if m.ExpandQueryFunc != nil {
		return m.ExpandQueryFunc(ctx, query, domainHint)
	}
	return query, nil
}

// CallCount returns the number of times ExpandQuery was called.
func (m *MockQueryExpander) CallCount() int {
	return m.calls.count()
}

// MockKeywordEnricher is a test double for ai.KeywordEnricher.
type MockKeywordEnricher struct {
	// EnrichKeywordsFunc is called by EnrichKeywords if set.
	// If nil, existing is returned unchanged.
	EnrichKeywordsFunc func(ctx context.Context, name, domain, description string, existing []string) ([]string, error)

	calls calls
}

var _ ai.KeywordEnricher = (*MockKeywordEnricher)(nil)

// NewMockKeywordEnricher creates a pass-through mock enricher.
func NewMockKeywordEnricher() *MockKeywordEnricher {
	return &MockKeywordEnricher{}
}

// EnrichKeywords returns EnrichKeywordsFunc's result or existing.
func (m *MockKeywordEnricher) EnrichKeywords(ctx context.Context, name, domain, description string, existing []string) ([]string, error) {
	m.calls.inc()
	if m.EnrichKeywordsFunc != nil {
		return m.EnrichKeywordsFunc(ctx, name, domain, description, existing)
	}
	return existing, nil
}

// CallCount returns the number of times EnrichKeywords was called.
func (m *MockKeywordEnricher) CallCount() int {
	return m.calls.count()
}

// MockReranker is a test double for ai.Reranker.
type MockReranker struct {
	// RerankFunc is called by Rerank if set.
	// If nil, the candidates' own order is returned.
	RerankFunc func(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]int, error)

	calls calls
}

var _ ai.Reranker = (*MockReranker)(nil)

// NewMockReranker creates an identity mock reranker.
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Rerank returns RerankFunc's result or the candidates' indices in order.
func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]int, error) {
	m.calls.inc()
	if m.RerankFunc != nil {
		return m.RerankFunc(ctx, query, candidates)
	}
	order := make([]int, len(candidates))
	for i, c := range candidates {
		order[i] = c.Index
	}
	return order, nil
}

// CallCount returns the number of times Rerank was called.
func (m *MockReranker) CallCount() int {
	return m.calls.count()
}
