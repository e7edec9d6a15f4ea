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

import "github.com/poiesic/datafinder/ai"

// MockProvider is a test double for ai.Provider.
// It aggregates the mock services.
type MockProvider struct {
	embedder  *MockEmbedder
	completer *MockCompleter
	intent    *MockIntentExtractor
	expander  *MockQueryExpander
	enricher  *MockKeywordEnricher
	reranker  *MockReranker
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a new mock provider with default mock services.
// Use the GetMockXxx accessors to reach concrete types for test assertions.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:  NewMockEmbedder(),
		completer: NewMockCompleter(""),
		intent:    NewMockIntentExtractor(),
		expander:  NewMockQueryExpander(),
		enricher:  NewMockKeywordEnricher(),
		reranker:  NewMockReranker(),
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder { return p.embedder }

// Completer returns the mock completer.
func (p *MockProvider) Completer() ai.Completer { return p.completer }

// IntentExtractor returns the mock intent extractor.
func (p *MockProvider) IntentExtractor() ai.IntentExtractor { return p.intent }

// QueryExpander returns the mock query expander.
func (p *MockProvider) QueryExpander() ai.QueryExpander { return p.expander }

// KeywordEnricher returns the mock keyword enricher.
func (p *MockProvider) KeywordEnricher() ai.KeywordEnricher { return p.enricher }

// Reranker returns the mock reranker.
func (p *MockProvider) Reranker() ai.Reranker { return p.reranker }

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder { return p.embedder }

// GetMockCompleter returns the underlying mock completer for test assertions.
func (p *MockProvider) GetMockCompleter() *MockCompleter { return p.completer }

// GetMockIntentExtractor returns the underlying mock intent extractor for test assertions.
func (p *MockProvider) GetMockIntentExtractor() *MockIntentExtractor { return p.intent }

// GetMockQueryExpander returns the underlying mock expander for test assertions.
func (p *MockProvider) GetMockQueryExpander() *MockQueryExpander { return p.expander }

// GetMockKeywordEnricher returns the underlying mock enricher for test assertions.
func (p *MockProvider) GetMockKeywordEnricher() *MockKeywordEnricher { return p.enricher }

// GetMockReranker returns the underlying mock reranker for test assertions.
func (p *MockProvider) GetMockReranker() *MockReranker { return p.reranker }
