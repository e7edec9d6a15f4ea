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

package openai

import (
	"log/slog"
	"time"

	"github.com/poiesic/datafinder/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
type Provider struct {
	config     *ai.Config
	vocabulary ai.Vocabulary
	cacheTTL   time.Duration
	embedder   *Embedder
	completer  *Completer
	intent     *IntentExtractor
	expander   *QueryExpander
	enricher   *KeywordEnricher
	reranker   *Reranker
	logger     *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithVocabulary supplies learned keywords and expansions to the expander and enricher.
func WithVocabulary(vocabulary ai.Vocabulary) Option {
	return func(p *Provider) error {
		p.vocabulary = vocabulary
		return nil
	}
}

// WithExpansionCacheTTL sets how long model expansions are cached.
func WithExpansionCacheTTL(ttl time.Duration) Option {
	return func(p *Provider) error {
		p.cacheTTL = ttl
		return nil
	}
}

// WithLogger sets the provider logger. nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "openai-provider")
		return nil
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config, opts ...Option) (ai.Provider, error) {
	if config == nil {
		return nil, ai.ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		config:   config,
		cacheTTL: DefaultExpansionCacheTTL,
		logger:   slog.Default().With("component", "openai-provider"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	p.embedder = embedder

	client, err := newCompletionClient(config)
	if err != nil {
		return nil, err
	}
	p.completer = newCompleter(client, config.Timeout)
	p.intent = newIntentExtractor(client, config.Timeout)

	if p.expander, err = NewQueryExpander(p.completer, p.vocabulary, p.cacheTTL); err != nil {
		return nil, err
	}
	if p.enricher, err = NewKeywordEnricher(p.completer, p.vocabulary, config.MaxKeywords); err != nil {
		return nil, err
	}
	if p.reranker, err = NewReranker(p.completer); err != nil {
		return nil, err
	}

	return p, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Completer returns the completion service.
func (p *Provider) Completer() ai.Completer {
	return p.completer
}

// IntentExtractor returns the intent extraction service.
func (p *Provider) IntentExtractor() ai.IntentExtractor {
	return p.intent
}

// QueryExpander returns the query expansion service.
func (p *Provider) QueryExpander() ai.QueryExpander {
	return p.expander
}

// KeywordEnricher returns the keyword enrichment service.
func (p *Provider) KeywordEnricher() ai.KeywordEnricher {
	return p.enricher
}

// Reranker returns the reranking service.
func (p *Provider) Reranker() ai.Reranker {
	return p.reranker
}

// Close releases the expansion cache.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	p.expander.Close()
	return nil
}
