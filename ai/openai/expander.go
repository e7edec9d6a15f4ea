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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/datafinder/ai"
)

const (
	expansionTemperature = 0.3
	expansionMaxTokens   = 200
	// DefaultExpansionCacheTTL bounds how long a model expansion is reused.
	DefaultExpansionCacheTTL = time.Hour
)

// QueryExpander implements ai.QueryExpander on top of an ai.Completer.
// Model expansions are cached per normalized query; learned terms are
// appended on every call so new feedback applies immediately.
type QueryExpander struct {
	completer  ai.Completer
	vocabulary ai.Vocabulary
	cache      *ristretto.Cache[string, string]
	ttl        time.Duration
	logger     *slog.Logger
}

var _ ai.QueryExpander = (*QueryExpander)(nil)

// NewQueryExpander creates an expander. vocabulary may be nil.
func NewQueryExpander(completer ai.Completer, vocabulary ai.Vocabulary, ttl time.Duration) (*QueryExpander, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if ttl <= 0 {
		ttl = DefaultExpansionCacheTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &QueryExpander{
		completer:  completer,
		vocabulary: vocabulary,
		cache:      cache,
		ttl:        ttl,
		logger:     slog.Default().With("component", "query-expander"),
	}, nil
}

// ExpandQuery returns the model expansion of query followed by learned terms.
func (e *QueryExpander) ExpandQuery(ctx context.Context, query, domainHint string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	learned := e.learnedSuffix(query)

	if cached, ok := e.cache.Get(key); ok {
		return cached + learned, nil
	}

	response, err := e.completer.Complete(ctx, buildExpansionPrompt(query, domainHint), "", expansionTemperature, expansionMaxTokens)
	if err != nil {
		return query + learned, err
	}

	var parsed struct {
		Expanded string `json:"expanded"`
	}
	obj := firstObject(cleanResponse(response))
	if obj == "" {
		return query + learned, fmt.Errorf("%w: no JSON object in expansion", ai.ErrMalformedResponse)
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		return query + learned, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	expanded := strings.TrimSpace(parsed.Expanded)
	if expanded == "" {
		expanded = query
	}

	e.cache.SetWithTTL(key, expanded, 1, e.ttl)
	e.cache.Wait()
	e.logger.Debug("expanded query", "query", query, "expanded", expanded)
	return expanded + learned, nil
}

// Forget drops the cached expansion of query.
func (e *QueryExpander) Forget(query string) {
	e.cache.Del(strings.ToLower(strings.TrimSpace(query)))
}

// Close releases the cache.
func (e *QueryExpander) Close() {
	e.cache.Close()
}

func (e *QueryExpander) learnedSuffix(query string) string {
	if e.vocabulary == nil {
		return ""
	}
	terms := e.vocabulary.Expansion(query)
	if len(terms) == 0 {
		return ""
	}
	return " " + strings.Join(terms, " ")
}
