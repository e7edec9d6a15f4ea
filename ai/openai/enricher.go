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

	"github.com/poiesic/datafinder/ai"
)

const (
	enrichmentTemperature = 0.3
	enrichmentMaxTokens   = 500
)

// KeywordEnricher implements ai.KeywordEnricher on top of an ai.Completer.
type KeywordEnricher struct {
	completer   ai.Completer
	vocabulary  ai.Vocabulary
	maxKeywords int
	logger      *slog.Logger
}

var _ ai.KeywordEnricher = (*KeywordEnricher)(nil)

// NewKeywordEnricher creates an enricher. vocabulary may be nil.
func NewKeywordEnricher(completer ai.Completer, vocabulary ai.Vocabulary, maxKeywords int) (*KeywordEnricher, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	if maxKeywords <= 0 {
		maxKeywords = ai.DefaultConfig().MaxKeywords
	}
	return &KeywordEnricher{
		completer:   completer,
		vocabulary:  vocabulary,
		maxKeywords: maxKeywords,
		logger:      slog.Default().With("component", "keyword-enricher"),
	}, nil
}

// EnrichKeywords merges existing, learned and generated keywords.
func (e *KeywordEnricher) EnrichKeywords(ctx context.Context, name, domain, description string, existing []string) ([]string, error) {
	var learned []string
	if e.vocabulary != nil {
		learned = e.vocabulary.Keywords(name)
	}

	prompt := buildEnrichmentPrompt(name, domain, description, existing, learned)
	response, err := e.completer.Complete(ctx, prompt, "", enrichmentTemperature, enrichmentMaxTokens)
	if err != nil {
		return existing, err
	}

	arr := firstArray(cleanResponse(response))
	if arr == "" {
		return existing, fmt.Errorf("%w: no JSON array in enrichment", ai.ErrMalformedResponse)
	}
	var raw []any
	if err := json.Unmarshal([]byte(arr), &raw); err != nil {
		return existing, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	generated := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			generated = append(generated, s)
		}
	}

	keywords := ai.MergeKeywords(existing, learned, generated, e.maxKeywords)
	e.logger.Debug("enriched keywords", "table", name, "before", len(existing), "after", len(keywords))
	return keywords, nil
}
