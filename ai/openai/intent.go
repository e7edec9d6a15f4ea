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
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/core"
	"github.com/tmc/langchaingo/llms"
)

const intentAttempts = 3

// IntentExtractor implements ai.IntentExtractor using OpenAI-compatible chat APIs in JSON mode.
type IntentExtractor struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

var _ ai.IntentExtractor = (*IntentExtractor)(nil)

func newIntentExtractor(client llms.Model, timeout time.Duration) *IntentExtractor {
	return &IntentExtractor{
		client:  client,
		timeout: timeout,
		logger:  slog.Default().With("component", "openai-intent"),
	}
}

// NewIntentExtractor creates a new intent extractor using the provided configuration.
//
// Returns ai.IntentExtractor interface to enforce abstraction.
func NewIntentExtractor(config *ai.Config) (ai.IntentExtractor, error) {
	client, err := newCompletionClient(config)
	if err != nil {
		return nil, err
	}
	return newIntentExtractor(client, config.Timeout), nil
}

// ExtractIntent asks the model for a canonical intent, retrying malformed JSON.
func (e *IntentExtractor) ExtractIntent(ctx context.Context, query string) (*core.CanonicalIntent, error) {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildIntentSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(query)},
		},
	}

	var lastErr error
	for attempt := 0; attempt < intentAttempts; attempt++ {
		intent, err := e.attempt(ctx, content)
		if err == nil {
			intent.OriginalQuery = query
			if intent.DataNeed == "" {
				intent.DataNeed = strings.ToLower(strings.TrimSpace(query))
			}
			if err := core.ValidateIntent(intent); err != nil {
				return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
			}
			return intent, nil
		}
		if !errors.Is(err, ai.ErrMalformedResponse) {
			return nil, err
		}
		lastErr = err
		e.logger.Warn("error parsing intent response", "attempt", attempt+1, "err", err)
	}

	e.logger.Error("failed to parse intent response after retries", "err", lastErr)
	return nil, lastErr
}

func (e *IntentExtractor) attempt(ctx context.Context, content []llms.MessageContent) (*core.CanonicalIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrCollaboratorUnavailable, err)
	}
	if len(response.Choices) < 1 {
		return nil, fmt.Errorf("%w: %w", ai.ErrCollaboratorUnavailable, ai.ErrEmptyResponse)
	}

	var intent core.CanonicalIntent
	if err := json.Unmarshal([]byte(cleanResponse(response.Choices[0].Content)), &intent); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	intent.DataNeed = strings.TrimSpace(intent.DataNeed)
	intent.ExtractionConfidence = core.Clamp01(intent.ExtractionConfidence)
	return &intent, nil
}
