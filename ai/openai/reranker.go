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

const rerankMaxTokens = 100

// Reranker implements ai.Reranker on top of an ai.Completer.
type Reranker struct {
	completer ai.Completer
	logger    *slog.Logger
}

var _ ai.Reranker = (*Reranker)(nil)

// NewReranker creates a reranker.
func NewReranker(completer ai.Completer) (*Reranker, error) {
	if completer == nil {
		return nil, ErrCompleterRequired
	}
	return &Reranker{
		completer: completer,
		logger:    slog.Default().With("component", "reranker"),
	}, nil
}

// Rerank returns the candidate indices from the first integer array in the model's answer.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []ai.RerankCandidate) ([]int, error) {
	prompt, err := buildRerankPrompt(query, candidates)
	if err != nil {
		return nil, err
	}
	response, err := r.completer.Complete(ctx, prompt, "", 0, rerankMaxTokens)
	if err != nil {
		return nil, err
	}

	arr := firstIntArray(response)
	if arr == "" {
		return nil, fmt.Errorf("%w: no index array in rerank", ai.ErrMalformedResponse)
	}
	var order []int
	if err := json.Unmarshal([]byte(arr), &order); err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}
	r.logger.Debug("rerank order", "query", query, "order", order)
	return order, nil
}
