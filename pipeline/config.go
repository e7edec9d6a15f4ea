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

package pipeline

import (
	"fmt"
	"time"
)

// Config holds the tuning thresholds of the orchestrator. They are
// empirically chosen and should be revisited for a different embedding
// model or catalog.
type Config struct {
	// RerankCloseness is the top-two score gap below which the merged
	// ranking is sent to the reranker.
	RerankCloseness float64

	// AmbiguityMargin is the top-two score gap within which the ranking is
	// considered ambiguous.
	AmbiguityMargin float64

	// ExistsThreshold is the table confidence from which the data is
	// considered to exist.
	ExistsThreshold float64

	// FallbackConfidence separates medium from low confidence in the
	// domain stage's fallback search.
	FallbackConfidence float64

	// MaxResults caps the candidates retrieved per request.
	MaxResults int

	// RankingSize caps each list of a ranking output.
	RankingSize int

	// StageTimeout bounds each collaborator call made by a stage.
	StageTimeout time.Duration

	// Rerank enables the conditional rerank stage.
	Rerank bool
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		RerankCloseness:    0.05,
		AmbiguityMargin:    0.05,
		ExistsThreshold:    0.7,
		FallbackConfidence: 0.5,
		MaxResults:         10,
		RankingSize:        5,
		StageTimeout:       30 * time.Second,
		Rerank:             true,
	}
}

// Validate checks that thresholds are in range.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"rerank closeness":    c.RerankCloseness,
		"ambiguity margin":    c.AmbiguityMargin,
		"exists threshold":    c.ExistsThreshold,
		"fallback confidence": c.FallbackConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1]: %f", name, v)
		}
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be positive: %d", c.MaxResults)
	}
	if c.RankingSize < 1 {
		return fmt.Errorf("ranking size must be positive: %d", c.RankingSize)
	}
	if c.StageTimeout <= 0 {
		return fmt.Errorf("stage timeout must be positive: %s", c.StageTimeout)
	}
	return nil
}
