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

// Package config loads the settings of the datafinder executables from an
// optional YAML file and DATAFINDER_* environment variables. Environment
// variables override the file; command line flags override both.
//
// Defaults are applied to every field left at its zero value, so a boolean
// that defaults to true can only be turned off through the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/pipeline"
)

// Config holds every setting an executable needs to open a Finder.
type Config struct {
	// DBPath is the BadgerDB directory.
	DBPath string `yaml:"db_path" env:"DATAFINDER_DB" env-default:"datafinder.db"`

	// CatalogPath is the YAML catalog snapshot (domains, owners, tables).
	// Empty means no catalog; domains and owners are derived from the index.
	CatalogPath string `yaml:"catalog" env:"DATAFINDER_CATALOG" env-default:""`

	// LexiconPath is where learned keywords, expansions and synonyms persist.
	LexiconPath string `yaml:"lexicon" env:"DATAFINDER_LEXICON" env-default:"lexicon.yaml"`

	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Feedback FeedbackConfig `yaml:"feedback"`
}

// AIConfig configures the OpenAI-compatible collaborators.
type AIConfig struct {
	EmbeddingHost   string        `yaml:"embedding_host" env:"DATAFINDER_EMBEDDING_HOST" env-default:"http://localhost:11434/v1"`
	CompletionHost  string        `yaml:"completion_host" env:"DATAFINDER_COMPLETION_HOST" env-default:"http://localhost:11434/v1"`
	EmbeddingModel  string        `yaml:"embedding_model" env:"DATAFINDER_EMBEDDING_MODEL" env-default:"embeddinggemma"`
	CompletionModel string        `yaml:"completion_model" env:"DATAFINDER_COMPLETION_MODEL" env-default:"qwen2.5:3b"`
	Token           string        `yaml:"-" env:"DATAFINDER_API_TOKEN"` // secret, environment only
	Timeout         time.Duration `yaml:"timeout" env:"DATAFINDER_AI_TIMEOUT" env-default:"30s"`
	MaxKeywords     int           `yaml:"max_keywords" env:"DATAFINDER_MAX_KEYWORDS" env-default:"35"`
}

// PipelineConfig holds the orchestrator thresholds.
type PipelineConfig struct {
	RerankCloseness    float64       `yaml:"rerank_closeness" env:"DATAFINDER_RERANK_CLOSENESS" env-default:"0.05"`
	AmbiguityMargin    float64       `yaml:"ambiguity_margin" env:"DATAFINDER_AMBIGUITY_MARGIN" env-default:"0.05"`
	ExistsThreshold    float64       `yaml:"exists_threshold" env:"DATAFINDER_EXISTS_THRESHOLD" env-default:"0.7"`
	FallbackConfidence float64       `yaml:"fallback_confidence" env:"DATAFINDER_FALLBACK_CONFIDENCE" env-default:"0.5"`
	MaxResults         int           `yaml:"max_results" env:"DATAFINDER_MAX_RESULTS" env-default:"10"`
	RankingSize        int           `yaml:"ranking_size" env:"DATAFINDER_RANKING_SIZE" env-default:"5"`
	StageTimeout       time.Duration `yaml:"stage_timeout" env:"DATAFINDER_STAGE_TIMEOUT" env-default:"30s"`
	Rerank             bool          `yaml:"rerank" env:"DATAFINDER_RERANK" env-default:"true"`
}

// FeedbackConfig tunes the historical score store.
type FeedbackConfig struct {
	MinSamples int           `yaml:"min_samples" env:"DATAFINDER_MIN_SAMPLES" env-default:"3"`
	ScoreTTL   time.Duration `yaml:"score_ttl" env:"DATAFINDER_SCORE_TTL" env-default:"5m"`
}

// Load reads path, when given, and applies environment overrides.
// Without a path only the environment and the defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have no sensible fallback.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.Feedback.MinSamples < 1 {
		return fmt.Errorf("config: min_samples must be positive: %d", c.Feedback.MinSamples)
	}
	if c.Feedback.ScoreTTL <= 0 {
		return fmt.Errorf("config: score_ttl must be positive: %s", c.Feedback.ScoreTTL)
	}
	if err := c.PipelineConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AIConfig returns the collaborator configuration, normalized.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithCompletionHost(c.AI.CompletionHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithCompletionModel(c.AI.CompletionModel),
		ai.WithToken(c.AI.Token),
		ai.WithTimeout(c.AI.Timeout),
		ai.WithMaxKeywords(c.AI.MaxKeywords),
	)
	cfg.Normalize()
	return cfg
}

// PipelineConfig returns the orchestrator thresholds.
func (c *Config) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		RerankCloseness:    c.Pipeline.RerankCloseness,
		AmbiguityMargin:    c.Pipeline.AmbiguityMargin,
		ExistsThreshold:    c.Pipeline.ExistsThreshold,
		FallbackConfidence: c.Pipeline.FallbackConfidence,
		MaxResults:         c.Pipeline.MaxResults,
		RankingSize:        c.Pipeline.RankingSize,
		StageTimeout:       c.Pipeline.StageTimeout,
		Rerank:             c.Pipeline.Rerank,
	}
}
