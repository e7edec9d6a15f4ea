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

// Package datafinder resolves natural-language data requests against a
// catalog of tables, domains and owners.
//
// Finder is the entry point. It owns the Badger backend, the AI provider,
// the hybrid retrieval engine, the historical score store, the learned
// lexicon and the request pipeline, and exposes the operations the CLI
// offers: catalog sync, direct search, domain suggestions, full requests,
// feedback and statistics.
package datafinder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/ai/openai"
	"github.com/poiesic/datafinder/cdc"
	"github.com/poiesic/datafinder/config"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/feedback"
	"github.com/poiesic/datafinder/lexicon"
	"github.com/poiesic/datafinder/pipeline"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/poiesic/datafinder/storage/badger"
)

// DefaultSuggestionsPerDomain caps the tables listed per domain by Suggest.
const DefaultSuggestionsPerDomain = 3

// ErrConfigRequired is returned when Open is called without a configuration.
var ErrConfigRequired = errors.New("config is required")

// Finder wires storage, collaborators and the request pipeline together.
type Finder struct {
	backend      *badger.Backend
	decisions    *badger.DecisionRepository
	digests      *badger.DigestRepository
	provider     ai.Provider
	lexicon      *lexicon.Lexicon
	engine       *retrieval.Engine
	scores       *feedback.Store
	catalog      *pipeline.Catalog
	orchestrator *pipeline.Orchestrator
	syncer       *cdc.Syncer
	logger       *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	provider ai.Provider
	inMemory bool
	progress io.Writer
	logger   *slog.Logger
}

// WithProvider replaces the OpenAI-compatible provider built from the
// configuration. The Finder takes ownership and closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithInMemory keeps every record in memory. DBPath is ignored.
func WithInMemory() Option {
	return func(o *options) {
		o.inMemory = true
	}
}

// WithProgress reports sync progress to w.
func WithProgress(w io.Writer) Option {
	return func(o *options) {
		o.progress = w
	}
}

// WithLogger sets the logger handed to every component.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Open builds a Finder from cfg. The retrieval index is reloaded from the
// backend so previously synced tables are searchable immediately.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Finder, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	f := &Finder{logger: o.logger.With("component", "finder")}
	if err := f.open(ctx, cfg, o); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (f *Finder) open(ctx context.Context, cfg *config.Config, o *options) error {
	var err error
	f.backend, err = badger.OpenBackend(cfg.DBPath, o.inMemory)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	if cfg.LexiconPath != "" {
		f.lexicon, err = lexicon.Load(cfg.LexiconPath, lexicon.WithLogger(o.logger))
	} else {
		f.lexicon, err = lexicon.New(lexicon.WithLogger(o.logger))
	}
	if err != nil {
		return err
	}

	f.provider = o.provider
	if f.provider == nil {
		f.provider, err = openai.NewProvider(cfg.AIConfig(),
			openai.WithVocabulary(f.lexicon),
			openai.WithLogger(o.logger))
		if err != nil {
			return fmt.Errorf("create AI provider: %w", err)
		}
	}

	f.engine, err = retrieval.NewEngine(retrieval.Stores{
		Name:        badger.NewVectorStore(f.backend, retrieval.ViewName),
		Description: badger.NewVectorStore(f.backend, retrieval.ViewDescription),
		Keywords:    badger.NewVectorStore(f.backend, retrieval.ViewKeywords),
	}, f.provider,
		retrieval.WithLogger(o.logger),
		retrieval.WithThesaurus(f.lexicon),
		retrieval.WithMaxResults(cfg.Pipeline.MaxResults),
		retrieval.WithTimeout(cfg.AI.Timeout),
		retrieval.WithRerank(cfg.Pipeline.Rerank),
	)
	if err != nil {
		return err
	}
	loaded, err := f.engine.Reload(ctx)
	if err != nil {
		return fmt.Errorf("reload index: %w", err)
	}

	f.decisions, err = badger.NewDecisionRepository(f.backend)
	if err != nil {
		return err
	}
	f.digests = badger.NewDigestRepository(f.backend)

	f.scores, err = feedback.NewStore(ctx, f.decisions,
		feedback.WithLogger(o.logger),
		feedback.WithMinSamples(cfg.Feedback.MinSamples),
		feedback.WithCacheTTL(cfg.Feedback.ScoreTTL),
	)
	if err != nil {
		return err
	}

	if cfg.CatalogPath != "" {
		f.catalog, err = pipeline.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			return err
		}
	}

	f.orchestrator, err = pipeline.NewOrchestrator(f.engine, f.provider,
		pipeline.WithLogger(o.logger),
		pipeline.WithConfig(cfg.PipelineConfig()),
		pipeline.WithCatalog(f.catalog),
		pipeline.WithFeedback(f.scores),
		pipeline.WithDecisions(f.decisions),
		pipeline.WithLearner(f.lexicon),
	)
	if err != nil {
		return err
	}

	f.syncer, err = cdc.NewSyncer(f.engine, f.digests,
		cdc.WithLogger(o.logger),
		cdc.WithProgress(o.progress),
	)
	if err != nil {
		return err
	}

	f.logger.Debug("finder ready", "tables", loaded, "catalog", cfg.CatalogPath != "")
	return nil
}

// Close saves the lexicon and releases every resource.
func (f *Finder) Close() error {
	var errs []error
	if f.lexicon != nil {
		if err := f.lexicon.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save lexicon: %w", err))
		}
	}
	if f.engine != nil {
		f.engine.Close()
	}
	if f.provider != nil {
		if err := f.provider.Close(); err != nil {
			f.logger.Error("error closing AI provider", "err", err)
		}
	}
	if f.decisions != nil {
		if err := f.decisions.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close decisions: %w", err))
		}
	}
	if f.backend != nil {
		if err := f.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close backend: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Engine returns the retrieval engine.
func (f *Finder) Engine() *retrieval.Engine {
	return f.engine
}

// Orchestrator returns the request pipeline.
func (f *Finder) Orchestrator() *pipeline.Orchestrator {
	return f.orchestrator
}

// Sync applies a catalog snapshot to the index.
func (f *Finder) Sync(ctx context.Context, records []*cdc.Record, opts cdc.SyncOptions) (*cdc.Result, error) {
	return f.syncer.Sync(ctx, records, opts)
}

// SyncFile applies the tables of a YAML catalog snapshot to the index.
func (f *Finder) SyncFile(ctx context.Context, path string, opts cdc.SyncOptions) (*cdc.Result, error) {
	records, err := cdc.LoadRecords(path)
	if err != nil {
		return nil, err
	}
	return f.syncer.Sync(ctx, records, opts)
}

// Reindex re-embeds every indexed table, batchSize tables per page.
func (f *Finder) Reindex(ctx context.Context, batchSize int) (*cdc.Result, error) {
	return f.syncer.Reindex(ctx, batchSize)
}

// Search runs a direct hybrid search.
func (f *Finder) Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]*retrieval.Result, error) {
	return f.engine.Search(ctx, query, opts)
}

// Suggest groups search results by domain.
func (f *Finder) Suggest(ctx context.Context, query string) (*retrieval.Suggestions, error) {
	return f.engine.DomainSuggestions(ctx, query, DefaultSuggestionsPerDomain)
}

// Find runs the full request pipeline.
func (f *Finder) Find(ctx context.Context, req *pipeline.Request) (*pipeline.State, error) {
	return f.orchestrator.Run(ctx, req)
}

// Resolve records the user's verdict on a previous Find.
func (f *Finder) Resolve(ctx context.Context, requestID string, outcome core.Outcome, justification string, actualTableID core.ID) (*core.DecisionRecord, error) {
	return f.orchestrator.Resolve(ctx, requestID, outcome, justification, actualTableID)
}

// Insights summarizes the decision log.
func (f *Finder) Insights() *feedback.Insights {
	return f.scores.Insights()
}

// Stats aggregates index, feedback and lexicon statistics.
type Stats struct {
	Index    *retrieval.Stats `json:"index"`
	Feedback *feedback.Stats  `json:"feedback"`
	Lexicon  lexicon.Stats    `json:"lexicon"`
}

// Stats returns statistics of every component.
func (f *Finder) Stats(ctx context.Context) (*Stats, error) {
	index, err := f.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Index:    index,
		Feedback: f.scores.Stats(),
		Lexicon:  f.lexicon.Stats(),
	}, nil
}

// Clear removes every indexed table and its sync digest. Decisions and the
// lexicon are kept. It returns the number of tables removed.
func (f *Finder) Clear(ctx context.Context) (int, error) {
	n, err := f.engine.Clear(ctx)
	if err != nil {
		return 0, err
	}
	digests, err := f.digests.LoadDigests(ctx)
	if err != nil {
		return n, err
	}
	ids := make([]core.ID, 0, len(digests))
	for id := range digests {
		ids = append(ids, id)
	}
	if err := f.digests.DeleteDigests(ctx, ids...); err != nil {
		return n, err
	}
	return n, nil
}
