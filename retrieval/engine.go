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

package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

// Sub-index names.
const (
	ViewName        = "name"
	ViewDescription = "description"
	ViewKeywords    = "keywords"
)

// Views lists the sub-index names in fusion order.
var Views = []string{ViewName, ViewDescription, ViewKeywords}

const (
	DefaultMaxResults          = 10
	DefaultCandidateMultiplier = 3
	DefaultCacheSize           = 4096
	DefaultTimeout             = 30 * time.Second
)

// Stores holds one vector store per sub-index.
type Stores struct {
	Name        storage.VectorStore
	Description storage.VectorStore
	Keywords    storage.VectorStore
}

// byView returns the stores in Views order.
func (s Stores) byView() []storage.VectorStore {
	return []storage.VectorStore{s.Name, s.Description, s.Keywords}
}

// Thesaurus supplies learned synonyms for query terms.
type Thesaurus interface {
	Synonyms(term string) []string
}

// Engine is the hybrid retrieval engine. It is safe for concurrent use.
type Engine struct {
	stores   Stores
	embedder ai.Embedder
	expander ai.QueryExpander
	enricher ai.KeywordEnricher
	reranker ai.Reranker

	thesaurus Thesaurus
	index     *invertedIndex
	cache     *lru.Cache[core.ID, *core.Table]
	pool      *ants.Pool

	maxResults    int
	multiplier    int
	timeout       time.Duration
	expansion     bool
	rerank        bool
	enrichment    bool
	keywordRecall bool
	monitor       Monitor
	logger        *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "retrieval")
		return nil
	}
}

// WithMaxResults sets the default number of search results. Default is 10.
func WithMaxResults(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("max results must be positive: %d", n)
		}
		e.maxResults = n
		return nil
	}
}

// WithCandidateMultiplier sets how many candidates per result each
// sub-index returns. Default is 3.
func WithCandidateMultiplier(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("candidate multiplier must be positive: %d", n)
		}
		e.multiplier = n
		return nil
	}
}

// WithPoolSize sets the worker pool size used for indexing and sub-index queries.
// Default is runtime.NumCPU(), with a minimum of 3.
func WithPoolSize(size int) Option {
	return func(e *Engine) error {
		size = max(size, len(Views))
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithCacheSize sets the capacity of the table metadata cache. Default is 4096.
func WithCacheSize(size int) Option {
	return func(e *Engine) error {
		cache, err := lru.New[core.ID, *core.Table](size)
		if err != nil {
			return err
		}
		e.cache = cache
		return nil
	}
}

// WithTimeout bounds every collaborator call. Default is 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout > 0 {
			e.timeout = timeout
		}
		return nil
	}
}

// WithExpansion toggles query expansion. Default is enabled.
func WithExpansion(enabled bool) Option {
	return func(e *Engine) error {
		e.expansion = enabled
		return nil
	}
}

// WithRerank toggles model reranking. Default is enabled.
func WithRerank(enabled bool) Option {
	return func(e *Engine) error {
		e.rerank = enabled
		return nil
	}
}

// WithEnrichment toggles keyword enrichment at index time. Default is enabled.
func WithEnrichment(enabled bool) Option {
	return func(e *Engine) error {
		e.enrichment = enabled
		return nil
	}
}

// WithKeywordRecall toggles adding inverted-index hits that no sub-index
// returned as extra candidates. Default is enabled.
func WithKeywordRecall(enabled bool) Option {
	return func(e *Engine) error {
		e.keywordRecall = enabled
		return nil
	}
}

// WithThesaurus adds learned synonyms of query terms to the expanded query.
func WithThesaurus(thesaurus Thesaurus) Option {
	return func(e *Engine) error {
		e.thesaurus = thesaurus
		return nil
	}
}

// WithMonitor sets a monitor receiving search stage callbacks.
func WithMonitor(monitor Monitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// NewEngine creates a retrieval engine over the given sub-index stores.
// The embedder of provider is required; its expander, enricher and
// reranker are used when present.
func NewEngine(stores Stores, provider ai.Provider, opts ...Option) (*Engine, error) {
	for _, s := range stores.byView() {
		if s == nil {
			return nil, ErrVectorStoreRequired
		}
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if provider.Embedder() == nil {
		return nil, ErrEmbedderRequired
	}

	cache, err := lru.New[core.ID, *core.Table](DefaultCacheSize)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		stores:        stores,
		embedder:      provider.Embedder(),
		expander:      provider.QueryExpander(),
		enricher:      provider.KeywordEnricher(),
		reranker:      provider.Reranker(),
		index:         newInvertedIndex(),
		cache:         cache,
		maxResults:    DefaultMaxResults,
		multiplier:    DefaultCandidateMultiplier,
		timeout:       DefaultTimeout,
		expansion:     true,
		rerank:        true,
		enrichment:    true,
		keywordRecall: true,
		monitor:       &noopMonitor{},
		logger:        slog.Default().With("component", "retrieval"),
	}

	for _, opt := range opts {
		if optErr := opt(e); optErr != nil {
			e.Close()
			return nil, optErr
		}
	}

	if e.pool == nil {
		pool, err := ants.NewPool(max(runtime.NumCPU(), len(Views)))
		if err != nil {
			return nil, err
		}
		e.pool = pool
	}
	return e, nil
}

// Close releases the worker pool. The stores are owned by the caller.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Release()
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// nameView is the text of the name sub-index and the fallback of the others.
func nameView(t *core.Table) string {
	return strings.TrimSpace(t.Name + " " + t.DisplayName)
}

func viewTexts(t *core.Table) []string {
	name := nameView(t)
	description := strings.TrimSpace(t.Description)
	if description == "" {
		description = name
	}
	keywords := strings.TrimSpace(strings.Join(t.Keywords, " "))
	if keywords == "" {
		keywords = name
	}
	return []string{name, description, keywords}
}

// IndexTable enriches, embeds and upserts a table into every sub-index.
// Re-indexing an id overwrites all three views and the metadata snapshot.
func (e *Engine) IndexTable(ctx context.Context, table *core.Table) error {
	if err := core.ValidateTable(table); err != nil {
		return err
	}
	table = table.Clone()

	if e.enrichment && e.enricher != nil {
		tctx, cancel := e.withTimeout(ctx)
		keywords, err := e.enricher.EnrichKeywords(tctx, table.Name, table.Domain(), table.Description, table.Keywords)
		cancel()
		if err != nil {
			e.logger.Warn("keyword enrichment failed, keeping existing keywords", "table", table.Name, "err", err)
		} else if len(keywords) > 0 {
			table.Keywords = keywords
		}
	}

	texts := viewTexts(table)
	tctx, cancel := e.withTimeout(ctx)
	vectors, err := e.embedder.EmbedTexts(tctx, texts)
	cancel()
	if err != nil {
		return fmt.Errorf("embed table %d: %w", table.Id, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embed table %d: %w: got %d vectors for %d views",
			table.Id, ai.ErrMalformedResponse, len(vectors), len(texts))
	}

	for i, store := range e.stores.byView() {
		if err := store.Upsert(ctx, table.Id, vectors[i], texts[i], table); err != nil {
			return fmt.Errorf("upsert %s view of table %d: %w", store.Name(), table.Id, err)
		}
	}

	e.index.add(table)
	e.cache.Add(table.Id, table)
	e.logger.Debug("indexed table", "id", table.Id, "name", table.Name, "keywords", len(table.Keywords))
	return nil
}

// IndexTables indexes tables concurrently on the worker pool. Tables that
// fail are reported in the joined error; the rest stay indexed.
func (e *Engine) IndexTables(ctx context.Context, tables []*core.Table) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for _, table := range tables {
		if ctx.Err() != nil {
			record(ctx.Err())
			break
		}
		wg.Add(1)
		submitErr := e.pool.Submit(func() {
			defer wg.Done()
			if err := e.IndexTable(ctx, table); err != nil {
				e.logger.Error("failed to index table", "table", tableName(table), "err", err)
				record(err)
			}
		})
		if submitErr != nil {
			wg.Done()
			record(fmt.Errorf("submit table %s: %w", tableName(table), submitErr))
		}
	}
	wg.Wait()
	return errors.Join(errs...)
}

func tableName(t *core.Table) string {
	if t == nil {
		return "<nil>"
	}
	return t.Name
}

// Delete removes a table from every sub-index, the inverted index and the
// cache. Deleting an unknown id is not an error.
func (e *Engine) Delete(ctx context.Context, id core.ID) error {
	var errs []error
	for _, store := range e.stores.byView() {
		if err := store.Delete(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("delete from %s: %w", store.Name(), err))
		}
	}
	e.index.remove(id)
	e.cache.Remove(id)
	return errors.Join(errs...)
}

// Clear removes every table and returns how many were indexed before.
func (e *Engine) Clear(ctx context.Context) (int, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return 0, err
	}
	for _, store := range e.stores.byView() {
		if err := store.ClearAll(ctx); err != nil {
			return 0, fmt.Errorf("clear %s: %w", store.Name(), err)
		}
	}
	e.index.reset()
	e.cache.Purge()
	e.logger.Info("cleared index", "tables", count)
	return count, nil
}

// Count returns the number of indexed tables.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.stores.Name.Count(ctx)
}

// List returns indexed tables ordered by id.
func (e *Engine) List(ctx context.Context, limit, offset int) ([]*core.Table, error) {
	return e.stores.Name.List(ctx, limit, offset)
}

// Get returns an indexed table. Returns storage.ErrNotFound if absent.
func (e *Engine) Get(ctx context.Context, id core.ID) (*core.Table, error) {
	if table, ok := e.cache.Get(id); ok {
		return table, nil
	}
	tables, err := e.stores.Name.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 || tables[0] == nil {
		return nil, storage.ErrNotFound
	}
	e.cache.Add(id, tables[0])
	return tables[0], nil
}

// Reload rebuilds the inverted index and warms the cache from the name
// sub-index. It returns the number of tables loaded.
func (e *Engine) Reload(ctx context.Context) (int, error) {
	tables, err := e.stores.Name.List(ctx, 0, 0)
	if err != nil {
		return 0, err
	}
	e.index.reset()
	for _, t := range tables {
		e.index.add(t)
		e.cache.Add(t.Id, t)
	}
	e.logger.Debug("reloaded inverted index", "tables", len(tables))
	return len(tables), nil
}

// TokenHit is an inverted-index match.
type TokenHit struct {
	Id      core.ID
	Matches int
}

// TokenCandidates returns tables containing any of tokens, most matches first.
func (e *Engine) TokenCandidates(tokens []string) []TokenHit {
	hits := e.index.lookup(tokens)
	out := make([]TokenHit, 0, len(hits))
	for id, n := range hits {
		out = append(out, TokenHit{Id: id, Matches: n})
	}
	sortTokenHits(out)
	return out
}

// Stats describes the engine's indexes.
type Stats struct {
	Tables        int `json:"total_tables"`
	IndexedTokens int `json:"inverted_index_tokens"`
	CachedTables  int `json:"cached_tables"`
}

// Stats returns index statistics.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	count, err := e.Count(ctx)
	if err != nil {
		return nil, err
	}
	tokens, _ := e.index.size()
	return &Stats{
		Tables:        count,
		IndexedTokens: tokens,
		CachedTables:  e.cache.Len(),
	}, nil
}
