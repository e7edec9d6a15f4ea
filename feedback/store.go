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

package feedback

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

const (
	// NeutralScore is returned while a pair has too few decisions.
	NeutralScore = 0.5

	DefaultMinSamples = 3
	DefaultCacheTTL   = 5 * time.Minute
	DefaultCacheSize  = 10000

	topRejectionReasons = 5
)

// Decision weights.
const (
	weightDefault = 1.0
	weightStrong  = 2.0
	weightClose   = 0.5
)

// HistoricalScore is the approval history of a (concept, table) pair.
type HistoricalScore struct {
	// Score is the weighted approval rate, or NeutralScore below the sample minimum.
	Score float64 `json:"score"`
	// Samples is the number of decisions recorded for the pair.
	Samples int `json:"samples"`
}

// CategoryCount is a category with its number of occurrences.
type CategoryCount struct {
	Category core.Category `json:"category"`
	Count    int           `json:"count"`
}

// TableCount is a table with its number of occurrences.
type TableCount struct {
	TableId core.ID `json:"table_id"`
	Count   int     `json:"count"`
}

// Insights aggregates the whole decision log.
type Insights struct {
	TotalDecisions       int                   `json:"total_decisions"`
	ApprovalRate         float64               `json:"approval_rate"`
	CloseMatchRate       float64               `json:"close_match_rate"`
	TopRejectionReasons  []CategoryCount       `json:"top_rejection_reasons"`
	CategoryDistribution map[core.Category]int `json:"category_distribution"`
}

// Stats describes the size of the decision log.
type Stats struct {
	TotalRecords      int     `json:"total_records"`
	WithJustification int     `json:"with_justification"`
	JustificationRate float64 `json:"justification_rate"`
	UniqueConcepts    int     `json:"unique_concepts"`
	UniquePairs       int     `json:"unique_pairs"`
	CategoriesTracked int     `json:"categories_tracked"`
}

// Store is the historical score store. It is safe for concurrent use.
type Store struct {
	repo     storage.DecisionRepository
	analyzer Analyzer
	cache    *expirable.LRU[string, HistoricalScore]

	minSamples int
	cacheTTL   time.Duration
	cacheSize  int

	mu             sync.RWMutex
	total          int
	approved       int
	closeMatches   int
	justified      int
	categoryTotals map[core.Category]int
	categoryStats  map[core.ID]map[core.Category]int
	keywordStats   map[string]map[core.ID]int
	concepts       map[string]struct{}
	pairs          map[string]struct{}

	// versions counts decisions per pair so a score computed concurrently
	// with a new decision is never cached.
	versions map[string]uint64

	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "feedback")
		return nil
	}
}

// WithMinSamples sets how many decisions a pair needs before its score
// leaves the neutral prior. Default is 3.
func WithMinSamples(n int) Option {
	return func(s *Store) error {
		if n < 1 {
			return fmt.Errorf("min samples must be positive: %d", n)
		}
		s.minSamples = n
		return nil
	}
}

// WithCacheTTL sets how long a computed score is reused. Default is 5 minutes.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive: %s", ttl)
		}
		s.cacheTTL = ttl
		return nil
	}
}

// WithCacheSize sets the maximum number of cached pair scores. Default is 10000.
func WithCacheSize(size int) Option {
	return func(s *Store) error {
		if size < 1 {
			return fmt.Errorf("cache size must be positive: %d", size)
		}
		s.cacheSize = size
		return nil
	}
}

// NewStore creates a store over repo and rebuilds its aggregates from the
// decisions already in the log.
func NewStore(ctx context.Context, repo storage.DecisionRepository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, ErrDecisionRepositoryRequired
	}
	s := &Store{
		repo:           repo,
		minSamples:     DefaultMinSamples,
		cacheTTL:       DefaultCacheTTL,
		cacheSize:      DefaultCacheSize,
		categoryTotals: make(map[core.Category]int),
		categoryStats:  make(map[core.ID]map[core.Category]int),
		keywordStats:   make(map[string]map[core.ID]int),
		concepts:       make(map[string]struct{}),
		pairs:          make(map[string]struct{}),
		versions:       make(map[string]uint64),
		logger:         slog.Default().With("component", "feedback"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.cache = expirable.NewLRU[string, HistoricalScore](s.cacheSize, nil, s.cacheTTL)

	records, err := repo.AllDecisions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load decision log: %w", err)
	}
	s.mu.Lock()
	for _, r := range records {
		s.trackLocked(r)
	}
	s.mu.Unlock()
	s.logger.Debug("loaded decision log", "decisions", len(records))
	return s, nil
}

func pairKey(conceptHash string, tableID core.ID) string {
	return conceptHash + ":" + strconv.FormatUint(uint64(tableID), 10)
}

// Record analyzes the record's justification, appends it to the log and
// invalidates the cached score of its pair.
func (s *Store) Record(ctx context.Context, record *core.DecisionRecord) (*core.DecisionRecord, error) {
	if record == nil {
		return nil, core.ErrInvalidDecision
	}
	r := *record
	r.JustificationKeywords = nil
	if r.JustificationText != "" {
		a := s.analyzer.Analyze(r.JustificationText, r.Outcome)
		r.JustificationCategory = a.Category
		r.JustificationKeywords = a.Keywords
		r.WasCloseMatch = a.CloseMatch
		r.SuggestedImprovement = s.analyzer.ExtractImprovement(r.JustificationText)
	}

	stored, err := s.repo.AppendDecision(ctx, &r)
	if err != nil {
		return nil, err
	}

	key := pairKey(stored.ConceptHash, stored.TableId)
	s.mu.Lock()
	s.trackLocked(stored)
	s.versions[key]++
	s.cache.Remove(key)
	s.mu.Unlock()

	s.logger.Info("recorded decision",
		"concept", stored.ConceptHash,
		"table", stored.TableId,
		"outcome", stored.Outcome,
		"category", stored.JustificationCategory,
		"close_match", stored.WasCloseMatch)
	return stored, nil
}

// trackLocked folds a decision into the in-memory aggregates.
func (s *Store) trackLocked(r *core.DecisionRecord) {
	s.total++
	if r.Approved() {
		s.approved++
	}
	if r.WasCloseMatch {
		s.closeMatches++
	}
	if r.JustificationText != "" {
		s.justified++
	}
	s.concepts[r.ConceptHash] = struct{}{}
	s.pairs[pairKey(r.ConceptHash, r.TableId)] = struct{}{}

	if r.JustificationCategory == "" {
		return
	}
	s.categoryTotals[r.JustificationCategory]++
	cats, ok := s.categoryStats[r.TableId]
	if !ok {
		cats = make(map[core.Category]int)
		s.categoryStats[r.TableId] = cats
	}
	cats[r.JustificationCategory]++
	for _, kw := range r.JustificationKeywords {
		tables, ok := s.keywordStats[kw]
		if !ok {
			tables = make(map[core.ID]int)
			s.keywordStats[kw] = tables
		}
		tables[r.TableId]++
	}
}

// Weight returns how much a decision counts in the approval rate: doubled
// for strong signals (exact match or certified source on approval, concept
// mismatch or wrong entity otherwise), halved for other close-match
// rejections.
func Weight(r *core.DecisionRecord) float64 {
	if r.JustificationCategory == "" {
		return weightDefault
	}
	if r.Approved() {
		switch r.JustificationCategory {
		case core.CategoryExactMatch, core.CategoryCertifiedSource:
			return weightStrong
		}
		return weightDefault
	}
	switch {
	case r.JustificationCategory == core.CategoryConceptMismatch, r.JustificationCategory == core.CategoryWrongEntity:
		return weightStrong
	case r.WasCloseMatch:
		return weightClose
	}
	return weightDefault
}

// WeightedApprovalRate is the sum of weights of approvals over the sum of
// all weights, or NeutralScore for an empty slice.
func WeightedApprovalRate(records []*core.DecisionRecord) float64 {
	var approved, total float64
	for _, r := range records {
		w := Weight(r)
		if r.Approved() {
			approved += w
		}
		total += w
	}
	if total == 0 {
		return NeutralScore
	}
	return approved / total
}

// HistoricalScore returns the approval history of a pair.
func (s *Store) HistoricalScore(ctx context.Context, conceptHash string, tableID core.ID) (HistoricalScore, error) {
	key := pairKey(conceptHash, tableID)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	s.mu.RLock()
	version := s.versions[key]
	s.mu.RUnlock()

	records, err := s.repo.GetDecisions(ctx, conceptHash, tableID)
	if err != nil {
		return HistoricalScore{Score: NeutralScore}, err
	}
	score := HistoricalScore{Score: NeutralScore, Samples: len(records)}
	if len(records) >= s.minSamples {
		score.Score = WeightedApprovalRate(records)
	}

	s.mu.Lock()
	if s.versions[key] == version {
		s.cache.Add(key, score)
	}
	s.mu.Unlock()
	return score, nil
}

// Invalidate drops the cached score of a pair.
func (s *Store) Invalidate(conceptHash string, tableID core.ID) {
	key := pairKey(conceptHash, tableID)
	s.mu.Lock()
	s.versions[key]++
	s.cache.Remove(key)
	s.mu.Unlock()
}

// RejectionPatterns returns the justification category histogram of a table.
func (s *Store) RejectionPatterns(tableID core.ID) map[core.Category]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.categoryStats[tableID])
}

// KeywordTables returns how often a justification keyword was used per table.
func (s *Store) KeywordTables(keyword string) map[core.ID]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.keywordStats[keyword])
}

// TablesWithIssue returns the tables justified with category, most often first.
func (s *Store) TablesWithIssue(category core.Category) []TableCount {
	s.mu.RLock()
	var out []TableCount
	for id, cats := range s.categoryStats {
		if n := cats[category]; n > 0 {
			out = append(out, TableCount{TableId: id, Count: n})
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b TableCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.TableId, b.TableId)
	})
	return out
}

// Insights aggregates the decision log.
func (s *Store) Insights() *Insights {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Insights{
		TotalDecisions:       s.total,
		CategoryDistribution: maps.Clone(s.categoryTotals),
	}
	if s.total > 0 {
		out.ApprovalRate = float64(s.approved) / float64(s.total)
		out.CloseMatchRate = float64(s.closeMatches) / float64(s.total)
	}
	for cat, n := range s.categoryTotals {
		if cat.IsRejection() {
			out.TopRejectionReasons = append(out.TopRejectionReasons, CategoryCount{Category: cat, Count: n})
		}
	}
	slices.SortFunc(out.TopRejectionReasons, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	if len(out.TopRejectionReasons) > topRejectionReasons {
		out.TopRejectionReasons = out.TopRejectionReasons[:topRejectionReasons]
	}
	return out
}

// Stats describes the decision log.
func (s *Store) Stats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &Stats{
		TotalRecords:      s.total,
		WithJustification: s.justified,
		UniqueConcepts:    len(s.concepts),
		UniquePairs:       len(s.pairs),
		CategoriesTracked: len(s.categoryStats),
	}
	if s.total > 0 {
		out.JustificationRate = float64(s.justified) / float64(s.total)
	}
	return out
}
