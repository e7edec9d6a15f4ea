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
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

const (
	// MaxRerankCandidates is the number of top results shown to the reranker.
	MaxRerankCandidates = 10
	// rerankMinResults is the result count above which reranking runs.
	rerankMinResults = 3
	// rerankDescriptionLen caps the description shown per rerank candidate.
	rerankDescriptionLen = 150
	// synonymsPerTerm and maxSynonyms bound thesaurus expansion.
	synonymsPerTerm = 2
	maxSynonyms     = 5
)

// SearchOptions tunes a single search. The zero value uses engine defaults.
type SearchOptions struct {
	// MaxResults overrides the engine's result count when positive.
	MaxResults int
	// Domain restricts results to tables whose domain name or id matches.
	Domain string
	// DomainHint is passed to the query expander.
	DomainHint string
	// DisableExpansion skips query expansion.
	DisableExpansion bool
	// DisableRerank skips model reranking.
	DisableRerank bool
}

// Result is a ranked table.
type Result struct {
	Table     *core.Table    `json:"table"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"score_breakdown"`
}

type candidate struct {
	table  *core.Table
	scores ScoreBreakdown
}

// Search returns the tables best matching query, fused and optionally reranked.
// Collaborator failures degrade the affected signal and are never returned.
func (e *Engine) Search(ctx context.Context, query string, opts *SearchOptions) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if opts == nil {
		opts = &SearchOptions{}
	}
	maxResults := e.maxResults
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}
	var filter *storage.Filter
	if opts.Domain != "" {
		filter = &storage.Filter{Domain: opts.Domain}
	}

	e.monitor.Start(query)

	expanded := e.expand(ctx, query, opts)
	e.monitor.AfterExpansion(expanded)

	candidates := e.semanticCandidates(ctx, query, maxResults*e.multiplier, filter)

	if e.keywordRecall {
		added := e.recall(ctx, expanded, candidates, maxResults*e.multiplier, filter)
		e.monitor.AfterKeywordRecall(added)
	}

	results := make([]*Result, 0, len(candidates))
	for _, c := range candidates {
		c.scores.Overlap = OverlapScore(expanded, c.table)
		results = append(results, &Result{
			Table:     c.table,
			Score:     c.scores.Combined(),
			Breakdown: c.scores,
		})
	}
	slices.SortStableFunc(results, func(a, b *Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Table.Id, b.Table.Id)
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	e.monitor.AfterFusion(results)

	if e.rerank && !opts.DisableRerank && e.reranker != nil && len(results) > rerankMinResults {
		results = e.rerankResults(ctx, query, results)
	}

	e.monitor.Finish(results)
	return results, nil
}

// expand returns the text used for token-overlap scoring.
func (e *Engine) expand(ctx context.Context, query string, opts *SearchOptions) string {
	expanded := query
	if e.expansion && !opts.DisableExpansion && e.expander != nil {
		tctx, cancel := e.withTimeout(ctx)
		text, err := e.expander.ExpandQuery(tctx, query, opts.DomainHint)
		cancel()
		if err != nil {
			e.logger.Warn("query expansion failed, using original query", "query", query, "err", err)
		} else if strings.TrimSpace(text) != "" {
			expanded = text
		}
	}
	if extra := e.synonyms(query); len(extra) > 0 {
		expanded += " " + strings.Join(extra, " ")
	}
	return expanded
}

// synonyms returns learned synonyms of the query's words longer than two characters.
func (e *Engine) synonyms(query string) []string {
	if e.thesaurus == nil {
		return nil
	}
	var out []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(word)) <= 2 {
			continue
		}
		syns := e.thesaurus.Synonyms(word)
		for _, s := range syns[:min(synonymsPerTerm, len(syns))] {
			if len(out) >= maxSynonyms {
				return out
			}
			if !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

// semanticCandidates embeds query and queries every sub-index concurrently.
// A failed embedding or sub-index query contributes nothing.
func (e *Engine) semanticCandidates(ctx context.Context, query string, k int, filter *storage.Filter) map[core.ID]*candidate {
	candidates := make(map[core.ID]*candidate)

	tctx, cancel := e.withTimeout(ctx)
	vector, err := e.embedder.EmbedText(tctx, query)
	cancel()
	if err != nil {
		e.logger.Warn("query embedding failed, semantic signals disabled", "query", query, "err", err)
		return candidates
	}

	stores := e.stores.byView()
	hits := make([][]*storage.Hit, len(stores))
	var wg sync.WaitGroup
	for i, store := range stores {
		wg.Add(1)
		run := func() {
			defer wg.Done()
			qctx, cancel := e.withTimeout(ctx)
			defer cancel()
			h, err := store.Query(qctx, vector, k, filter)
			if err != nil {
				e.logger.Warn("sub-index query failed", "view", store.Name(), "err", err)
				return
			}
			hits[i] = h
		}
		if err := e.pool.Submit(run); err != nil {
			e.logger.Warn("worker pool rejected sub-index query, running inline", "view", store.Name(), "err", err)
			run()
		}
	}
	wg.Wait()

	for i, viewHits := range hits {
		e.monitor.AfterViewQuery(Views[i], len(viewHits))
		for _, hit := range viewHits {
			c, ok := candidates[hit.Id]
			if !ok {
				table := hit.Metadata
				if cached, found := e.cache.Get(hit.Id); found {
					table = cached
				}
				if table == nil {
					continue
				}
				c = &candidate{table: table}
				candidates[hit.Id] = c
			}
			sim := Similarity(hit.Distance)
			switch i {
			case 0:
				c.scores.Name = max(c.scores.Name, sim)
			case 1:
				c.scores.Description = max(c.scores.Description, sim)
			case 2:
				c.scores.Keywords = max(c.scores.Keywords, sim)
			}
		}
	}
	return candidates
}

// recall adds up to limit inverted-index hits for the expanded query that
// no sub-index returned. It returns how many were added.
func (e *Engine) recall(ctx context.Context, expanded string, candidates map[core.ID]*candidate, limit int, filter *storage.Filter) int {
	added := 0
	for _, hit := range e.TokenCandidates(core.Tokenize(expanded)) {
		if added >= limit {
			break
		}
		if _, ok := candidates[hit.Id]; ok {
			continue
		}
		table, err := e.Get(ctx, hit.Id)
		if err != nil {
			e.logger.Debug("keyword recall skipped table", "id", hit.Id, "err", err)
			continue
		}
		if !filter.Matches(table) {
			continue
		}
		candidates[hit.Id] = &candidate{table: table}
		added++
	}
	return added
}

// rerankResults reorders results with the reranker, interleaving its picks
// with the fusion ranking. Failures keep the fusion order.
func (e *Engine) rerankResults(ctx context.Context, query string, results []*Result) []*Result {
	n := min(MaxRerankCandidates, len(results))
	candidates := make([]ai.RerankCandidate, n)
	for i, r := range results[:n] {
		candidates[i] = RerankCandidate(i, r.Table)
	}

	tctx, cancel := e.withTimeout(ctx)
	picks, err := e.reranker.Rerank(tctx, query, candidates)
	cancel()
	if err != nil {
		e.logger.Warn("rerank failed, keeping fusion order", "query", query, "err", err)
		return results
	}

	picks = slices.DeleteFunc(picks, func(i int) bool { return i >= n })
	order := Interleave(len(results), picks)
	e.monitor.AfterRerank(order)
	reranked := make([]*Result, len(order))
	for i, idx := range order {
		reranked[i] = results[idx]
	}
	return reranked
}

// RerankCandidate describes table to the reranker as candidate index i.
func RerankCandidate(i int, table *core.Table) ai.RerankCandidate {
	return ai.RerankCandidate{
		Index:       i,
		Name:        table.Name,
		DisplayName: table.DisplayName,
		Domain:      table.Domain(),
		Description: Truncate(table.Description, rerankDescriptionLen),
	}
}

func sortTokenHits(hits []TokenHit) {
	slices.SortFunc(hits, func(a, b TokenHit) int {
		if c := cmp.Compare(b.Matches, a.Matches); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})
}
