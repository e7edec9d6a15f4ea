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
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/ambiguity"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/feedback"
	"github.com/poiesic/datafinder/retrieval"
	"golang.org/x/sync/errgroup"
)

// extractIntent canonicalizes the query. On failure the heuristic intent is
// used and the failure recorded.
func (o *Orchestrator) extractIntent(ctx context.Context, st *State) error {
	if o.extractor == nil {
		st.Intent = ai.HeuristicIntent(st.Query)
		st.ConceptHash = core.ConceptHash(st.Intent)
		return nil
	}
	tctx, cancel := o.withTimeout(ctx)
	intent, err := o.extractor.ExtractIntent(tctx, st.Query)
	cancel()
	if err == nil {
		err = core.ValidateIntent(intent)
	}
	if err != nil {
		st.Intent = ai.HeuristicIntent(st.Query)
		st.ConceptHash = core.ConceptHash(st.Intent)
		return err
	}
	if intent.OriginalQuery == "" {
		intent.OriginalQuery = st.Query
	}
	st.Intent = intent
	st.ConceptHash = core.ConceptHash(intent)
	return nil
}

func domainHint(intent *core.CanonicalIntent) string {
	if intent == nil || len(intent.InferredDomains) == 0 {
		return ""
	}
	return intent.InferredDomains[0]
}

// searchDomains retrieves candidate tables once for the request and ranks
// domains from them and the catalog.
func (o *Orchestrator) searchDomains(ctx context.Context, st *State) error {
	result, err := o.retriever.SearchWithDomainFallback(ctx, st.Query, &retrieval.FallbackOptions{
		SearchOptions: retrieval.SearchOptions{
			MaxResults:    o.config.MaxResults,
			DomainHint:    domainHint(st.Intent),
			DisableRerank: true,
		},
		Threshold: o.config.FallbackConfidence,
	})
	if err == nil {
		st.Retrieved = result.Results
		st.SearchBand = result.Confidence
		st.SearchMessage = result.Message
	}
	st.Domains = rankDomains(st, o.catalog)
	return err
}

func (o *Orchestrator) searchOwners(ctx context.Context, st *State) error {
	st.Owners = rankOwners(st, o.catalog)
	return nil
}

// fork runs the table and column searches concurrently and waits for both.
func (o *Orchestrator) fork(ctx context.Context, st *State) {
	var tables, columns []*core.TableMatch
	var tableErr, columnErr error

	var g errgroup.Group
	g.SetLimit(2)
	g.Go(func() error {
		tables, tableErr = o.branch(ctx, st, o.searchTables)
		return tableErr
	})
	g.Go(func() error {
		columns, columnErr = o.branch(ctx, st, o.searchColumns)
		return columnErr
	})
	_ = g.Wait()

	st.Tables, st.Columns = tables, columns
	for _, f := range []struct {
		stage string
		err   error
	}{{StageTables, tableErr}, {StageColumns, columnErr}} {
		if f.err != nil {
			o.logger.Warn("stage failed", "request_id", st.RequestId, "stage", f.stage, "err", f.err)
			st.fail(f.stage, f.err)
		}
	}
}

func (o *Orchestrator) branch(ctx context.Context, st *State, fn func(context.Context, *State) ([]*core.TableMatch, error)) ([]*core.TableMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, st)
}

// searchTables scores the tables retrieved for the request, searching again
// only when the domain stage could not.
func (o *Orchestrator) searchTables(ctx context.Context, st *State) ([]*core.TableMatch, error) {
	results := st.Retrieved
	if st.Failed(StageDomains) {
		var err error
		results, err = o.retriever.Search(ctx, st.Query, &retrieval.SearchOptions{
			MaxResults:    o.config.MaxResults,
			DisableRerank: true,
		})
		if err != nil {
			return nil, err
		}
	}
	matches := make([]*core.TableMatch, 0, len(results))
	for _, r := range results {
		basis := fmt.Sprintf("semântica %.2f (nome %.2f, descrição %.2f, palavras-chave %.2f, termos %.2f)",
			r.Score, r.Breakdown.Name, r.Breakdown.Description, r.Breakdown.Keywords, r.Breakdown.Overlap)
		matches = append(matches, o.scoreTable(ctx, st, r.Table, r.Score, basis))
	}
	sortMatches(matches)
	return matches, nil
}

// searchColumns matches the variable name, or the query when no variable
// is given, against the column names of keyword hits and of the matched
// owners' tables.
func (o *Orchestrator) searchColumns(ctx context.Context, st *State) ([]*core.TableMatch, error) {
	tokens := uniqueTokens(st.VariableName)
	if len(tokens) == 0 {
		tokens = uniqueTokens(st.Query)
	}
	if len(tokens) == 0 {
		return nil, nil
	}

	candidates := make(map[core.ID]*core.Table)
	for _, hit := range o.retriever.TokenCandidates(tokens) {
		t, err := o.table(ctx, hit.Id)
		if err != nil {
			continue
		}
		candidates[t.Id] = t
	}
	for _, m := range st.Owners {
		for _, t := range o.catalog.TablesOf(m.Owner) {
			candidates[t.Id] = t
		}
	}

	var matches []*core.TableMatch
	for _, t := range candidates {
		score, columns := columnScore(tokens, t.Columns)
		if score == 0 {
			continue
		}
		basis := fmt.Sprintf("colunas %.2f (%s)", score, strings.Join(columns, ", "))
		matches = append(matches, o.scoreTable(ctx, st, t, score, basis))
	}
	sortMatches(matches)
	return matches, nil
}

// scoreTable builds the match of t from its retrieval score and the request.
func (o *Orchestrator) scoreTable(ctx context.Context, st *State, t *core.Table, semantic float64, basis string) *core.TableMatch {
	historical := feedback.HistoricalScore{Score: feedback.NeutralScore}
	if o.scores != nil && st.ConceptHash != "" {
		hs, err := o.scores.HistoricalScore(ctx, st.ConceptHash, t.Id)
		if err != nil {
			o.logger.Warn("historical score unavailable, using neutral prior", "table", t.Id, "err", err)
		}
		historical = hs
	}
	contextScore := 0.5*st.domainScore(t) + 0.5*st.ownerScore(t)
	matched, productMatch := matchEntities(st.Intent, t)

	scores := core.SubScores{
		Semantic:      semantic,
		Historical:    historical.Score,
		Context:       contextScore,
		Certification: core.CertificationScore(t),
		Freshness:     core.FreshnessScore(t.UpdateFrequency),
		Quality:       qualityScore(t),
	}
	reasoning := fmt.Sprintf("%s; histórico %.2f (%d decisões); contexto %.2f; certificação %.2f",
		basis, historical.Score, historical.Samples, contextScore, scores.Certification)
	return core.NewTableMatch(t, scores, reasoning, matched, productMatch)
}

func (o *Orchestrator) merge(ctx context.Context, st *State) error {
	st.Ranking = mergeMatches(st.Tables, st.Columns)
	return nil
}

// needsRerank reports whether the top two candidates are too close, or the
// table and column searches disagree on the best table.
func (o *Orchestrator) needsRerank(st *State) bool {
	if len(st.Ranking) < 2 {
		return false
	}
	if st.Ranking[0].TotalScore-st.Ranking[1].TotalScore < o.config.RerankCloseness {
		return true
	}
	return len(st.Tables) > 0 && len(st.Columns) > 0 &&
		st.Tables[0].Table.Id != st.Columns[0].Table.Id
}

// rerank asks the reranker to order a close ranking. Failures keep the
// merged order.
func (o *Orchestrator) rerank(ctx context.Context, st *State) error {
	if !o.config.Rerank || o.reranker == nil || !o.needsRerank(st) {
		return nil
	}
	n := min(retrieval.MaxRerankCandidates, len(st.Ranking))
	candidates := make([]ai.RerankCandidate, n)
	for i, m := range st.Ranking[:n] {
		candidates[i] = retrieval.RerankCandidate(i, m.Table)
	}

	tctx, cancel := o.withTimeout(ctx)
	picks, err := o.reranker.Rerank(tctx, st.Query, candidates)
	cancel()
	if err != nil {
		o.logger.Warn("rerank failed, keeping merged order", "request_id", st.RequestId, "err", err)
		return nil
	}
	picks = slices.DeleteFunc(picks, func(i int) bool { return i >= n })

	order := retrieval.Interleave(len(st.Ranking), picks)
	reranked := make([]*core.TableMatch, len(order))
	for i, idx := range order {
		reranked[i] = st.Ranking[idx]
	}
	st.Ranking = reranked
	st.Reranked = true
	return nil
}

func (o *Orchestrator) detectAmbiguity(ctx context.Context, st *State) error {
	st.Ambiguity = o.detector.Detect(st.Query, st.Ranking)
	return nil
}

// decide assembles the answer. It always runs, even for cancelled
// requests, and reads absent upstream fields as uncertainty.
func (o *Orchestrator) decide(st *State) {
	if st.Ambiguity == nil {
		st.Ambiguity = ambiguity.None()
	}
	critical := st.Failed(StageIntent) || (st.Failed(StageTables) && st.Failed(StageColumns))

	var best *core.TableMatch
	if len(st.Ranking) > 0 {
		best = st.Ranking[0]
	}
	domain := o.bestDomain(st, best)
	owner := o.bestOwner(st, best, domain)

	var domainConf, ownerConf float64
	if domain != nil {
		st.BestDomain = domain.Domain
		domainConf = domain.Score
	}
	if owner != nil {
		st.BestOwner = owner.Owner
		ownerConf = owner.Score
	}

	switch {
	case best == nil:
		st.DataExistence = core.DataNeedsCreation
		st.Action = core.ActionCreateInvolvement
		st.OverallConfidence = 0.5 * max(domainConf, ownerConf)
	case best.TotalScore >= o.config.ExistsThreshold:
		st.BestTable = best.Table
		st.DataExistence = core.DataExists
		st.Action = core.ActionUseTable
		st.OverallConfidence = best.TotalScore
	default:
		st.BestTable = best.Table
		st.DataExistence = core.DataUncertain
		st.Action = core.ActionConfirmWithOwner
		st.OverallConfidence = best.TotalScore
	}
	if best != nil && st.Ambiguity.IsAmbiguous {
		st.Action = core.ActionConfirmWithOwner
	}
	if critical {
		st.DataExistence = core.DataUncertain
		st.OverallConfidence /= 2
		if best != nil || st.BestOwner != nil {
			st.Action = core.ActionConfirmWithOwner
		}
	}

	reasoning := o.reasoning(st, best)
	switch st.Mode {
	case OutputRanking:
		k := o.config.RankingSize
		st.RankingOutput = &RankingOutput{
			Domains:            st.Domains[:min(k, len(st.Domains))],
			Owners:             st.Owners[:min(k, len(st.Owners))],
			Tables:             st.Ranking[:min(k, len(st.Ranking))],
			Summary:            reasoning,
			ClarifyingQuestion: st.Ambiguity.ClarifyingQuestion,
		}
	default:
		out := &SingleOutput{
			Domain:           st.BestDomain,
			Owner:            st.BestOwner,
			Table:            st.BestTable,
			DomainConfidence: domainConf,
			OwnerConfidence:  ownerConf,
			DataExistence:    st.DataExistence,
			Action:           st.Action,
			Reasoning:        reasoning,
		}
		if best != nil {
			conf := best.TotalScore
			out.TableConfidence = &conf
		}
		st.Single = out
	}
}

// bestDomain returns the domain of the best table, else the top domain.
func (o *Orchestrator) bestDomain(st *State, best *core.TableMatch) *core.DomainMatch {
	if best == nil {
		if len(st.Domains) > 0 {
			return st.Domains[0]
		}
		return nil
	}
	for _, m := range st.Domains {
		if tableInDomain(best.Table, m.Domain) {
			return m
		}
	}
	if d := o.catalog.Domain(best.Table.DomainId); d != nil {
		return &core.DomainMatch{Domain: d}
	}
	if d := o.catalog.Domain(best.Table.Domain()); d != nil {
		return &core.DomainMatch{Domain: d}
	}
	if name := best.Table.Domain(); name != "" {
		return &core.DomainMatch{Domain: &core.Domain{Id: name, Name: name}}
	}
	return nil
}

// bestOwner returns the owner of the best table, else the top owner of the
// chosen domain.
func (o *Orchestrator) bestOwner(st *State, best *core.TableMatch, domain *core.DomainMatch) *core.OwnerMatch {
	if best == nil {
		for _, m := range st.Owners {
			if domain == nil || inDomain(m.Owner.DomainId, m.Owner.DomainName, domain.Domain) {
				return m
			}
		}
		return nil
	}
	for _, m := range st.Owners {
		if ownedBy(best.Table, m.Owner) {
			return m
		}
	}
	if owner := ownerOf(best.Table, o.catalog); owner != nil {
		return &core.OwnerMatch{Owner: owner}
	}
	return nil
}

func (o *Orchestrator) reasoning(st *State, best *core.TableMatch) string {
	var b strings.Builder
	domainName, ownerName := "desconhecido", "desconhecido"
	if st.BestDomain != nil {
		domainName = st.BestDomain.Name
	}
	if st.BestOwner != nil {
		ownerName = st.BestOwner.Name
	}
	switch {
	case st.Mode == OutputRanking:
		fmt.Fprintf(&b, "Encontrei %d domínios, %d responsáveis e %d tabelas para '%s'.",
			len(st.Domains), len(st.Owners), len(st.Ranking), st.Query)
	case best != nil:
		fmt.Fprintf(&b, "Tabela '%s' no domínio %s (responsável %s) com confiança %.2f: %s.",
			best.Table.Label(), domainName, ownerName, best.TotalScore, best.Reasoning)
	case st.BestOwner != nil:
		fmt.Fprintf(&b, "Nenhuma tabela atende '%s'; procure %s no domínio %s para criar o dado.",
			st.Query, ownerName, domainName)
	default:
		fmt.Fprintf(&b, "Nenhum domínio ou responsável identificado para '%s'.", st.Query)
	}
	if st.Ambiguity.IsAmbiguous {
		b.WriteString(" ")
		b.WriteString(st.Ambiguity.ClarifyingQuestion)
	}
	if len(st.Errors) > 0 {
		stages := make([]string, len(st.Errors))
		for i, e := range st.Errors {
			stages[i] = e.Stage
		}
		fmt.Fprintf(&b, " Etapas com falha: %s.", strings.Join(stages, ", "))
	}
	return b.String()
}

// savePending stores the decision awaiting a human verdict.
func (o *Orchestrator) savePending(ctx context.Context, st *State) error {
	if o.decisions == nil || st.ConceptHash == "" || (st.BestTable == nil && st.BestOwner == nil) {
		return nil
	}
	record := &core.DecisionRecord{
		RequestId:            st.RequestId,
		ConceptHash:          st.ConceptHash,
		ConfidenceAtDecision: core.Clamp01(st.OverallConfidence),
		Query:                st.Query,
		CreatedAt:            time.Now().UTC(),
	}
	if st.BestDomain != nil {
		record.DomainId = st.BestDomain.Id
	}
	if st.BestOwner != nil {
		record.OwnerId = st.BestOwner.Id
	}
	if st.BestTable != nil {
		record.TableId = st.BestTable.Id
	}
	return o.decisions.SavePending(ctx, record)
}
