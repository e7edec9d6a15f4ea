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
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/core"
)

// Domain score weights.
const (
	domainWeightRetrieval = 0.35
	domainWeightShare     = 0.25
	domainWeightInferred  = 0.25
	domainWeightOverlap   = 0.15
)

// Owner score weights.
const (
	ownerWeightTables = 0.6
	ownerWeightDomain = 0.4
)

// rankDomains scores catalog domains, plus the domains of retrieved tables
// the catalog does not know, against the request.
func rankDomains(st *State, catalog *Catalog) []*core.DomainMatch {
	candidates := slices.Clone(catalog.DomainsList())
	seen := make(map[string]bool)
	for _, d := range candidates {
		seen[strings.ToLower(d.Id)] = true
		seen[strings.ToLower(d.Name)] = true
	}
	for _, r := range st.Retrieved {
		name := r.Table.Domain()
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true
		candidates = append(candidates, &core.Domain{Id: name, Name: name})
	}

	queryTokens := uniqueTokens(st.Query)
	var matches []*core.DomainMatch
	for _, d := range candidates {
		var top float64
		var count int
		for _, r := range st.Retrieved {
			if tableInDomain(r.Table, d) {
				count++
				top = max(top, r.Score)
			}
		}
		var share float64
		if len(st.Retrieved) > 0 {
			share = float64(count) / float64(len(st.Retrieved))
		}
		inferred := inferredDomain(st.Intent, d)
		overlap := coverage(queryTokens, domainTokens(d))

		score := core.Clamp01(domainWeightRetrieval*top +
			domainWeightShare*share +
			domainWeightInferred*inferred +
			domainWeightOverlap*overlap)
		if score == 0 {
			continue
		}

		var reasons []string
		if inferred > 0 {
			reasons = append(reasons, "domínio inferido da intenção")
		}
		if count > 0 {
			reasons = append(reasons, fmt.Sprintf("%d de %d tabelas recuperadas (melhor %.2f)", count, len(st.Retrieved), top))
		}
		if overlap > 0 {
			reasons = append(reasons, fmt.Sprintf("%.0f%% dos termos da consulta", overlap*100))
		}
		matches = append(matches, &core.DomainMatch{
			Domain:    d,
			Score:     score,
			Reasoning: strings.Join(reasons, "; "),
		})
	}
	slices.SortStableFunc(matches, func(a, b *core.DomainMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Domain.Name, b.Domain.Name)
	})
	return matches
}

// rankOwners scores the owners of matched domains, plus the owners named by
// retrieved tables, by their best retrieved table and their domain's score.
func rankOwners(st *State, catalog *Catalog) []*core.OwnerMatch {
	var candidates []*core.Owner
	seen := make(map[core.ID]bool)
	add := func(o *core.Owner) {
		if o != nil && !seen[o.Id] {
			seen[o.Id] = true
			candidates = append(candidates, o)
		}
	}
	for _, m := range st.Domains {
		for _, o := range catalog.OwnersOf(m.Domain) {
			add(o)
		}
	}
	for _, r := range st.Retrieved {
		add(ownerOf(r.Table, catalog))
	}

	var matches []*core.OwnerMatch
	for _, o := range candidates {
		var top float64
		for _, r := range st.Retrieved {
			if ownedBy(r.Table, o) {
				top = max(top, r.Score)
			}
		}
		var domainScore float64
		for _, m := range st.Domains {
			if inDomain(o.DomainId, o.DomainName, m.Domain) {
				domainScore = m.Score
				break
			}
		}
		score := core.Clamp01(ownerWeightTables*top + ownerWeightDomain*domainScore)
		if score == 0 {
			continue
		}
		matches = append(matches, &core.OwnerMatch{
			Owner:     o,
			Score:     score,
			Reasoning: fmt.Sprintf("melhor tabela %.2f; domínio %.2f", top, domainScore),
		})
	}
	slices.SortStableFunc(matches, func(a, b *core.OwnerMatch) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Owner.Name, b.Owner.Name)
	})
	return matches
}

// ownerOf returns the catalog owner of t, or one derived from its metadata.
func ownerOf(t *core.Table, catalog *Catalog) *core.Owner {
	if o := catalog.Owner(t.OwnerId); o != nil {
		return o
	}
	if strings.TrimSpace(t.OwnerName) == "" {
		return nil
	}
	id := t.OwnerId
	if id == 0 {
		id = core.IDFromContent(t.OwnerName)
	}
	return &core.Owner{Id: id, Name: t.OwnerName, DomainId: t.DomainId, DomainName: t.Domain()}
}

func inferredDomain(intent *core.CanonicalIntent, d *core.Domain) float64 {
	if intent == nil {
		return 0
	}
	category := ai.DetectCategory(d.Name+" "+d.Id, "")
	for _, inferred := range intent.InferredDomains {
		if strings.EqualFold(inferred, d.Id) || strings.EqualFold(inferred, d.Name) ||
			(category != "" && strings.EqualFold(inferred, category)) {
			return 1
		}
	}
	return 0
}

func domainTokens(d *core.Domain) map[string]bool {
	tokens := make(map[string]bool)
	for _, text := range append([]string{d.Id, d.Name, d.Description}, d.Keywords...) {
		for _, tok := range core.Tokenize(text) {
			tokens[tok] = true
		}
	}
	return tokens
}

// columnScore returns the share of tokens found in the column names and the
// columns that matched.
func columnScore(tokens []string, columns []string) (float64, []string) {
	if len(tokens) == 0 || len(columns) == 0 {
		return 0, nil
	}
	columnTokens := make([][]string, len(columns))
	for i, c := range columns {
		columnTokens[i] = core.Tokenize(c)
	}
	var hits int
	var matched []string
	for _, tok := range tokens {
		found := false
		for i, ct := range columnTokens {
			if slices.Contains(ct, tok) {
				found = true
				if !slices.Contains(matched, columns[i]) {
					matched = append(matched, columns[i])
				}
			}
		}
		if found {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens)), matched
}

// matchEntities returns the intent slots found in the table's text and
// whether the intent's product matched.
func matchEntities(intent *core.CanonicalIntent, t *core.Table) ([]string, bool) {
	if intent == nil {
		return nil, false
	}
	text := make(map[string]bool)
	for _, s := range append([]string{t.Name, t.DisplayName, t.Description, t.InferredProduct, t.Granularity}, t.Keywords...) {
		for _, tok := range core.Tokenize(s) {
			text[tok] = true
		}
	}
	var matched []string
	productMatch := false
	for _, slot := range []string{intent.TargetEntity, intent.TargetSegment, intent.TargetProduct, intent.Granularity} {
		tokens := core.Tokenize(slot)
		if len(tokens) == 0 || coverage(tokens, text) < 1 {
			continue
		}
		matched = append(matched, slot)
		if slot == intent.TargetProduct {
			productMatch = true
		}
	}
	if intent.TargetProduct != "" && strings.EqualFold(intent.TargetProduct, t.InferredProduct) {
		productMatch = true
	}
	return matched, productMatch
}

// qualityScore rates how complete the table's metadata is.
func qualityScore(t *core.Table) float64 {
	present := 0
	for _, ok := range []bool{
		strings.TrimSpace(t.Description) != "",
		strings.TrimSpace(t.DisplayName) != "",
		len(t.Keywords) > 0,
		t.OwnerId != 0 || t.OwnerName != "",
		t.UpdateFrequency != "",
	} {
		if ok {
			present++
		}
	}
	return float64(present) / 5
}

// coverage returns the share of tokens present in set.
func coverage(tokens []string, set map[string]bool) float64 {
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range tokens {
		if set[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

func uniqueTokens(text string) []string {
	tokens := core.Tokenize(text)
	slices.Sort(tokens)
	return slices.Compact(tokens)
}

func sortMatches(matches []*core.TableMatch) {
	slices.SortStableFunc(matches, func(a, b *core.TableMatch) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.Table.Id, b.Table.Id)
	})
}

// mergeMatches unions the branch results, keeping the higher scored match
// of a table found by both.
func mergeMatches(tables, columns []*core.TableMatch) []*core.TableMatch {
	byID := make(map[core.ID]*core.TableMatch, len(tables)+len(columns))
	for _, m := range slices.Concat(tables, columns) {
		if existing, ok := byID[m.Table.Id]; ok && existing.TotalScore >= m.TotalScore {
			continue
		}
		byID[m.Table.Id] = m
	}
	merged := make([]*core.TableMatch, 0, len(byID))
	for _, m := range byID {
		merged = append(merged, m)
	}
	sortMatches(merged)
	return merged
}
