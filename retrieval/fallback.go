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
	"fmt"
	"slices"
	"strings"
)

// Confidence is the band of a search's top score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	// HighConfidenceScore is the top score from which a result is a confident hit.
	HighConfidenceScore = 0.7
	// DefaultConfidenceThreshold separates medium from low confidence.
	DefaultConfidenceThreshold = 0.5
	// UnknownDomain groups results whose table has no domain.
	UnknownDomain = "unknown"

	suggestionResults     = 15
	suggestionDescription = 100
)

// DomainGroup holds the results of one domain in ranking order.
type DomainGroup struct {
	Domain  string    `json:"domain"`
	Results []*Result `json:"results"`
}

// FallbackResult is a search classified into a confidence band with its
// results grouped by domain.
type FallbackResult struct {
	Results       []*Result      `json:"results"`
	Confidence    Confidence     `json:"confidence"`
	PrimaryDomain string         `json:"primary_domain,omitempty"`
	DomainGroups  []*DomainGroup `json:"domain_groups"`
	Message       string         `json:"message"`
	TopScore      float64        `json:"top_score"`
}

// FallbackOptions tunes SearchWithDomainFallback.
type FallbackOptions struct {
	SearchOptions
	// Threshold separates medium from low confidence. Zero means 0.5.
	Threshold float64
}

func domainOf(r *Result) string {
	if d := r.Table.Domain(); d != "" {
		return d
	}
	return UnknownDomain
}

// groupByDomain groups results by domain in first-seen order.
func groupByDomain(results []*Result) []*DomainGroup {
	var groups []*DomainGroup
	index := make(map[string]*DomainGroup)
	for _, r := range results {
		d := domainOf(r)
		g, ok := index[d]
		if !ok {
			g = &DomainGroup{Domain: d}
			index[d] = g
			groups = append(groups, g)
		}
		g.Results = append(g.Results, r)
	}
	return groups
}

// SearchWithDomainFallback searches and classifies the outcome by the top
// score: high from 0.7, medium from the threshold, low below it. The
// primary domain is the most populous group, ties going to the first seen.
func (e *Engine) SearchWithDomainFallback(ctx context.Context, query string, opts *FallbackOptions) (*FallbackResult, error) {
	if opts == nil {
		opts = &FallbackOptions{}
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}

	results, err := e.Search(ctx, query, &opts.SearchOptions)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &FallbackResult{
			Confidence: ConfidenceLow,
			Message:    fmt.Sprintf("Não encontrei tabelas relevantes para '%s'.", query),
		}, nil
	}

	groups := groupByDomain(results)
	primary := groups[0]
	for _, g := range groups[1:] {
		if len(g.Results) > len(primary.Results) {
			primary = g
		}
	}

	top := results[0]
	out := &FallbackResult{
		Results:       results,
		PrimaryDomain: primary.Domain,
		DomainGroups:  groups,
		TopScore:      top.Score,
	}
	switch {
	case top.Score >= HighConfidenceScore:
		out.Confidence = ConfidenceHigh
		out.Message = fmt.Sprintf("Encontrei '%s' no domínio %s.", top.Table.Name, top.Table.Domain())
	case top.Score >= threshold:
		out.Confidence = ConfidenceMedium
		out.Message = fmt.Sprintf("Encontrei opções no domínio '%s'. Verifique se alguma atende.", primary.Domain)
	default:
		out.Confidence = ConfidenceLow
		domains := make([]string, 0, 3)
		for _, g := range groups[:min(3, len(groups))] {
			domains = append(domains, g.Domain)
		}
		out.Message = fmt.Sprintf("Não encontrei uma tabela exata para '%s', mas aqui estão opções dos domínios: %s.",
			query, strings.Join(domains, ", "))
	}
	return out, nil
}

// Suggestion is a compact table entry of a domain suggestion.
type Suggestion struct {
	Id          uint64  `json:"id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// DomainSuggestion lists the best tables of one domain.
type DomainSuggestion struct {
	Domain       string        `json:"domain"`
	AverageScore float64       `json:"average_score"`
	Tables       []*Suggestion `json:"tables"`
}

// Suggestions groups search results by domain for a user to choose from.
type Suggestions struct {
	Query   string              `json:"query"`
	Domains []*DomainSuggestion `json:"domains"`
	Message string              `json:"message"`
}

// DomainSuggestions searches without reranking and returns at most
// maxPerDomain tables per domain, domains ordered by average score.
func (e *Engine) DomainSuggestions(ctx context.Context, query string, maxPerDomain int) (*Suggestions, error) {
	if maxPerDomain < 1 {
		maxPerDomain = 3
	}
	results, err := e.Search(ctx, query, &SearchOptions{MaxResults: suggestionResults, DisableRerank: true})
	if err != nil {
		return nil, err
	}

	var domains []*DomainSuggestion
	for _, g := range groupByDomain(results) {
		ds := &DomainSuggestion{Domain: g.Domain}
		var total float64
		for _, r := range g.Results[:min(maxPerDomain, len(g.Results))] {
			ds.Tables = append(ds.Tables, &Suggestion{
				Id:          uint64(r.Table.Id),
				Name:        r.Table.Name,
				DisplayName: r.Table.DisplayName,
				Description: Truncate(r.Table.Description, suggestionDescription),
				Score:       r.Score,
			})
			total += r.Score
		}
		ds.AverageScore = total / float64(len(ds.Tables))
		domains = append(domains, ds)
	}
	slices.SortStableFunc(domains, func(a, b *DomainSuggestion) int {
		return cmp.Compare(b.AverageScore, a.AverageScore)
	})

	return &Suggestions{
		Query:   query,
		Domains: domains,
		Message: fmt.Sprintf("Encontrei resultados em %d domínios. Qual você quer explorar?", len(domains)),
	}, nil
}
