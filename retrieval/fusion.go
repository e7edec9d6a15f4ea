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
	"strings"

	"github.com/poiesic/datafinder/core"
)

// Fusion weights. They sum to 1.0.
const (
	WeightName        = 0.30
	WeightDescription = 0.20
	WeightKeywords    = 0.25
	WeightOverlap     = 0.25
)

// Token multiplicities of the document multiset used by OverlapScore.
const (
	nameBoost        = 3
	displayNameBoost = 2
	keywordBoost     = 2
)

// ScoreBreakdown holds the per-signal scores of a search result, each in [0,1].
type ScoreBreakdown struct {
	Name        float64 `json:"name_similarity"`
	Description float64 `json:"description_similarity"`
	Keywords    float64 `json:"keywords_similarity"`
	Overlap     float64 `json:"bm25_score"`
}

// Combined returns the weighted fusion of the four signals.
func (s ScoreBreakdown) Combined() float64 {
	return WeightName*s.Name +
		WeightDescription*s.Description +
		WeightKeywords*s.Keywords +
		WeightOverlap*s.Overlap
}

// Semantic returns the weighted similarity of the three vector views,
// rescaled to [0,1].
func (s ScoreBreakdown) Semantic() float64 {
	const total = WeightName + WeightDescription + WeightKeywords
	return (WeightName*s.Name + WeightDescription*s.Description + WeightKeywords*s.Keywords) / total
}

// Similarity converts a cosine distance in [0,2] to a similarity in [0,1].
func Similarity(distance float64) float64 {
	return core.Clamp01(1 - distance/2)
}

// documentTokens builds the weighted token multiset of a table.
func documentTokens(table *core.Table) map[string]int {
	doc := make(map[string]int)
	add := func(text string, weight int) {
		for _, t := range core.Tokenize(text) {
			doc[t] += weight
		}
	}
	add(table.Name, nameBoost)
	add(table.DisplayName, displayNameBoost)
	add(table.Description, 1)
	for _, kw := range table.Keywords {
		add(kw, keywordBoost)
	}
	return doc
}

// OverlapScore is the share of query tokens found in the table's weighted
// token multiset. It is 0 for a query without tokens and 1 when every query
// token appears in the table.
func OverlapScore(query string, table *core.Table) float64 {
	queryTokens := core.Tokenize(query)
	if len(queryTokens) == 0 || table == nil {
		return 0
	}
	doc := documentTokens(table)
	if len(doc) == 0 {
		return 0
	}
	matches := 0
	for _, t := range queryTokens {
		if doc[t] > 0 {
			matches++
		}
	}
	return float64(matches) / float64(len(queryTokens))
}

// Interleave merges a model's ranking with the fusion ranking of n results.
// The model's first three valid picks lead, followed by fusion candidates
// from the top five until five results are placed, then the model's
// remaining picks, then everything else in fusion order.
// Out-of-range and repeated picks are ignored.
func Interleave(n int, picks []int) []int {
	order := make([]int, 0, n)
	seen := make(map[int]bool, n)
	place := func(i int) {
		if i >= 0 && i < n && !seen[i] {
			order = append(order, i)
			seen[i] = true
		}
	}

	head := min(3, len(picks))
	for _, i := range picks[:head] {
		place(i)
	}
	for i := 0; i < min(5, n); i++ {
		if len(order) >= 5 {
			break
		}
		place(i)
	}
	for _, i := range picks[head:] {
		place(i)
	}
	for i := 0; i < n; i++ {
		place(i)
	}
	return order
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
