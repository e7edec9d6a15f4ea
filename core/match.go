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

package core

import "strings"

// Table match weights. They sum to 1.0.
const (
	WeightSemantic      = 0.45
	WeightHistorical    = 0.15
	WeightContext       = 0.15
	WeightCertification = 0.15
	WeightFreshness     = 0.05
	WeightQuality       = 0.05
)

// SubScores holds the individual signals of a table match, each in [0,1].
type SubScores struct {
	Semantic      float64 `json:"semantic"`
	Historical    float64 `json:"historical"`
	Context       float64 `json:"context"`
	Certification float64 `json:"certification"`
	Freshness     float64 `json:"freshness"`
	Quality       float64 `json:"quality"`
}

// Total returns the weighted sum of the sub-scores.
func (s SubScores) Total() float64 {
	return WeightSemantic*s.Semantic +
		WeightHistorical*s.Historical +
		WeightContext*s.Context +
		WeightCertification*s.Certification +
		WeightFreshness*s.Freshness +
		WeightQuality*s.Quality
}

func (s SubScores) clamped() SubScores {
	return SubScores{
		Semantic:      Clamp01(s.Semantic),
		Historical:    Clamp01(s.Historical),
		Context:       Clamp01(s.Context),
		Certification: Clamp01(s.Certification),
		Freshness:     Clamp01(s.Freshness),
		Quality:       Clamp01(s.Quality),
	}
}

// TableMatch is a scored table candidate. TotalScore is fixed at construction.
type TableMatch struct {
	Table             *Table    `json:"table"`
	TotalScore        float64   `json:"total_score"`
	Scores            SubScores `json:"scores"`
	Reasoning         string    `json:"reasoning"`
	MatchedEntities   []string  `json:"matched_entities,omitempty"`
	IsDoubleCertified bool      `json:"is_double_certified"`
	HasProductMatch   bool      `json:"has_product_match"`
}

// NewTableMatch builds a match whose total score is derived from the clamped sub-scores.
func NewTableMatch(table *Table, scores SubScores, reasoning string, matched []string, productMatch bool) *TableMatch {
	scores = scores.clamped()
	return &TableMatch{
		Table:             table,
		TotalScore:        scores.Total(),
		Scores:            scores,
		Reasoning:         reasoning,
		MatchedEntities:   matched,
		IsDoubleCertified: table != nil && table.IsDoubleCertified(),
		HasProductMatch:   productMatch,
	}
}

// DomainMatch is a scored domain candidate.
type DomainMatch struct {
	Domain    *Domain `json:"domain"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// OwnerMatch is a scored owner candidate.
type OwnerMatch struct {
	Owner     *Owner  `json:"owner"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// CertificationScore rates a table's certification level.
func CertificationScore(t *Table) float64 {
	if t == nil {
		return 0
	}
	switch {
	case t.DataLayer == DataLayerSoT && t.IsGoldenSource:
		return 1.0
	case t.IsGoldenSource:
		return 0.8
	case t.DataLayer == DataLayerSoT:
		return 0.6
	case t.DataLayer == DataLayerSoR:
		return 0.3
	case t.DataLayer == DataLayerSpec:
		return 0.2
	}
	return 0
}

// FreshnessScore rates a table's update frequency.
func FreshnessScore(frequency string) float64 {
	switch strings.ToLower(strings.TrimSpace(frequency)) {
	case "", "unknown":
		return 0.5
	case "daily", "diaria", "diária", "diario", "diário", "realtime", "real-time", "tempo real":
		return 1.0
	case "weekly", "semanal":
		return 0.7
	case "monthly", "mensal":
		return 0.5
	}
	return 0.3
}

// Clamp01 limits v to the closed interval [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
