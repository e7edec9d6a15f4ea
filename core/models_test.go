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

import (
	"math"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "simple text", content: "DimCliente"},
		{name: "empty string", content: ""},
		{name: "long content", content: "tabela consolidada de clientes pessoa fisica atualizada diariamente"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	if IDFromContent("content1") == IDFromContent("content2") {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestConceptHash_Invariance(t *testing.T) {
	base := &CanonicalIntent{
		DataNeed:      "base de clientes",
		TargetEntity:  "cliente",
		TargetSegment: "pessoa fisica",
		Granularity:   "diaria",
	}
	want := ConceptHash(base)

	tests := []struct {
		name   string
		intent *CanonicalIntent
	}{
		{
			name: "different case",
			intent: &CanonicalIntent{
				DataNeed:      "Base de Clientes",
				TargetEntity:  "CLIENTE",
				TargetSegment: "Pessoa Fisica",
				Granularity:   "Diaria",
			},
		},
		{
			name: "fields moved between slots",
			intent: &CanonicalIntent{
				DataNeed:      "diaria",
				TargetEntity:  "pessoa fisica",
				TargetProduct: "cliente",
				Granularity:   "base de clientes",
			},
		},
		{
			name: "surrounding whitespace",
			intent: &CanonicalIntent{
				DataNeed:      "  base de clientes ",
				TargetEntity:  "cliente",
				TargetSegment: "pessoa fisica\t",
				Granularity:   "diaria",
			},
		},
		{
			name: "non-concept fields ignored",
			intent: &CanonicalIntent{
				DataNeed:             "base de clientes",
				TargetEntity:         "cliente",
				TargetSegment:        "pessoa fisica",
				Granularity:          "diaria",
				OriginalQuery:        "something else entirely",
				InferredDomains:      []string{"comercial"},
				ExtractionConfidence: 0.9,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ConceptHash(tt.intent); got != want {
				t.Errorf("ConceptHash() = %s, want %s", got, want)
			}
		})
	}
}

func TestConceptHash_EmptyFieldsNormalized(t *testing.T) {
	a := ConceptHash(&CanonicalIntent{DataNeed: "saldo", TargetProduct: ""})
	b := ConceptHash(&CanonicalIntent{DataNeed: "saldo", TargetProduct: "   "})
	c := ConceptHash(&CanonicalIntent{DataNeed: "saldo"})
	if a != b || b != c {
		t.Errorf("empty fields changed the hash: %s %s %s", a, b, c)
	}
	if len(a) != 16 {
		t.Errorf("expected 16 hex characters, got %d", len(a))
	}
}

func TestConceptHash_Distinguishes(t *testing.T) {
	a := ConceptHash(&CanonicalIntent{DataNeed: "saldo", TargetProduct: "consignado"})
	b := ConceptHash(&CanonicalIntent{DataNeed: "saldo", TargetProduct: "imobiliario"})
	if a == b {
		t.Errorf("different concepts produced the same hash %s", a)
	}
	if ConceptHash(nil) != "" {
		t.Errorf("nil intent should hash to empty string")
	}
}

func TestCanonicalIntent_SearchText(t *testing.T) {
	withQuery := &CanonicalIntent{DataNeed: "saldo", OriginalQuery: "saldo diario"}
	if got := withQuery.SearchText(); got != "saldo diario" {
		t.Errorf("SearchText() = %q", got)
	}
	withoutQuery := &CanonicalIntent{DataNeed: "saldo", TargetProduct: "consignado"}
	if got := withoutQuery.SearchText(); got != "saldo consignado" {
		t.Errorf("SearchText() = %q", got)
	}
}

func TestTable_Helpers(t *testing.T) {
	table := &Table{
		Id:             1,
		Name:           "dim_cliente",
		DisplayName:    "DimCliente",
		DomainId:       "com",
		DataLayer:      DataLayerSoT,
		IsGoldenSource: true,
		Keywords:       []string{"cliente"},
	}

	if table.Domain() != "com" {
		t.Errorf("Domain() should fall back to DomainId, got %q", table.Domain())
	}
	table.DomainName = "Comercial"
	if table.Domain() != "Comercial" {
		t.Errorf("Domain() should prefer DomainName, got %q", table.Domain())
	}
	if table.Label() != "DimCliente" {
		t.Errorf("Label() = %q", table.Label())
	}
	if !table.IsDoubleCertified() {
		t.Errorf("SoT golden table should be double certified")
	}

	clone := table.Clone()
	clone.Keywords[0] = "changed"
	if table.Keywords[0] != "cliente" {
		t.Errorf("Clone() shares keyword storage with the original")
	}
}

func TestNewTableMatch_TotalIsWeightedSum(t *testing.T) {
	table := &Table{Id: 1, Name: "t", DataLayer: DataLayerSoT, IsGoldenSource: true}
	scores := SubScores{
		Semantic:      0.8,
		Historical:    0.5,
		Context:       0.4,
		Certification: 1.0,
		Freshness:     1.0,
		Quality:       0.6,
	}
	match := NewTableMatch(table, scores, "reason", nil, false)

	want := 0.45*0.8 + 0.15*0.5 + 0.15*0.4 + 0.15*1.0 + 0.05*1.0 + 0.05*0.6
	if math.Abs(match.TotalScore-want) > 1e-9 {
		t.Errorf("TotalScore = %f, want %f", match.TotalScore, want)
	}
	if !match.IsDoubleCertified {
		t.Errorf("expected double certified flag")
	}
}

func TestNewTableMatch_ClampsSubScores(t *testing.T) {
	match := NewTableMatch(&Table{Id: 1, Name: "t"}, SubScores{Semantic: 1.7, Historical: -0.2}, "", nil, false)
	if match.Scores.Semantic != 1 || match.Scores.Historical != 0 {
		t.Errorf("sub-scores not clamped: %+v", match.Scores)
	}
	if match.TotalScore < 0 || match.TotalScore > 1 {
		t.Errorf("total out of range: %f", match.TotalScore)
	}
}

func TestCertificationScore(t *testing.T) {
	tests := []struct {
		name  string
		table *Table
		want  float64
	}{
		{"sot golden", &Table{DataLayer: DataLayerSoT, IsGoldenSource: true}, 1.0},
		{"golden only", &Table{DataLayer: DataLayerSoR, IsGoldenSource: true}, 0.8},
		{"sot only", &Table{DataLayer: DataLayerSoT}, 0.6},
		{"sor", &Table{DataLayer: DataLayerSoR}, 0.3},
		{"spec", &Table{DataLayer: DataLayerSpec}, 0.2},
		{"nothing", &Table{}, 0},
		{"nil", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CertificationScore(tt.table); got != tt.want {
				t.Errorf("CertificationScore() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestFreshnessScore(t *testing.T) {
	tests := []struct {
		freq string
		want float64
	}{
		{"daily", 1.0},
		{"Diária", 1.0},
		{"weekly", 0.7},
		{"mensal", 0.5},
		{"", 0.5},
		{"yearly", 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.freq, func(t *testing.T) {
			if got := FreshnessScore(tt.freq); got != tt.want {
				t.Errorf("FreshnessScore(%q) = %f, want %f", tt.freq, got, tt.want)
			}
		})
	}
}

func TestCategory_IsRejection(t *testing.T) {
	if !CategoryConceptMismatch.IsRejection() {
		t.Errorf("concept_mismatch should be a rejection category")
	}
	if CategoryExactMatch.IsRejection() {
		t.Errorf("exact_match should not be a rejection category")
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"DimCliente", []string{"dimcliente"}},
		{"dim_cliente_pf", []string{"dim", "cliente", "pf"}},
		{"base de clientes pessoa física", []string{"base", "de", "clientes", "pessoa", "física"}},
		{"a.b-cd  e", []string{"cd"}},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := Tokenize(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}
