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

package ai

import "strings"

// Enrichment categories recognized by DetectCategory.
const (
	CategoryPix           = "pix"
	CategoryCartoes       = "cartoes"
	CategoryCredito       = "credito"
	CategoryCobranca      = "cobranca"
	CategoryRisco         = "risco"
	CategoryInvestimentos = "investimentos"
	CategoryCompliance    = "compliance"
	CategoryPrevidencia   = "previdencia"
	CategoryFinanceiro    = "financeiro"
	CategoryComercial     = "comercial"
)

// categoryTerms is checked in order; the first category with a term
// contained in the text wins.
var categoryTerms = []struct {
	category string
	terms    []string
}{
	{CategoryPix, []string{"pix", "pagamento", "ted", "doc", "boleto"}},
	{CategoryCartoes, []string{"cartao", "cartão", "card", "fatura", "bin"}},
	{CategoryCredito, []string{"credito", "crédito", "emprestimo", "consignado", "cdc"}},
	{CategoryCobranca, []string{"cobranca", "cobrança", "inadimp", "aging", "atraso"}},
	{CategoryRisco, []string{"risco", "var", "basileia", "capital", "rwa"}},
	{CategoryInvestimentos, []string{"invest", "fundo", "cdb", "lci", "lca", "custod"}},
	{CategoryCompliance, []string{"pld", "aml", "kyc", "compliance", "lavagem"}},
	{CategoryPrevidencia, []string{"previd", "pgbl", "vgbl", "aposentad"}},
	{CategoryFinanceiro, []string{"contab", "cosif", "dre", "balanc"}},
	{CategoryComercial, []string{"cliente", "conta", "agencia", "agência", "comercial"}},
}

// DetectCategory classifies a table by substring matches over its name and
// domain. Returns "" when nothing matches.
func DetectCategory(tableName, domain string) string {
	text := strings.ToLower(tableName + " " + domain)
	for _, ct := range categoryTerms {
		for _, term := range ct.terms {
			if strings.Contains(text, term) {
				return ct.category
			}
		}
	}
	return ""
}

// MergeKeywords appends learned and then generated keywords to existing,
// skipping case-insensitive duplicates and blanks. Generated keywords are
// lower-cased. The result is capped at limit when limit > 0.
func MergeKeywords(existing, learned, generated []string, limit int) []string {
	merged := make([]string, 0, len(existing)+len(learned)+len(generated))
	seen := make(map[string]struct{}, cap(merged))
	add := func(kw string, lower bool) {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			return
		}
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		if lower {
			kw = key
		}
		merged = append(merged, kw)
	}
	for _, kw := range existing {
		add(kw, false)
	}
	for _, kw := range learned {
		add(kw, false)
	}
	for _, kw := range generated {
		add(kw, true)
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
