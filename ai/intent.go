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

import (
	"strings"

	"github.com/poiesic/datafinder/core"
)

// HeuristicConfidence is the extraction confidence reported by HeuristicIntent.
const HeuristicConfidence = 0.4

type termSlot struct {
	value string
	terms []string
}

var (
	segmentTerms = []termSlot{
		{"pessoa física", []string{"pessoa física", "pessoa fisica", " pf "}},
		{"pessoa jurídica", []string{"pessoa jurídica", "pessoa juridica", " pj "}},
		{"varejo", []string{"varejo"}},
		{"private", []string{"private"}},
		{"corporate", []string{"corporate", "atacado"}},
	}
	productTerms = []termSlot{
		{"consignado", []string{"consignado"}},
		{"imobiliário", []string{"imobiliário", "imobiliario"}},
		{"cartão", []string{"cartão", "cartao", "cartões", "cartoes"}},
		{"pix", []string{"pix"}},
		{"veículo", []string{"veículo", "veiculo"}},
		{"previdência", []string{"previdência", "previdencia"}},
		{"cdc", []string{"cdc"}},
	}
	granularityTerms = []termSlot{
		{"diária", []string{"diária", "diaria", "diário", "diario", "diariamente"}},
		{"semanal", []string{"semanal", "semanalmente"}},
		{"mensal", []string{"mensal", "mensalmente"}},
		{"anual", []string{"anual", "anualmente"}},
	}
	entityTerms = []termSlot{
		{"cliente", []string{"cliente"}},
		{"conta", []string{"conta"}},
		{"transação", []string{"transação", "transacao", "transações", "transacoes"}},
		{"contrato", []string{"contrato"}},
		{"fatura", []string{"fatura"}},
		{"operação", []string{"operação", "operacao", "operações", "operacoes"}},
	}
)

func matchSlot(text string, slots []termSlot) string {
	for _, slot := range slots {
		for _, term := range slot.terms {
			if strings.Contains(text, term) {
				return slot.value
			}
		}
	}
	return ""
}

// HeuristicIntent derives an intent from keyword matching alone. It stands in
// for a model-backed extractor when that collaborator is unavailable.
func HeuristicIntent(query string) *core.CanonicalIntent {
	text := " " + strings.ToLower(strings.TrimSpace(query)) + " "
	intent := &core.CanonicalIntent{
		DataNeed:             strings.TrimSpace(strings.ToLower(query)),
		TargetEntity:         matchSlot(text, entityTerms),
		TargetSegment:        matchSlot(text, segmentTerms),
		TargetProduct:        matchSlot(text, productTerms),
		Granularity:          matchSlot(text, granularityTerms),
		OriginalQuery:        query,
		ExtractionConfidence: HeuristicConfidence,
	}
	if category := DetectCategory(query, ""); category != "" {
		intent.InferredDomains = []string{category}
	}
	return intent
}
