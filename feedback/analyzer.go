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
	"regexp"
	"strings"

	"github.com/poiesic/datafinder/core"
)

// categoryKeywords pairs a category with the phrases that signal it.
type categoryKeywords struct {
	category core.Category
	keywords []string
}

// Checked in order; the first category with a matching phrase wins.
var rejectionKeywords = []categoryKeywords{
	{core.CategoryWrongGranularity, []string{
		"granularidade", "diária", "mensal", "anual", "agregação",
		"muito agregado", "muito detalhado", "nível errado",
	}},
	{core.CategoryWrongProduct, []string{
		"produto errado", "não é consignado", "não é imobiliário",
		"produto diferente", "outro produto",
	}},
	{core.CategoryWrongSegment, []string{
		"segmento errado", "varejo", "corporate", "pj", "pf",
		"pessoa física", "pessoa jurídica",
	}},
	{core.CategoryWrongEntity, []string{
		"entidade errada", "não é cliente", "não é transação",
		"queria conta", "queria produto",
	}},
	{core.CategoryOutdatedData, []string{
		"desatualizado", "antigo", "dados velhos", "não tem 2024",
		"só tem até", "defasado",
	}},
	{core.CategoryIncompleteData, []string{
		"incompleto", "faltando", "não tem o campo", "sem a coluna",
		"dados parciais",
	}},
	{core.CategoryWrongScope, []string{
		"muito amplo", "muito específico", "escopo errado",
		"só uma parte", "precisava de tudo",
	}},
	{core.CategoryPermissionDenied, []string{
		"sem acesso", "não tenho permissão", "bloqueado", "restrito",
	}},
	{core.CategoryTableDeprecated, []string{
		"descontinuada", "deprecated", "não usar mais", "substituída",
		"legado", "desativada",
	}},
	{core.CategoryBetterAlternative, []string{
		"existe melhor", "tem outra", "prefiro a", "já uso outra",
		"alternativa melhor",
	}},
	{core.CategoryConceptMismatch, []string{
		"não era isso", "entendeu errado", "não é o que eu queria",
		"conceito errado", "mal interpretado",
	}},
	{core.CategoryQualityIssues, []string{
		"qualidade ruim", "dados errados", "inconsistente",
		"não confiável", "muitos nulos",
	}},
}

var approvalKeywords = []categoryKeywords{
	{core.CategoryExactMatch, []string{"perfeito", "exatamente", "era isso", "correto", "certinho"}},
	{core.CategoryGoodEnough, []string{"serve", "ok", "dá pro gasto", "funciona", "pode ser"}},
	{core.CategoryOnlyOption, []string{"única opção", "só tem essa", "não tem outra"}},
	{core.CategoryRecommendedByOwner, []string{"owner recomendou", "dono recomendou", "indicação do owner", "recomendada pelo owner"}},
	{core.CategoryCertifiedSource, []string{"certificada", "fonte oficial", "golden source", "sot"}},
	{core.CategoryAlreadyUsing, []string{"já uso", "já usamos", "é a que usamos", "padrão nosso"}},
}

var closeMatchIndicators = []string{"quase", "quase certo", "parecido", "similar", "perto"}

var improvementPatterns = []*regexp.Regexp{
	regexp.MustCompile(`deveria (?:ser|usar|recomendar) (.+?)(?:\.|,|$)`),
	regexp.MustCompile(`melhor seria (.+?)(?:\.|,|$)`),
	regexp.MustCompile(`preciso de (.+?)(?:\.|,|$)`),
	regexp.MustCompile(`queria (.+?)(?:\.|,|$)`),
	regexp.MustCompile(`correto é (.+?)(?:\.|,|$)`),
}

// Analysis is what a justification reveals about a decision.
type Analysis struct {
	Category   core.Category
	Keywords   []string
	CloseMatch bool
}

// Analyzer classifies justification text. The zero value is ready to use.
type Analyzer struct{}

// Analyze classifies text for the given outcome. Approvals use the approval
// vocabulary and default to good_enough; rejections and modifications use
// the rejection vocabulary and default to other. Empty text yields a zero
// Analysis.
func (Analyzer) Analyze(text string, outcome core.Outcome) Analysis {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return Analysis{}
	}

	var a Analysis
	for _, ind := range closeMatchIndicators {
		if strings.Contains(text, ind) {
			a.CloseMatch = true
			break
		}
	}

	vocabulary, fallback := rejectionKeywords, core.CategoryOther
	if outcome == core.OutcomeApproved {
		vocabulary, fallback = approvalKeywords, core.CategoryGoodEnough
	}
	for _, ck := range vocabulary {
		for _, kw := range ck.keywords {
			if strings.Contains(text, kw) {
				a.Keywords = append(a.Keywords, kw)
				if a.Category == "" {
					a.Category = ck.category
				}
			}
		}
	}
	if a.Category == "" {
		a.Category = fallback
	}
	return a
}

// ExtractImprovement returns the suggestion phrased in text, such as the
// object of "deveria usar ..." or "preciso de ...", or "" when none is found.
func (Analyzer) ExtractImprovement(text string) string {
	text = strings.ToLower(text)
	for _, p := range improvementPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}
