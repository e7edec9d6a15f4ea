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

package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/datafinder/ai"
)

const intentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "data_need": {"type": "string"},
    "target_entity": {"type": "string"},
    "target_segment": {"type": "string"},
    "target_product": {"type": "string"},
    "granularity": {"type": "string"},
    "inferred_domains": {"type": "array", "items": {"type": "string"}},
    "extraction_confidence": {"type": "number", "minimum": 0, "maximum": 1}
  },
  "required": ["data_need", "extraction_confidence"],
  "additionalProperties": false
}`

const intentPromptTemplate = `Você normaliza pedidos de dados de analistas de um banco brasileiro.

Extraia a intenção canônica do pedido e retorne APENAS JSON seguindo este schema:

%s

Regras:
- data_need: o dado necessário, em poucas palavras, minúsculas.
- target_entity: entidade principal (cliente, conta, transação, contrato...), vazio se ausente.
- target_segment: segmento (pf, pj, varejo, private, corporate...), vazio se ausente.
- target_product: produto (consignado, imobiliário, cartão, pix...), vazio se ausente.
- granularity: granularidade temporal ou de agregação (diária, mensal, por cliente...), vazio se ausente.
- inferred_domains: domínios de negócio prováveis, no máximo 3.
- extraction_confidence: sua confiança entre 0 e 1.
- Não invente campos que o pedido não sustenta.

Exemplo:
Pedido: "base de clientes pessoa física atualizada diariamente"
Saída:
{"data_need":"base de clientes","target_entity":"cliente","target_segment":"pessoa física","target_product":"","granularity":"diária","inferred_domains":["comercial"],"extraction_confidence":0.85}`

const expansionPromptTemplate = `Você é um ESPECIALISTA em busca de dados bancários brasileiros.

TAREFA: Expanda esta consulta para melhorar a recuperação de tabelas.

CONSULTA: "%s"
%s
EXPANSÃO DEVE INCLUIR:
1. ACRÔNIMOS: Se identificar termos com acrônimos (ex: "prevenção lavagem" → "PLD AML")
2. EXPANSÕES: Se houver acrônimos, expanda (ex: "PD" → "probability default probabilidade inadimplência")
3. SINÔNIMOS: Termos equivalentes (ex: "aging" → "envelhecimento vencimento faixa atraso")
4. TÉCNICOS: Vocabulário bancário brasileiro relacionado
5. VARIAÇÕES: Acentos e abreviações (ex: "cartão" → "cartao")

REGRA: Mantenha a query original + adicione expansões relevantes.
Limite: máximo 8 termos adicionais.

Retorne APENAS JSON:
{"expanded": "query original + termos adicionais"}

JSON:`

const enrichmentPromptTemplate = `Você é um ESPECIALISTA em dados bancários brasileiros.

TAREFA: Gere keywords de ALTA QUALIDADE para esta tabela de dados.

TABELA: %s
DOMÍNIO: %s
DESCRIÇÃO: %s
KEYWORDS ATUAIS: %s
%s%s

REGRAS:
1. Máximo 15 keywords de alta qualidade
2. Inclua ACRÔNIMOS bancários relevantes (PD, LGD, RWA, etc)
3. Inclua SINÔNIMOS e variações (cartão/cartao, crédito/credito)
4. Inclua termos TÉCNICOS do domínio bancário brasileiro
5. Pense em COMO um analista buscaria esta tabela

Retorne APENAS um JSON array com 10-15 keywords de alta qualidade:
["keyword1", "keyword2", ...]

JSON:`

const rerankPromptTemplate = `You are a banking data expert. Given this query, pick the TOP 5 most relevant tables.

Query: "%s"

Tables:
%s

Return ONLY a JSON array with the 5 most relevant table indices, ordered by relevance.
Example: [2, 0, 4, 1, 3]

Response (JSON array only):`

// categoryFocus holds the vocabulary hints appended to enrichment prompts.
var categoryFocus = map[string]string{
	ai.CategoryCredito: `FOCO CRÉDITO: Priorize termos como:
- Acrônimos: PD, LGD, EAD, RWA, PCLD, SCR, CDC, consignado
- Conceitos: inadimplência, provisão, score, rating, limite, margem
- Produtos: consignado, CDC, imobiliário, veículo, pessoal
- Regulatório: Basileia, bacen, bureau, resolução 2682`,
	ai.CategoryCobranca: `FOCO COBRANÇA: Priorize termos como:
- Acrônimos: aging, PDD, workout, NPL
- Conceitos: inadimplência, recuperação, renegociação, acordo
- Faixas: atraso, vencido, prejuízo, write-off
- Operações: negativação, protesto, assessoria, terceirizada`,
	ai.CategoryRisco: `FOCO RISCO: Priorize termos como:
- Acrônimos: VaR, PD, LGD, EAD, RWA, ICAAP, IRRBB
- Conceitos: exposição, rating, matriz, stress test, cenário
- Regulatório: Basileia, circular 3.869, PCLD, capital
- Modelos: score, PD, severidade, correlação`,
	ai.CategoryComercial: `FOCO COMERCIAL: Priorize termos como:
- Conceitos: cliente, conta, carteira, gerente, agência
- Métricas: meta, venda, cross-sell, up-sell, ativação
- Segmentos: varejo, private, corporate, PF, PJ
- CRM: lead, funil, conversão, campanha`,
	ai.CategoryFinanceiro: `FOCO FINANCEIRO/CONTÁBIL: Priorize termos como:
- Acrônimos: COSIF, DRE, DMPL, DVA, DOAR
- Conceitos: balancete, razão, lançamento, centro custo
- Regulatório: bacen, CVM, IFRS, provisão
- Fluxo: caixa, receita, despesa, resultado`,
	ai.CategoryPix: `FOCO PIX/PAGAMENTOS: Priorize termos como:
- Acrônimos: TED, DOC, SPB, STR, SPI
- Conceitos: transferência, pagamento, boleto, QR code
- PIX: chave, devolução, MED, iniciador, ITP
- Canais: app, internet banking, agência`,
	ai.CategoryCartoes: `FOCO CARTÕES: Priorize termos como:
- Acrônimos: BIN, PAN, CVV, EMV, NFC
- Conceitos: fatura, limite, transação, autorização
- Operações: chargeback, contestação, estorno, parcelamento
- Produtos: crédito, débito, pré-pago, virtual`,
	ai.CategoryInvestimentos: `FOCO INVESTIMENTOS: Priorize termos como:
- Acrônimos: CDB, LCI, LCA, CRI, CRA, COE, FII
- Conceitos: aplicação, resgate, rentabilidade, custódia
- Fundos: renda fixa, multimercado, ações, come-cotas
- Regulatório: CVM, ANBIMA, suitability`,
	ai.CategoryCompliance: `FOCO COMPLIANCE: Priorize termos como:
- Acrônimos: KYC, PLD, AML, CFT, FATCA, CRS
- Conceitos: PEP, STR, UIF, diligência, sanções
- Regulatório: SISBACEN, CADOC, circular 3.978
- Processos: monitoramento, alerta, investigação`,
	ai.CategoryPrevidencia: `FOCO PREVIDÊNCIA: Priorize termos como:
- Acrônimos: PGBL, VGBL, SUSEP, PREVIC
- Conceitos: contribuição, benefício, resgate, portabilidade
- Planos: aberta, fechada, individual, empresarial
- Fiscal: dedução, tributação, come-cotas`,
}

// buildIntentSystemPrompt creates the system prompt with the response schema embedded.
func buildIntentSystemPrompt() string {
	return fmt.Sprintf(intentPromptTemplate, intentResponseSchema)
}

func buildExpansionPrompt(query, domainHint string) string {
	hint := ""
	if domainHint != "" {
		hint = fmt.Sprintf("CONTEXTO: Esta busca é provavelmente do domínio %s.\n", strings.ToUpper(domainHint))
	}
	return fmt.Sprintf(expansionPromptTemplate, query, hint)
}

func buildEnrichmentPrompt(name, domain, description string, existing, learned []string) string {
	if domain == "" {
		domain = "Bancário"
	}
	if description == "" {
		description = "N/A"
	}
	current := "Nenhuma"
	if len(existing) > 0 {
		current = strings.Join(existing, ", ")
	}
	learnedLine := ""
	if len(learned) > 0 {
		learnedLine = "APRENDIZADO ANTERIOR: " + strings.Join(learned, ", ") + "\n"
	}
	return fmt.Sprintf(enrichmentPromptTemplate, name, domain, description, current,
		learnedLine, categoryFocus[ai.DetectCategory(name, domain)])
}

func buildRerankPrompt(query string, candidates []ai.RerankCandidate) (string, error) {
	listing, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(rerankPromptTemplate, query, listing), nil
}
