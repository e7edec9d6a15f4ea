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
	"errors"
	"testing"

	"github.com/poiesic/datafinder/ai/mock"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/feedback"
	"github.com/poiesic/datafinder/lexicon"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/poiesic/datafinder/storage"
	badgerstore "github.com/poiesic/datafinder/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientQuery = "base de clientes pessoa física atualizada diariamente"

type fixture struct {
	orchestrator *Orchestrator
	provider     *mock.MockProvider
	repos        *badgerstore.MemoryRepositories
	scores       *feedback.Store
	lexicon      *lexicon.Lexicon
	catalog      *Catalog
}

// newFixture indexes catalog into an in-memory engine and wires an
// orchestrator with feedback, pending decisions and a lexicon. configure
// runs before indexing.
func newFixture(t *testing.T, catalog *Catalog, configure func(*mock.MockProvider), opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	repos, err := badgerstore.NewMemoryRepositories(retrieval.Views...)
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	provider := mock.NewMockProvider()
	if configure != nil {
		configure(provider)
	}
	engine, err := retrieval.NewEngine(retrieval.Stores{
		Name:        repos.Vectors[retrieval.ViewName],
		Description: repos.Vectors[retrieval.ViewDescription],
		Keywords:    repos.Vectors[retrieval.ViewKeywords],
	}, provider)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	require.NoError(t, engine.IndexTables(ctx, catalog.Tables))

	scores, err := feedback.NewStore(ctx, repos.Decisions)
	require.NoError(t, err)
	lex, err := lexicon.New()
	require.NoError(t, err)

	opts = append([]Option{
		WithCatalog(catalog),
		WithFeedback(scores),
		WithDecisions(repos.Decisions),
		WithLearner(lex),
	}, opts...)
	orchestrator, err := NewOrchestrator(engine, provider, opts...)
	require.NoError(t, err)

	return &fixture{
		orchestrator: orchestrator,
		provider:     provider,
		repos:        repos,
		scores:       scores,
		lexicon:      lex,
		catalog:      catalog,
	}
}

func bankCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog(
		[]*core.Domain{
			{Id: "com", Name: "Comercial", Keywords: []string{"cliente", "conta"}},
			{Id: "pix", Name: "Pix", Keywords: []string{"pix", "pagamento"}},
			{Id: "car", Name: "Cartoes", Keywords: []string{"cartão", "fatura"}},
		},
		[]*core.Owner{
			{Id: 100, Name: "Squad Clientes", DomainId: "com"},
			{Id: 200, Name: "Squad Pagamentos", DomainId: "pix"},
			{Id: 300, Name: "Squad Cartões", DomainId: "car"},
		},
		[]*core.Table{
			{
				Id:              1,
				Name:            "DimCliente",
				DisplayName:     "Base de Clientes PF",
				Description:     "Base consolidada de clientes pessoa física atualizada diariamente",
				DomainId:        "com",
				OwnerId:         100,
				Keywords:        []string{"cliente", "pessoa física", "base de clientes", "diariamente"},
				Columns:         []string{"cpf", "nome_cliente", "data_nascimento", "segmento"},
				DataLayer:       core.DataLayerSoT,
				IsGoldenSource:  true,
				UpdateFrequency: "daily",
			},
			{
				Id:          2,
				Name:        "fato_pix_transacao",
				DisplayName: "Transações PIX",
				Description: "Transações PIX liquidadas no SPI",
				DomainId:    "pix",
				OwnerId:     200,
				Keywords:    []string{"pix", "spi", "transferência"},
				Columns:     []string{"id_transacao", "valor", "chave_pix"},
			},
			{
				Id:          3,
				Name:        "fato_fatura_cartao",
				DisplayName: "Faturas de Cartão",
				Description: "Faturas mensais de cartão de crédito",
				DomainId:    "car",
				OwnerId:     300,
				Keywords:    []string{"fatura", "cartão", "crédito"},
				Columns:     []string{"numero_cartao", "valor_fatura", "vencimento"},
			},
		},
	)
	require.NoError(t, err)
	return catalog
}

// twinCatalog holds two tables that differ only in name and owner, placed in
// one domain or in two.
func twinCatalog(t *testing.T, sameDomain bool) *Catalog {
	t.Helper()
	second := "atacado"
	if sameDomain {
		second = "varejo"
	}
	domains := []*core.Domain{{Id: "varejo", Name: "Varejo"}}
	if !sameDomain {
		domains = append(domains, &core.Domain{Id: "atacado", Name: "Atacado"})
	}
	twin := func(id core.ID, name string, owner core.ID, domain string) *core.Table {
		return &core.Table{
			Id:              id,
			Name:            name,
			DisplayName:     "Receita Mensal",
			Description:     "Receita mensal consolidada",
			DomainId:        domain,
			OwnerId:         owner,
			Keywords:        []string{"receita", "mensal", "consolidada"},
			UpdateFrequency: "monthly",
		}
	}
	catalog, err := NewCatalog(
		domains,
		[]*core.Owner{
			{Id: 10, Name: "Controladoria Varejo", DomainId: "varejo"},
			{Id: 11, Name: "Controladoria Atacado", DomainId: second},
		},
		[]*core.Table{
			twin(10, "receita_mensal_varejo", 10, "varejo"),
			twin(11, "receita_mensal_atacado", 11, second),
		},
	)
	require.NoError(t, err)
	return catalog
}

// constantEmbeddings makes every text embed to the same vector so only
// token overlap and metadata separate tables.
func constantEmbeddings(p *mock.MockProvider) {
	e := p.GetMockEmbedder()
	e.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1, 0, 0}, nil
	}
	e.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		vectors := make([][]float32, len(texts))
		for i := range texts {
			vectors[i] = []float32{1, 0, 0}
		}
		return vectors, nil
	}
}

func optionTables(result *core.AmbiguityResult) []core.ID {
	ids := make([]core.ID, len(result.Options))
	for i, o := range result.Options {
		ids[i] = o.TableId
	}
	return ids
}

func TestNewOrchestrator_Validation(t *testing.T) {
	provider := mock.NewMockProvider()

	_, err := NewOrchestrator(nil, provider)
	assert.ErrorIs(t, err, ErrRetrieverRequired)

	_, err = NewOrchestrator(stubRetriever{}, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)

	bad := DefaultConfig()
	bad.AmbiguityMargin = 2
	_, err = NewOrchestrator(stubRetriever{}, provider, WithConfig(bad))
	assert.Error(t, err)
}

func TestRun_InvalidRequest(t *testing.T) {
	o, err := NewOrchestrator(stubRetriever{}, mock.NewMockProvider())
	require.NoError(t, err)

	_, err = o.Run(context.Background(), &Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = o.Run(context.Background(), &Request{Query: "clientes", Mode: "TOP"})
	assert.ErrorIs(t, err, ErrInvalidOutputMode)
}

func TestRun_ResolvesGoldenCustomerTable(t *testing.T) {
	config := DefaultConfig()
	config.ExistsThreshold = 0.6
	f := newFixture(t, bankCatalog(t), nil, WithConfig(config))

	st, err := f.orchestrator.Run(context.Background(), &Request{Query: clientQuery})
	require.NoError(t, err)
	require.NoError(t, st.Err())

	assert.Equal(t, StateVersion, st.Version)
	assert.NotEmpty(t, st.RequestId)
	require.NotNil(t, st.Intent)
	assert.Equal(t, core.ConceptHash(st.Intent), st.ConceptHash)

	require.NotEmpty(t, st.Retrieved)
	assert.Equal(t, core.ID(1), st.Retrieved[0].Table.Id)
	assert.GreaterOrEqual(t, st.Retrieved[0].Score, 0.5)

	require.NotEmpty(t, st.Ranking)
	top := st.Ranking[0]
	assert.Equal(t, core.ID(1), top.Table.Id)
	assert.True(t, top.IsDoubleCertified)
	assert.Equal(t, 1.0, top.Scores.Certification)
	assert.Contains(t, top.MatchedEntities, "pessoa física")

	require.NotNil(t, st.Ambiguity)
	assert.False(t, st.Ambiguity.IsAmbiguous)
	assert.Equal(t, core.AmbiguityNone, st.Ambiguity.Type)

	require.NotEmpty(t, st.Domains)
	assert.Equal(t, "com", st.Domains[0].Domain.Id)
	require.NotEmpty(t, st.Owners)
	assert.Equal(t, core.ID(100), st.Owners[0].Owner.Id)

	assert.Equal(t, core.DataExists, st.DataExistence)
	assert.Equal(t, core.ActionUseTable, st.Action)
	require.NotNil(t, st.Single)
	assert.Equal(t, core.ID(1), st.Single.Table.Id)
	assert.Equal(t, "com", st.Single.Domain.Id)
	assert.Equal(t, core.ID(100), st.Single.Owner.Id)
	require.NotNil(t, st.Single.TableConfidence)
	assert.Equal(t, top.TotalScore, *st.Single.TableConfidence)
	assert.Contains(t, st.Single.Reasoning, "Base de Clientes PF")
	assert.Nil(t, st.RankingOutput)
}

func TestRun_TableAmbiguity(t *testing.T) {
	f := newFixture(t, twinCatalog(t, true), constantEmbeddings)

	st, err := f.orchestrator.Run(context.Background(), &Request{Query: "receita mensal consolidada"})
	require.NoError(t, err)

	require.Len(t, st.Ranking, 2)
	assert.Equal(t, st.Ranking[0].TotalScore, st.Ranking[1].TotalScore)
	assert.True(t, st.Reranked)
	assert.Equal(t, 1, f.provider.GetMockReranker().CallCount())

	require.NotNil(t, st.Ambiguity)
	assert.True(t, st.Ambiguity.IsAmbiguous)
	assert.Equal(t, core.AmbiguityTable, st.Ambiguity.Type)
	assert.ElementsMatch(t, []core.ID{10, 11}, optionTables(st.Ambiguity))
	assert.NotEmpty(t, st.Ambiguity.ClarifyingQuestion)

	assert.Equal(t, core.ActionConfirmWithOwner, st.Action)
	assert.Contains(t, st.Single.Reasoning, st.Ambiguity.ClarifyingQuestion)
}

func TestRun_DomainAmbiguity(t *testing.T) {
	f := newFixture(t, twinCatalog(t, false), constantEmbeddings)

	st, err := f.orchestrator.Run(context.Background(), &Request{Query: "receita mensal consolidada"})
	require.NoError(t, err)

	require.NotNil(t, st.Ambiguity)
	assert.True(t, st.Ambiguity.IsAmbiguous)
	assert.Equal(t, core.AmbiguityDomain, st.Ambiguity.Type)
	assert.ElementsMatch(t, []core.ID{10, 11}, optionTables(st.Ambiguity))
}

func TestRun_ColumnSearch(t *testing.T) {
	f := newFixture(t, bankCatalog(t), nil)

	st, err := f.orchestrator.Run(context.Background(), &Request{
		Query:        "valor da fatura do cartão",
		VariableName: "valor_fatura",
		VariableType: "decimal",
	})
	require.NoError(t, err)

	require.NotEmpty(t, st.Columns)
	assert.Equal(t, core.ID(3), st.Columns[0].Table.Id)
	assert.Equal(t, 1.0, st.Columns[0].Scores.Semantic)
	assert.Contains(t, st.Columns[0].Reasoning, "valor_fatura")
	for _, m := range st.Columns {
		assert.NotEqual(t, core.ID(1), m.Table.Id, "DimCliente has no matching column")
	}

	require.NotEmpty(t, st.Ranking)
	assert.Equal(t, core.ID(3), st.Ranking[0].Table.Id)
	seen := make(map[core.ID]bool)
	for _, m := range st.Ranking {
		assert.False(t, seen[m.Table.Id], "merged ranking repeats table %d", m.Table.Id)
		seen[m.Table.Id] = true
	}
}

func TestRun_RankingMode(t *testing.T) {
	f := newFixture(t, bankCatalog(t), nil)

	st, err := f.orchestrator.Run(context.Background(), &Request{Query: clientQuery, Mode: OutputRanking})
	require.NoError(t, err)

	assert.Nil(t, st.Single)
	require.NotNil(t, st.RankingOutput)
	assert.LessOrEqual(t, len(st.RankingOutput.Tables), DefaultConfig().RankingSize)
	require.NotEmpty(t, st.RankingOutput.Tables)
	assert.Equal(t, core.ID(1), st.RankingOutput.Tables[0].Table.Id)
	assert.NotEmpty(t, st.RankingOutput.Domains)
	assert.NotEmpty(t, st.RankingOutput.Owners)
	assert.Contains(t, st.RankingOutput.Summary, "tabelas")
	assert.Empty(t, st.RankingOutput.ClarifyingQuestion)
}

func TestRun_IntentFailureDegradesConfidence(t *testing.T) {
	f := newFixture(t, bankCatalog(t), func(p *mock.MockProvider) {
		p.GetMockIntentExtractor().ExtractIntentFunc = func(ctx context.Context, query string) (*core.CanonicalIntent, error) {
			return nil, errors.New("model offline")
		}
	})

	st, err := f.orchestrator.Run(context.Background(), &Request{Query: clientQuery})
	require.NoError(t, err)

	assert.True(t, st.Failed(StageIntent))
	assert.ErrorIs(t, st.Err(), ErrStageFailed)
	require.NotNil(t, st.Intent, "heuristic intent replaces the failed extraction")
	require.NotEmpty(t, st.Ranking)
	assert.Equal(t, core.ID(1), st.Ranking[0].Table.Id)

	assert.Equal(t, core.DataUncertain, st.DataExistence)
	assert.Equal(t, core.ActionConfirmWithOwner, st.Action)
	assert.InDelta(t, st.Ranking[0].TotalScore/2, st.OverallConfidence, 1e-9)
	assert.Contains(t, st.Single.Reasoning, StageIntent)
}

func TestRun_RetrievalFailure(t *testing.T) {
	o, err := NewOrchestrator(stubRetriever{err: errors.New("index offline")}, mock.NewMockProvider(),
		WithCatalog(bankCatalog(t)))
	require.NoError(t, err)

	st, err := o.Run(context.Background(), &Request{Query: clientQuery})
	require.NoError(t, err)

	assert.True(t, st.Failed(StageDomains))
	assert.True(t, st.Failed(StageTables))
	assert.False(t, st.Failed(StageColumns))
	assert.Empty(t, st.Ranking)

	require.NotEmpty(t, st.Domains, "catalog domains are still ranked from the intent")
	assert.Equal(t, "com", st.Domains[0].Domain.Id)
	assert.Equal(t, core.DataNeedsCreation, st.DataExistence)
	assert.Equal(t, core.ActionCreateInvolvement, st.Action)
	assert.Nil(t, st.Single.TableConfidence)
}

func TestRun_CancelledRequest(t *testing.T) {
	f := newFixture(t, bankCatalog(t), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st, err := f.orchestrator.Run(ctx, &Request{Query: clientQuery})
	require.NoError(t, err)

	for _, stage := range []string{StageIntent, StageDomains, StageTables, StageColumns, StageFeedback} {
		assert.True(t, st.Failed(stage), stage)
	}
	assert.Equal(t, 0, f.provider.GetMockIntentExtractor().CallCount())
	assert.Equal(t, core.DataUncertain, st.DataExistence)
	assert.Equal(t, core.ActionCreateInvolvement, st.Action)
	require.NotNil(t, st.Single)

	_, err = f.orchestrator.Pending(context.Background(), st.RequestId)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankCatalog(t), nil)

	st, err := f.orchestrator.Run(ctx, &Request{RequestId: "req-1", Query: clientQuery})
	require.NoError(t, err)
	assert.Equal(t, "req-1", st.RequestId)

	pending, err := f.orchestrator.Pending(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, st.ConceptHash, pending.ConceptHash)
	assert.Equal(t, core.ID(1), pending.TableId)
	assert.Equal(t, core.ID(100), pending.OwnerId)
	assert.Equal(t, "com", pending.DomainId)
	assert.Equal(t, clientQuery, pending.Query)

	t.Run("invalid outcome", func(t *testing.T) {
		_, err := f.orchestrator.Resolve(ctx, "req-1", "MAYBE", "", 0)
		assert.ErrorIs(t, err, core.ErrInvalidOutcome)
	})

	t.Run("approve", func(t *testing.T) {
		stored, err := f.orchestrator.Resolve(ctx, "req-1", core.OutcomeApproved, "Perfeito, exatamente o que eu precisava", 0)
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeApproved, stored.Outcome)
		assert.Equal(t, core.CategoryExactMatch, stored.JustificationCategory)
		assert.Equal(t, core.ID(1), stored.TableId)

		score, err := f.scores.HistoricalScore(ctx, st.ConceptHash, 1)
		require.NoError(t, err)
		assert.Equal(t, 1, score.Samples)

		assert.Equal(t, []string{"cliente", "pessoa física", "base de clientes", "diariamente"},
			f.lexicon.Expansion(clientQuery))
	})

	t.Run("already resolved", func(t *testing.T) {
		_, err := f.orchestrator.Resolve(ctx, "req-1", core.OutcomeApproved, "", 0)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestResolve_ModifiedTeachesActualTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bankCatalog(t), nil)

	_, err := f.orchestrator.Run(ctx, &Request{RequestId: "req-2", Query: "faturas do mês"})
	require.NoError(t, err)

	stored, err := f.orchestrator.Resolve(ctx, "req-2", core.OutcomeModified, "queria a fatura do cartão", 3)
	require.NoError(t, err)
	assert.Equal(t, core.ID(3), stored.ActualTableId)
	assert.Equal(t, "a fatura do cartão", stored.SuggestedImprovement)
	assert.Equal(t, []string{"fatura", "cartão", "crédito"}, f.lexicon.Expansion("faturas do mês"))
}

func TestResolve_RequiresDecisions(t *testing.T) {
	o, err := NewOrchestrator(stubRetriever{}, mock.NewMockProvider())
	require.NoError(t, err)
	_, err = o.Resolve(context.Background(), "req", core.OutcomeApproved, "", 0)
	assert.ErrorIs(t, err, ErrDecisionRepositoryRequired)
}

type stubRetriever struct {
	err error
}

func (s stubRetriever) Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]*retrieval.Result, error) {
	return nil, s.err
}

func (s stubRetriever) SearchWithDomainFallback(ctx context.Context, query string, opts *retrieval.FallbackOptions) (*retrieval.FallbackResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &retrieval.FallbackResult{Confidence: retrieval.ConfidenceLow}, nil
}

func (s stubRetriever) TokenCandidates(tokens []string) []retrieval.TokenHit { return nil }

func (s stubRetriever) Get(ctx context.Context, id core.ID) (*core.Table, error) {
	return nil, storage.ErrNotFound
}
