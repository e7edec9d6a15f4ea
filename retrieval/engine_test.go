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
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/ai/mock"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
	badgerstore "github.com/poiesic/datafinder/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStores(t *testing.T) Stores {
	t.Helper()
	repos, err := badgerstore.NewMemoryRepositories(Views...)
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return Stores{
		Name:        repos.Vectors[ViewName],
		Description: repos.Vectors[ViewDescription],
		Keywords:    repos.Vectors[ViewKeywords],
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider()
	engine, err := NewEngine(newTestStores(t), provider, opts...)
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine, provider
}

func testCatalog() []*core.Table {
	return []*core.Table{
		{
			Id:              1,
			Name:            "DimCliente",
			DisplayName:     "Base de Clientes PF",
			Description:     "Base consolidada de clientes pessoa física atualizada diariamente",
			DomainName:      "Comercial",
			OwnerName:       "Squad Clientes",
			Keywords:        []string{"cliente", "pessoa física", "base de clientes", "diariamente"},
			DataLayer:       core.DataLayerSoT,
			IsGoldenSource:  true,
			UpdateFrequency: "daily",
		},
		{
			Id:          2,
			Name:        "fato_pix_transacao",
			DisplayName: "Transações PIX",
			Description: "Transações PIX liquidadas no SPI",
			DomainName:  "Pix",
			OwnerName:   "Squad Pagamentos",
			Keywords:    []string{"pix", "spi", "transferência"},
		},
		{
			Id:          3,
			Name:        "fato_fatura_cartao",
			DisplayName: "Faturas de Cartão",
			Description: "Faturas mensais de cartão de crédito",
			DomainName:  "Cartoes",
			Keywords:    []string{"fatura", "cartão", "crédito"},
		},
		{
			Id:          4,
			Name:        "dim_contrato_consignado",
			DisplayName: "Contratos Consignado",
			Description: "Contratos de crédito consignado ativos",
			DomainName:  "Credito",
			Keywords:    []string{"consignado", "contrato", "inss"},
		},
		{
			Id:          5,
			Name:        "fato_saldo_conta",
			DisplayName: "Saldo de Conta",
			Description: "Saldo diário de conta corrente",
			DomainName:  "Financeiro",
			Keywords:    []string{"saldo", "conta corrente"},
		},
	}
}

func indexCatalog(t *testing.T, engine *Engine) {
	t.Helper()
	require.NoError(t, engine.IndexTables(context.Background(), testCatalog()))
}

func TestNewEngine_Validation(t *testing.T) {
	stores := newTestStores(t)
	provider := mock.NewMockProvider()

	t.Run("missing store", func(t *testing.T) {
		_, err := NewEngine(Stores{Name: stores.Name, Description: stores.Description}, provider)
		assert.ErrorIs(t, err, ErrVectorStoreRequired)
	})

	t.Run("missing provider", func(t *testing.T) {
		_, err := NewEngine(stores, nil)
		assert.ErrorIs(t, err, ErrAIProviderRequired)
	})

	t.Run("invalid option", func(t *testing.T) {
		_, err := NewEngine(stores, provider, WithPoolSize(4), WithMaxResults(0))
		assert.Error(t, err)
	})
}

func TestEngine_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	table := testCatalog()[0]
	require.NoError(t, engine.IndexTable(ctx, table))

	got, err := engine.Get(ctx, table.Id)
	require.NoError(t, err)
	assert.Equal(t, table.Name, got.Name)
	assert.Equal(t, table.DisplayName, got.DisplayName)
	assert.Equal(t, table.Domain(), got.Domain())

	t.Run("re-indexing overwrites", func(t *testing.T) {
		updated := table.Clone()
		updated.DisplayName = "Clientes Consolidados"
		updated.DomainName = "Clientes"
		require.NoError(t, engine.IndexTable(ctx, updated))

		got, err := engine.Get(ctx, table.Id)
		require.NoError(t, err)
		assert.Equal(t, "Clientes Consolidados", got.DisplayName)
		assert.Equal(t, "Clientes", got.Domain())

		count, err := engine.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("reads from the store when the cache is cold", func(t *testing.T) {
		engine.cache.Purge()
		got, err := engine.Get(ctx, table.Id)
		require.NoError(t, err)
		assert.Equal(t, "Clientes Consolidados", got.DisplayName)
	})

	t.Run("invalid table", func(t *testing.T) {
		err := engine.IndexTable(ctx, &core.Table{Name: "no id"})
		assert.ErrorIs(t, err, core.ErrRecordInvalid)
	})
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	indexCatalog(t, engine)

	before, err := engine.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, engine.Delete(ctx, 2))
	after, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before-1, after)

	_, err = engine.Get(ctx, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, engine.TokenCandidates([]string{"spi"}))

	t.Run("missing id is a no-op", func(t *testing.T) {
		require.NoError(t, engine.Delete(ctx, 999))
		count, err := engine.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, after, count)
	})
}

func TestEngine_Clear(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	indexCatalog(t, engine)

	cleared, err := engine.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(testCatalog()), cleared)

	count, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.IndexedTokens)
	assert.Zero(t, stats.CachedTables)
}

func TestEngine_ListAndStats(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	indexCatalog(t, engine)

	tables, err := engine.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, core.ID(2), tables[0].Id)
	assert.Equal(t, core.ID(3), tables[1].Id)

	stats, err := engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Tables)
	assert.Positive(t, stats.IndexedTokens)
}

func TestEngine_IndexTables_PartialFailure(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t, WithPoolSize(2))

	tables := testCatalog()
	tables = append(tables, &core.Table{Name: "missing id"})

	err := engine.IndexTables(ctx, tables)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRecordInvalid)

	count, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestEngine_Enrichment(t *testing.T) {
	ctx := context.Background()

	t.Run("generated keywords are stored", func(t *testing.T) {
		engine, provider := newTestEngine(t)
		provider.GetMockKeywordEnricher().EnrichKeywordsFunc = func(_ context.Context, _, _, _ string, existing []string) ([]string, error) {
			return append(existing, "extra"), nil
		}
		require.NoError(t, engine.IndexTable(ctx, testCatalog()[1]))

		got, err := engine.Get(ctx, 2)
		require.NoError(t, err)
		assert.Contains(t, got.Keywords, "extra")
		assert.NotEmpty(t, engine.TokenCandidates([]string{"extra"}))
	})

	t.Run("failure keeps existing keywords", func(t *testing.T) {
		engine, provider := newTestEngine(t)
		provider.GetMockKeywordEnricher().EnrichKeywordsFunc = func(context.Context, string, string, string, []string) ([]string, error) {
			return nil, ai.ErrCollaboratorUnavailable
		}
		require.NoError(t, engine.IndexTable(ctx, testCatalog()[1]))

		got, err := engine.Get(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"pix", "spi", "transferência"}, got.Keywords)
	})

	t.Run("disabled", func(t *testing.T) {
		engine, provider := newTestEngine(t, WithEnrichment(false))
		require.NoError(t, engine.IndexTable(ctx, testCatalog()[1]))
		assert.Zero(t, provider.GetMockKeywordEnricher().CallCount())
	})
}

func TestEngine_EmbeddingFailureFailsIndexing(t *testing.T) {
	engine, provider := newTestEngine(t)
	provider.GetMockEmbedder().EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, ai.ErrCollaboratorUnavailable
	}
	err := engine.IndexTable(context.Background(), testCatalog()[0])
	assert.ErrorIs(t, err, ai.ErrCollaboratorUnavailable)
}

func TestEngine_Reload(t *testing.T) {
	ctx := context.Background()
	stores := newTestStores(t)
	provider := mock.NewMockProvider()

	first, err := NewEngine(stores, provider)
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.IndexTables(ctx, testCatalog()))

	second, err := NewEngine(stores, provider)
	require.NoError(t, err)
	defer second.Close()
	assert.Empty(t, second.TokenCandidates([]string{"pix"}))

	n, err := second.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	hits := second.TokenCandidates([]string{"pix", "spi"})
	require.NotEmpty(t, hits)
	assert.Equal(t, TokenHit{Id: 2, Matches: 2}, hits[0])
}

func TestEngine_ConcurrentReindexConverges(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)
	base := testCatalog()[0]

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table := base.Clone()
			table.DisplayName = strings.Repeat("x", i+1)
			assert.NoError(t, engine.IndexTable(ctx, table))
		}(i)
	}
	wg.Wait()

	count, err := engine.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	got, err := engine.Get(ctx, base.Id)
	require.NoError(t, err)
	assert.NotEmpty(t, got.DisplayName)
}

// failingStore fails every query.
type failingStore struct {
	storage.VectorStore
}

func (f *failingStore) Query(context.Context, []float32, int, *storage.Filter) ([]*storage.Hit, error) {
	return nil, errors.New("boom")
}
