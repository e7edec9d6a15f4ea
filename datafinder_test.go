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

package datafinder

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/datafinder/ai/mock"
	"github.com/poiesic/datafinder/cdc"
	"github.com/poiesic/datafinder/config"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/pipeline"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogYAML = `
domains:
  - id: com
    name: Comercial
    keywords: [cliente, conta]
  - id: pix
    name: Pix
    keywords: [pix, pagamento]
  - id: car
    name: Cartoes
    keywords: [cartão, fatura]
owners:
  - id: 100
    name: Squad Clientes
    domain_id: com
  - id: 200
    name: Squad Pagamentos
    domain_id: pix
  - id: 300
    name: Squad Cartões
    domain_id: car
tables:
  - id: 1
    name: DimCliente
    display_name: Base de Clientes PF
    description: Base consolidada de clientes pessoa física atualizada diariamente
    domain_id: com
    domain: Comercial
    owner_id: 100
    owner_name: Squad Clientes
    keywords: [cliente, pessoa física, base de clientes, diariamente]
    columns: [cpf, nome_cliente, data_nascimento, segmento]
    data_layer: SoT
    is_golden_source: true
    update_frequency: daily
  - id: 2
    name: fato_pix_transacao
    display_name: Transações PIX
    description: Transações PIX liquidadas no SPI
    domain_id: pix
    domain: Pix
    owner_id: 200
    owner_name: Squad Pagamentos
    keywords: [pix, spi, transferência]
  - id: 3
    name: fato_fatura_cartao
    display_name: Faturas de Cartão
    description: Faturas mensais de cartão de crédito
    domain_id: car
    domain: Cartoes
    owner_id: 300
    owner_name: Squad Cartões
    keywords: [fatura, cartão, crédito]
`

const clientQuery = "base de clientes pessoa física atualizada diariamente"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	catalog := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(catalog, []byte(catalogYAML), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.DBPath = filepath.Join(dir, "db")
	cfg.LexiconPath = filepath.Join(dir, "lexicon.yaml")
	cfg.CatalogPath = catalog
	cfg.Pipeline.ExistsThreshold = 0.6
	return cfg
}

func open(t *testing.T, cfg *config.Config, opts ...Option) *Finder {
	t.Helper()
	opts = append([]Option{WithProvider(mock.NewMockProvider())}, opts...)
	f, err := Open(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return f
}

func TestOpen_RequiresConfig(t *testing.T) {
	_, err := Open(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConfigRequired)
}

func TestOpen_BadCatalog(t *testing.T) {
	cfg := testConfig(t)
	cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := Open(context.Background(), cfg, WithProvider(mock.NewMockProvider()))
	assert.Error(t, err)
}

func TestFinder_Lifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	var progress bytes.Buffer
	f := open(t, cfg, WithProgress(&progress))

	result, err := f.SyncFile(ctx, cfg.CatalogPath, cdc.SyncOptions{ApplyDeletes: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Inserts)
	assert.Contains(t, progress.String(), "3/3")

	st, err := f.Find(ctx, &pipeline.Request{Query: clientQuery})
	require.NoError(t, err)
	require.NotEmpty(t, st.Ranking)
	assert.Equal(t, core.ID(1), st.Ranking[0].Table.Id)
	require.NotNil(t, st.Single)

	record, err := f.Resolve(ctx, st.RequestId, core.OutcomeApproved, "perfeito, exatamente o que eu precisava", 0)
	require.NoError(t, err)
	assert.Equal(t, core.ID(1), record.TableId)

	insights := f.Insights()
	assert.Equal(t, 1, insights.TotalDecisions)
	assert.Equal(t, 1.0, insights.ApprovalRate)

	stats, err := f.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Index.Tables)
	assert.Equal(t, 1, stats.Feedback.TotalRecords)
	assert.Equal(t, 1, stats.Lexicon.Expansions)

	require.NoError(t, f.Close())
	assert.FileExists(t, cfg.LexiconPath)

	t.Run("reopen keeps index and decisions", func(t *testing.T) {
		f := open(t, cfg)
		defer f.Close()

		results, err := f.Search(ctx, "transações pix", &retrieval.SearchOptions{MaxResults: 3})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, core.ID(2), results[0].Table.Id)

		suggestions, err := f.Suggest(ctx, "faturas de cartão")
		require.NoError(t, err)
		assert.NotEmpty(t, suggestions.Domains)

		assert.Equal(t, 1, f.Insights().TotalDecisions)

		unchanged, err := f.SyncFile(ctx, cfg.CatalogPath, cdc.SyncOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, unchanged.Unchanged)

		reindexed, err := f.Reindex(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 3, reindexed.Updates)

		cleared, err := f.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, cleared)

		again, err := f.SyncFile(ctx, cfg.CatalogPath, cdc.SyncOptions{})
		require.NoError(t, err)
		assert.Equal(t, 3, again.Inserts)
	})
}

func TestFinder_InMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.CatalogPath = ""
	cfg.LexiconPath = ""
	f := open(t, cfg, WithInMemory())
	defer f.Close()

	_, err := f.Sync(ctx, []*cdc.Record{{Id: 9, Name: "fato_saldo_conta", Description: "Saldo diário de conta corrente"}}, cdc.SyncOptions{})
	require.NoError(t, err)

	st, err := f.Find(ctx, &pipeline.Request{Query: "saldo diário de conta corrente", Mode: pipeline.OutputRanking})
	require.NoError(t, err)
	require.NotNil(t, st.RankingOutput)
	require.NotEmpty(t, st.RankingOutput.Tables)
	assert.Equal(t, core.ID(9), st.RankingOutput.Tables[0].Table.Id)
	assert.NoDirExists(t, cfg.DBPath)
}
