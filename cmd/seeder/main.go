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

// Command seeder fills an index with a demo banking catalog, or with the
// tables of a YAML snapshot given by -src, so the other commands have
// something to search.
package main

import (
	"context"
	"flag"
	"iter"
	"log/slog"
	"os"

	"github.com/poiesic/datafinder"
	"github.com/poiesic/datafinder/cdc"
	"github.com/poiesic/datafinder/config"
)

var demoCatalog = []*cdc.Record{
	{Id: 1, Name: "dim_cliente", DisplayName: "Base de Clientes PF", Description: "Base consolidada de clientes pessoa física atualizada diariamente", Domain: "Comercial", OwnerName: "Squad Clientes", Keywords: []string{"cliente", "pessoa física", "cpf"}, DataLayer: "SoT", IsGoldenSource: true, UpdateFrequency: "daily"},
	{Id: 2, Name: "dim_cliente_pj", DisplayName: "Base de Clientes PJ", Description: "Cadastro de clientes pessoa jurídica e seus sócios", Domain: "Comercial", OwnerName: "Squad Clientes", Keywords: []string{"cliente", "pessoa jurídica", "cnpj"}, DataLayer: "SoT", UpdateFrequency: "daily"},
	{Id: 3, Name: "fato_pix_transacao", DisplayName: "Transações PIX", Description: "Transações PIX liquidadas no SPI", Domain: "Pix", OwnerName: "Squad Pagamentos", Keywords: []string{"pix", "spi", "transferência"}, DataLayer: "SoR", UpdateFrequency: "realtime"},
	{Id: 4, Name: "dim_chave_pix", DisplayName: "Chaves PIX", Description: "Chaves PIX registradas no DICT por cliente", Domain: "Pix", OwnerName: "Squad Pagamentos", Keywords: []string{"pix", "chave", "dict"}, UpdateFrequency: "daily"},
	{Id: 5, Name: "fato_fatura_cartao", DisplayName: "Faturas de Cartão", Description: "Faturas mensais de cartão de crédito", Domain: "Cartoes", OwnerName: "Squad Cartões", Keywords: []string{"fatura", "cartão", "crédito"}, DataLayer: "SoT", IsGoldenSource: true, UpdateFrequency: "monthly"},
	{Id: 6, Name: "fato_transacao_cartao", DisplayName: "Transações de Cartão", Description: "Compras autorizadas em cartões de crédito e débito", Domain: "Cartoes", OwnerName: "Squad Cartões", Keywords: []string{"cartão", "compra", "autorização"}, UpdateFrequency: "daily"},
	{Id: 7, Name: "dim_contrato_consignado", DisplayName: "Contratos Consignado", Description: "Contratos de crédito consignado ativos", Domain: "Credito", OwnerName: "Squad Crédito", Keywords: []string{"consignado", "contrato", "inss"}, DataLayer: "SoT", UpdateFrequency: "daily"},
	{Id: 8, Name: "fato_parcela_emprestimo", DisplayName: "Parcelas de Empréstimo", Description: "Parcelas de empréstimos pessoais com vencimento e atraso", Domain: "Credito", OwnerName: "Squad Crédito", Keywords: []string{"empréstimo", "parcela", "atraso"}, DataLayer: "Spec", UpdateFrequency: "daily"},
	{Id: 9, Name: "fato_saldo_conta", DisplayName: "Saldo de Conta", Description: "Saldo diário de conta corrente", Domain: "Financeiro", OwnerName: "Squad Contas", Keywords: []string{"saldo", "conta corrente"}, DataLayer: "SoT", IsGoldenSource: true, UpdateFrequency: "daily"},
	{Id: 10, Name: "fato_score_risco", DisplayName: "Score de Risco", Description: "Score de risco de crédito por cliente recalculado semanalmente", Domain: "Risco", OwnerName: "Squad Risco", Keywords: []string{"score", "risco", "inadimplência"}, UpdateFrequency: "weekly"},
	{Id: 11, Name: "fato_aplicacao_cdb", DisplayName: "Aplicações em CDB", Description: "Posição diária de aplicações em CDB e renda fixa", Domain: "Investimentos", OwnerName: "Squad Investimentos", Keywords: []string{"cdb", "renda fixa", "aplicação"}, UpdateFrequency: "daily"},
	{Id: 12, Name: "fato_boleto_cobranca", DisplayName: "Boletos de Cobrança", Description: "Boletos emitidos e liquidados pela cobrança", Domain: "Cobranca", OwnerName: "Squad Cobrança", Keywords: []string{"boleto", "cobrança", "liquidação"}, UpdateFrequency: "daily"},
}

var (
	seedFileName = flag.String("src", "", "YAML catalog snapshot to seed from")
	configPath   = flag.String("config", "", "YAML configuration file")
	batchSize    = flag.Int("batch", 50, "tables per sync batch")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// recordsFromFile returns an iterator over the tables of a snapshot file.
func recordsFromFile(filename string) (iter.Seq[*cdc.Record], error) {
	records, err := cdc.LoadRecords(filename)
	if err != nil {
		return nil, err
	}
	return recordsFromSlice(records), nil
}

// recordsFromSlice returns an iterator over a slice of records.
func recordsFromSlice(records []*cdc.Record) iter.Seq[*cdc.Record] {
	return func(yield func(*cdc.Record) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}

// syncBatched applies records in batches. Deletes are never applied so
// earlier batches survive later ones.
func syncBatched(ctx context.Context, finder *datafinder.Finder, source iter.Seq[*cdc.Record], size int) (int, error) {
	total := 0
	batch := make([]*cdc.Record, 0, size)
	flush := func() error {
		result, err := finder.Sync(ctx, batch, cdc.SyncOptions{})
		if err != nil {
			return err
		}
		for _, msg := range result.Errors {
			slog.Warn("seed record rejected", "err", msg)
		}
		total += result.TotalChanges()
		batch = batch[:0]
		return nil
	}

	for r := range source {
		batch = append(batch, r)
		if len(batch) == size {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func main() {
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	ctx := context.Background()
	finder, err := datafinder.Open(ctx, cfg)
	if err != nil {
		panic(err)
	}
	defer finder.Close()

	source := recordsFromSlice(demoCatalog)
	if *seedFileName != "" {
		source, err = recordsFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	}

	n, err := syncBatched(ctx, finder, source, max(*batchSize, 1))
	if err != nil {
		panic(err)
	}
	slog.Info("seeded catalog", "changes", n, "db", cfg.DBPath)
}
