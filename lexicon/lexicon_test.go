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

package lexicon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLexicon(t *testing.T) *Lexicon {
	t.Helper()
	l, err := New()
	require.NoError(t, err)
	return l
}

func TestLexicon_Keywords(t *testing.T) {
	l := newLexicon(t)
	l.LearnKeywords("Fato_PIX_Transacao", []string{"SPI", "chave", "spi", "", "devolução", "med", "qr", "iniciador"})

	t.Run("exact match returns everything", func(t *testing.T) {
		assert.Equal(t, []string{"spi", "chave", "devolução", "med", "qr", "iniciador"}, l.Keywords("fato_pix_transacao"))
	})

	t.Run("partial match is capped", func(t *testing.T) {
		assert.Equal(t, []string{"spi", "chave", "devolução", "med", "qr"}, l.Keywords("pix_transacao"))
		assert.Len(t, l.Keywords("schema.fato_pix_transacao_v2"), 5)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, l.Keywords("dim_cliente"))
		assert.Empty(t, l.Keywords(""))
	})
}

func TestLexicon_Expansion(t *testing.T) {
	l := newLexicon(t)
	l.LearnExpansion("Aging da carteira", []string{"aging", "atraso", "dpd", "vencido", "faixa", "bucket"})

	assert.Equal(t, []string{"aging", "atraso", "dpd", "vencido", "faixa"}, l.Expansion("aging da carteira"))
	assert.Equal(t, []string{"aging", "atraso", "dpd"}, l.Expansion("aging da carteira pj"))
	assert.Empty(t, l.Expansion("saldo"))
}

func TestLexicon_Synonyms(t *testing.T) {
	l := newLexicon(t)
	l.LearnSynonym("Cartão", "cartao")
	l.LearnSynonym("cartão", "card")
	l.LearnSynonym("x", "x")

	assert.ElementsMatch(t, []string{"cartao", "card"}, l.Synonyms("CARTÃO"))
	assert.Equal(t, []string{"cartão"}, l.Synonyms("card"))
	assert.Empty(t, l.Synonyms("x"))

	stats := l.Stats()
	assert.Equal(t, 3, stats.Terms)
	assert.Equal(t, 4, stats.Synonyms)
}

func TestLexicon_ReturnsCopies(t *testing.T) {
	l := newLexicon(t)
	l.LearnKeywords("t", []string{"a"})
	got := l.Keywords("t")
	got[0] = "mutated"
	assert.Equal(t, []string{"a"}, l.Keywords("t"))
}

func TestLexicon_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "lexicon.yaml")

	l, err := Load(path)
	require.NoError(t, err)
	l.LearnKeywords("dim_cliente", []string{"cpf"})
	l.LearnExpansion("base de clientes", []string{"cliente", "cpf"})
	l.LearnSynonym("pf", "pessoa física")

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"cpf"}, reloaded.Keywords("dim_cliente"))
	assert.Equal(t, []string{"cliente", "cpf"}, reloaded.Expansion("base de clientes"))
	assert.Equal(t, []string{"pessoa física"}, reloaded.Synonyms("pf"))
}

func TestLexicon_LoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("keywords: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLexicon_InMemorySaveIsNoop(t *testing.T) {
	l := newLexicon(t)
	assert.NoError(t, l.Save())
}

func TestLexicon_ConcurrentAccess(t *testing.T) {
	l := newLexicon(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			l.LearnKeywords("t", []string{"a", "b"})
			l.LearnSynonym("a", "b")
		}()
		go func() {
			defer wg.Done()
			_ = l.Keywords("t")
			_ = l.Synonyms("a")
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"a", "b"}, l.Keywords("t"))
}
