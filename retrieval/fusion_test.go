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
	"testing"

	"github.com/poiesic/datafinder/core"
	"github.com/stretchr/testify/assert"
)

func TestScoreBreakdown_Combined(t *testing.T) {
	tests := []struct {
		name   string
		scores ScoreBreakdown
		want   float64
	}{
		{"all zero", ScoreBreakdown{}, 0},
		{"all one", ScoreBreakdown{1, 1, 1, 1}, 1},
		{"name only", ScoreBreakdown{Name: 1}, 0.30},
		{"mixed", ScoreBreakdown{Name: 0.8, Description: 0.5, Keywords: 0.4, Overlap: 1}, 0.30*0.8 + 0.20*0.5 + 0.25*0.4 + 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.scores.Combined(), 1e-12)
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity(0))
	assert.Equal(t, 0.5, Similarity(1))
	assert.Equal(t, 0.0, Similarity(2))
	assert.Equal(t, 0.0, Similarity(2.5))
}

func TestOverlapScore(t *testing.T) {
	table := &core.Table{
		Name:        "dim_cliente",
		DisplayName: "Clientes PF",
		Description: "cadastro consolidado",
		Keywords:    []string{"pessoa física"},
	}
	tests := []struct {
		name  string
		query string
		want  float64
	}{
		{"no query tokens", "a . b", 0},
		{"every token present", "cliente pessoa física cadastro", 1},
		{"half present", "cliente saldo", 0.5},
		{"repeated query tokens count twice", "cliente cliente saldo", 2.0 / 3.0},
		{"case insensitive", "CLIENTES", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, OverlapScore(tt.query, table), 1e-12)
		})
	}

	assert.Zero(t, OverlapScore("cliente", &core.Table{}))
	assert.Zero(t, OverlapScore("cliente", nil))
}

func TestInterleave(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		picks []int
		want  []int
	}{
		{"no picks keeps fusion order", 4, nil, []int{0, 1, 2, 3}},
		{"model leads, fusion fills to five", 6, []int{4, 2, 5, 1, 0}, []int{4, 2, 5, 0, 1, 3}},
		{"invalid and repeated picks ignored", 5, []int{9, 2, 2, -1, 0}, []int{2, 0, 1, 3, 4}},
		{"late model picks follow the top five", 8, []int{7, 6, 5, 4, 3}, []int{7, 6, 5, 0, 1, 4, 3, 2}},
		{"single pick", 8, []int{7}, []int{7, 0, 1, 2, 3, 4, 5, 6}},
		{"empty ranking", 0, []int{1, 2}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Interleave(tt.n, tt.picks))
		})
	}
}

func TestInvertedIndex(t *testing.T) {
	ix := newInvertedIndex()
	ix.add(&core.Table{Id: 1, Name: "fato_pix", Keywords: []string{"spi"}, DomainName: "Pix"})
	ix.add(&core.Table{Id: 2, Name: "dim_cliente", OwnerName: "Squad Pix"})

	assert.Equal(t, map[core.ID]int{1: 2, 2: 1}, ix.lookup([]string{"pix", "spi"}))

	ix.add(&core.Table{Id: 1, Name: "fato_cartao"})
	assert.Equal(t, map[core.ID]int{2: 1}, ix.lookup([]string{"pix", "spi"}))

	ix.remove(2)
	assert.Empty(t, ix.lookup([]string{"pix"}))
	tokens, tables := ix.size()
	assert.Equal(t, 2, tokens)
	assert.Equal(t, 1, tables)
}
