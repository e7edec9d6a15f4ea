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

package ambiguity

import (
	"testing"

	"github.com/poiesic/datafinder/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func match(id core.ID, domain string, score float64) *core.TableMatch {
	return &core.TableMatch{
		Table:      &core.Table{Id: id, Name: "t", DisplayName: "Tabela", DomainName: domain},
		TotalScore: score,
	}
}

func newDetector(t *testing.T, opts ...Option) *Detector {
	t.Helper()
	d, err := NewDetector(opts...)
	require.NoError(t, err)
	return d
}

func TestDetect_NotAmbiguous(t *testing.T) {
	d := newDetector(t)
	tests := []struct {
		name    string
		ranking []*core.TableMatch
	}{
		{"empty", nil},
		{"single table", []*core.TableMatch{match(1, "a", 0.8)}},
		{"same table twice", []*core.TableMatch{match(1, "a", 0.8), match(1, "a", 0.79)}},
		{"clear winner", []*core.TableMatch{match(1, "a", 0.8), match(2, "a", 0.7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect("q", tt.ranking)
			assert.Equal(t, core.AmbiguityNone, got.Type)
			assert.False(t, got.IsAmbiguous)
			assert.Empty(t, got.Options)
		})
	}
}

func TestDetect_TableAmbiguous(t *testing.T) {
	d := newDetector(t)
	ranking := []*core.TableMatch{
		match(1, "Comercial", 0.80),
		match(2, "Comercial", 0.78),
		match(3, "Comercial", 0.76),
		match(4, "Comercial", 0.60),
	}

	got := d.Detect("clientes", ranking)
	assert.Equal(t, core.AmbiguityTable, got.Type)
	assert.True(t, got.IsAmbiguous)
	require.Len(t, got.Options, 3)
	assert.Equal(t, core.AmbiguityOption{Id: "table:1", Label: "Tabela (Comercial)", TableId: 1}, got.Options[0])
	assert.Equal(t, core.ID(3), got.Options[2].TableId)
	assert.Contains(t, got.ClarifyingQuestion, "3 tabelas")
	assert.Contains(t, got.ClarifyingQuestion, "'clientes'")
}

func TestDetect_DomainAmbiguous(t *testing.T) {
	d := newDetector(t)
	ranking := []*core.TableMatch{
		match(1, "Pix", 0.70),
		match(2, "Cartoes", 0.69),
		match(3, "Pix", 0.68),
	}

	got := d.Detect("transações", ranking)
	assert.Equal(t, core.AmbiguityDomain, got.Type)
	assert.True(t, got.IsAmbiguous)
	assert.Equal(t, []core.AmbiguityOption{
		{Id: "domain:Pix", Label: "Pix", TableId: 1},
		{Id: "domain:Cartoes", Label: "Cartoes", TableId: 2},
	}, got.Options)
	assert.Contains(t, got.ClarifyingQuestion, "Pix, Cartoes")
}

func TestDetect_OptionsCapped(t *testing.T) {
	d := newDetector(t, WithMaxOptions(2))
	ranking := []*core.TableMatch{
		match(1, "a", 0.5), match(2, "a", 0.5), match(3, "a", 0.5), match(4, "a", 0.5),
	}
	got := d.Detect("q", ranking)
	assert.Len(t, got.Options, 2)
}

func TestDetect_DoesNotMutateRanking(t *testing.T) {
	d := newDetector(t)
	ranking := []*core.TableMatch{match(2, "a", 0.5), match(1, "a", 0.52)}
	d.Detect("q", ranking)
	assert.Equal(t, core.ID(2), ranking[0].Table.Id)
	assert.Equal(t, 0.52, ranking[1].TotalScore)
}

func TestDetect_CustomMargin(t *testing.T) {
	d := newDetector(t, WithMargin(0.2))
	got := d.Detect("q", []*core.TableMatch{match(1, "a", 0.8), match(2, "a", 0.65)})
	assert.True(t, got.IsAmbiguous)

	_, err := NewDetector(WithMargin(2))
	assert.Error(t, err)
	_, err = NewDetector(WithMaxOptions(1))
	assert.Error(t, err)
}
