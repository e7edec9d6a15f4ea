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

package cdc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/datafinder/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name   string
		record *Record
		want   error
	}{
		{"valid", &Record{Id: 1, Name: "t"}, nil},
		{"nil", nil, core.ErrRecordInvalid},
		{"missing id", &Record{Name: "t"}, core.ErrMissingTableID},
		{"missing name", &Record{Id: 1}, core.ErrMissingTableName},
		{"bad layer", &Record{Id: 1, Name: "t", DataLayer: "Gold"}, core.ErrInvalidDataLayer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, core.ErrRecordInvalid)
		})
	}
}

func TestDigest(t *testing.T) {
	base := &Record{
		Id:             1,
		Name:           "DimCliente",
		DisplayName:    "Clientes",
		Description:    "Base de clientes",
		Domain:         "Comercial",
		Keywords:       []string{"cliente", "cpf"},
		OwnerName:      "Squad Clientes",
		DataLayer:      "SoT",
		IsGoldenSource: true,
	}
	digest := base.Digest()
	assert.Len(t, digest, 16)

	reordered := *base
	reordered.Keywords = []string{"cpf", "cliente"}
	assert.Equal(t, digest, reordered.Digest(), "keyword order is ignored")

	untracked := *base
	untracked.SchemaName = "dw"
	untracked.Columns = []string{"cpf"}
	untracked.UpdateFrequency = "daily"
	untracked.OwnerId = 7
	assert.Equal(t, digest, untracked.Digest(), "fields outside the digest are ignored")

	mutations := map[string]func(r *Record){
		"name":         func(r *Record) { r.Name = "dim_cliente" },
		"display name": func(r *Record) { r.DisplayName = "Clientes PF" },
		"description":  func(r *Record) { r.Description = "Clientes" },
		"domain":       func(r *Record) { r.Domain = "Varejo" },
		"keywords":     func(r *Record) { r.Keywords = []string{"cliente"} },
		"owner":        func(r *Record) { r.OwnerName = "Squad CRM" },
		"layer":        func(r *Record) { r.DataLayer = "SoR" },
		"golden":       func(r *Record) { r.IsGoldenSource = false },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			changed := *base
			mutate(&changed)
			assert.NotEqual(t, digest, changed.Digest())
		})
	}

	assert.Equal(t, digest, Digest(base.ToTable()))
	assert.Equal(t, []string{"cliente", "cpf"}, base.Keywords, "digest does not reorder the record")
}

func TestLoadRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`
domains:
  - id: com
    name: Comercial
tables:
  - id: 1
    name: DimCliente
    domain: Comercial
    keywords: [cliente, cpf]
    data_layer: SoT
    is_golden_source: true
  - id: 2
    name: fato_pix
    owner_id: 10
    owner_name: Squad Pix
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, core.ID(1), records[0].Id)
	assert.Equal(t, "Comercial", records[0].Domain)
	assert.True(t, records[0].IsGoldenSource)
	assert.Equal(t, []string{"cliente", "cpf"}, records[0].Keywords)
	assert.Equal(t, core.ID(10), records[1].OwnerId)

	table := records[0].ToTable()
	assert.Equal(t, "Comercial", table.DomainName)
	assert.Equal(t, core.DataLayerSoT, table.DataLayer)

	_, err = LoadRecords(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = ParseRecords([]byte("tables: {"))
	assert.Error(t, err)
}
