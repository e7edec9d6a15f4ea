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
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/datafinder/core"
	"gopkg.in/yaml.v3"
)

// Record is one table row of an incoming catalog snapshot.
type Record struct {
	Id              core.ID  `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	DisplayName     string   `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description     string   `yaml:"description,omitempty" json:"description,omitempty"`
	Domain          string   `yaml:"domain,omitempty" json:"domain,omitempty"`
	SchemaName      string   `yaml:"schema_name,omitempty" json:"schema_name,omitempty"`
	Keywords        []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Columns         []string `yaml:"columns,omitempty" json:"columns,omitempty"`
	OwnerId         core.ID  `yaml:"owner_id,omitempty" json:"owner_id,omitempty"`
	OwnerName       string   `yaml:"owner_name,omitempty" json:"owner_name,omitempty"`
	DataLayer       string   `yaml:"data_layer,omitempty" json:"data_layer,omitempty"`
	IsGoldenSource  bool     `yaml:"is_golden_source,omitempty" json:"is_golden_source,omitempty"`
	UpdateFrequency string   `yaml:"update_frequency,omitempty" json:"update_frequency,omitempty"`
}

// Validate checks the required fields of a record.
func (r *Record) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: record is nil", core.ErrRecordInvalid)
	}
	if r.Id == 0 {
		return fmt.Errorf("%w: %w", core.ErrRecordInvalid, core.ErrMissingTableID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: %w (id %d)", core.ErrRecordInvalid, core.ErrMissingTableName, r.Id)
	}
	if err := core.ValidateDataLayer(core.DataLayer(r.DataLayer)); err != nil {
		return fmt.Errorf("%w: %w (id %d)", core.ErrRecordInvalid, err, r.Id)
	}
	return nil
}

// ToTable converts the record into the table snapshot the engine indexes.
func (r *Record) ToTable() *core.Table {
	return &core.Table{
		Id:              r.Id,
		Name:            r.Name,
		DisplayName:     r.DisplayName,
		Description:     r.Description,
		SchemaName:      r.SchemaName,
		DomainName:      r.Domain,
		OwnerId:         r.OwnerId,
		OwnerName:       r.OwnerName,
		Keywords:        slices.Clone(r.Keywords),
		Columns:         slices.Clone(r.Columns),
		DataLayer:       core.DataLayer(r.DataLayer),
		IsGoldenSource:  r.IsGoldenSource,
		UpdateFrequency: r.UpdateFrequency,
	}
}

// Digest returns the change-detection digest of the record.
func (r *Record) Digest() string {
	return Digest(r.ToTable())
}

// Digest returns the hex BLAKE2b-64 digest over the fields of a table that
// affect retrieval. Keyword order does not change the digest.
func Digest(t *core.Table) string {
	keywords := slices.Clone(t.Keywords)
	slices.Sort(keywords)
	fields := []string{
		t.Name,
		t.DisplayName,
		t.Description,
		t.Domain(),
		strings.Join(keywords, ","),
		t.OwnerName,
		string(t.DataLayer),
		strconv.FormatBool(t.IsGoldenSource),
	}
	h, _ := blake2b.New(8, nil)
	h.Write([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(h.Sum(nil))
}

// LoadRecords reads the tables section of a catalog snapshot file.
func LoadRecords(path string) ([]*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	return ParseRecords(data)
}

// ParseRecords decodes the tables section of a YAML catalog snapshot.
func ParseRecords(data []byte) ([]*Record, error) {
	var doc struct {
		Tables []*Record `yaml:"tables"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return doc.Tables, nil
}
