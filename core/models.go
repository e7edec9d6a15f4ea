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

package core

import (
	"encoding/binary"
	"encoding/hex"
	"slices"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for catalog entities such as tables and owners.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// DataLayer identifies the certification layer of a table.
type DataLayer string

const (
	// DataLayerNone means the table carries no layer information.
	DataLayerNone DataLayer = ""
	// DataLayerSoR is a system-of-record table.
	DataLayerSoR DataLayer = "SoR"
	// DataLayerSoT is a system-of-truth table.
	DataLayerSoT DataLayer = "SoT"
	// DataLayerSpec is a specialized, derived table.
	DataLayerSpec DataLayer = "Spec"
)

// Domain is a top-level business area grouping owners and tables.
type Domain struct {
	Id          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Keywords    []string `yaml:"keywords,omitempty" json:"keywords,omitempty"`
}

// Owner is the team or person responsible for tables inside one domain.
type Owner struct {
	Id         ID     `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email,omitempty" json:"email,omitempty"`
	DomainId   string `yaml:"domain_id" json:"domain_id"`
	DomainName string `yaml:"domain_name" json:"domain_name"`
}

// Table is a catalog table snapshot. Description doubles as the table summary.
type Table struct {
	Id              ID        `yaml:"id" json:"id"`
	Name            string    `yaml:"name" json:"name"`
	DisplayName     string    `yaml:"display_name,omitempty" json:"display_name,omitempty"`
	Description     string    `yaml:"description,omitempty" json:"description,omitempty"`
	SchemaName      string    `yaml:"schema_name,omitempty" json:"schema_name,omitempty"`
	DomainId        string    `yaml:"domain_id,omitempty" json:"domain_id,omitempty"`
	DomainName      string    `yaml:"domain,omitempty" json:"domain,omitempty"`
	OwnerId         ID        `yaml:"owner_id,omitempty" json:"owner_id,omitempty"`
	OwnerName       string    `yaml:"owner_name,omitempty" json:"owner_name,omitempty"`
	Keywords        []string  `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Columns         []string  `yaml:"columns,omitempty" json:"columns,omitempty"`
	Granularity     string    `yaml:"granularity,omitempty" json:"granularity,omitempty"`
	DataLayer       DataLayer `yaml:"data_layer,omitempty" json:"data_layer,omitempty"`
	IsGoldenSource  bool      `yaml:"is_golden_source,omitempty" json:"is_golden_source,omitempty"`
	IsVisaoCliente  bool      `yaml:"is_visao_cliente,omitempty" json:"is_visao_cliente,omitempty"`
	UpdateFrequency string    `yaml:"update_frequency,omitempty" json:"update_frequency,omitempty"`
	InferredProduct string    `yaml:"inferred_product,omitempty" json:"inferred_product,omitempty"`
}

// Domain returns the domain label used for filtering and grouping.
// The domain name wins over the domain id when both are present.
func (t *Table) Domain() string {
	if t.DomainName != "" {
		return t.DomainName
	}
	return t.DomainId
}

// Label returns the human readable label of the table.
func (t *Table) Label() string {
	if t.DisplayName != "" {
		return t.DisplayName
	}
	return t.Name
}

// IsDoubleCertified reports whether the table is both SoT and a golden source.
func (t *Table) IsDoubleCertified() bool {
	return t.DataLayer == DataLayerSoT && t.IsGoldenSource
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	c.Keywords = slices.Clone(t.Keywords)
	c.Columns = slices.Clone(t.Columns)
	return &c
}

// CanonicalIntent is the normalized form of a natural-language data request.
type CanonicalIntent struct {
	DataNeed             string   `json:"data_need"`
	TargetEntity         string   `json:"target_entity,omitempty"`
	TargetSegment        string   `json:"target_segment,omitempty"`
	TargetProduct        string   `json:"target_product,omitempty"`
	Granularity          string   `json:"granularity,omitempty"`
	InferredDomains      []string `json:"inferred_domains,omitempty"`
	OriginalQuery        string   `json:"original_query,omitempty"`
	ExtractionConfidence float64  `json:"extraction_confidence"`
}

// SearchText returns the text used to query the catalog for this intent.
func (i *CanonicalIntent) SearchText() string {
	if i.OriginalQuery != "" {
		return i.OriginalQuery
	}
	parts := []string{i.DataNeed, i.TargetEntity, i.TargetSegment, i.TargetProduct, i.Granularity}
	return strings.Join(slices.DeleteFunc(parts, func(s string) bool { return s == "" }), " ")
}

// ConceptHash returns a stable digest of the intent's concept fields.
// Field order, case and empty fields never change the result, so paraphrased
// queries that normalize to the same intent share feedback history.
func ConceptHash(intent *CanonicalIntent) string {
	if intent == nil {
		return ""
	}
	fields := []string{
		intent.DataNeed,
		intent.TargetEntity,
		intent.TargetProduct,
		intent.TargetSegment,
		intent.Granularity,
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			parts = append(parts, f)
		}
	}
	slices.Sort(parts)

	h, _ := blake2b.New(8, nil)
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
