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
	"errors"
	"testing"
)

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		wantErr error
	}{
		{
			name:  "valid table",
			table: &Table{Id: 1, Name: "dim_cliente", DataLayer: DataLayerSoT},
		},
		{
			name:  "valid without layer",
			table: &Table{Id: 1, Name: "dim_cliente"},
		},
		{
			name:    "nil table",
			table:   nil,
			wantErr: ErrRecordInvalid,
		},
		{
			name:    "missing id",
			table:   &Table{Name: "dim_cliente"},
			wantErr: ErrMissingTableID,
		},
		{
			name:    "blank name",
			table:   &Table{Id: 1, Name: "  "},
			wantErr: ErrMissingTableName,
		},
		{
			name:    "unknown layer",
			table:   &Table{Id: 1, Name: "x", DataLayer: "Gold"},
			wantErr: ErrInvalidDataLayer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTable(tt.table)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTable() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTable() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrRecordInvalid) {
				t.Errorf("ValidateTable() error should wrap ErrRecordInvalid, got %v", err)
			}
		})
	}
}

func TestValidateDecisionRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *DecisionRecord
		wantErr error
	}{
		{
			name:   "valid record",
			record: &DecisionRecord{ConceptHash: "abc", Outcome: OutcomeApproved, ConfidenceAtDecision: 0.8},
		},
		{
			name:    "nil record",
			wantErr: ErrInvalidDecision,
		},
		{
			name:    "missing hash",
			record:  &DecisionRecord{Outcome: OutcomeApproved},
			wantErr: ErrEmptyConceptHash,
		},
		{
			name:    "bad outcome",
			record:  &DecisionRecord{ConceptHash: "abc", Outcome: "MAYBE"},
			wantErr: ErrInvalidOutcome,
		},
		{
			name:    "confidence out of range",
			record:  &DecisionRecord{ConceptHash: "abc", Outcome: OutcomeRejected, ConfidenceAtDecision: 1.5},
			wantErr: ErrInvalidConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDecisionRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDecisionRecord() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDecisionRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateIntent(t *testing.T) {
	if err := ValidateIntent(&CanonicalIntent{DataNeed: "saldo", ExtractionConfidence: 0.7}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateIntent(&CanonicalIntent{}); !errors.Is(err, ErrEmptyDataNeed) {
		t.Errorf("expected ErrEmptyDataNeed, got %v", err)
	}
	if err := ValidateIntent(&CanonicalIntent{DataNeed: "x", ExtractionConfidence: -1}); !errors.Is(err, ErrInvalidConfidence) {
		t.Errorf("expected ErrInvalidConfidence, got %v", err)
	}
	if err := ValidateIntent(nil); !errors.Is(err, ErrInvalidIntent) {
		t.Errorf("expected ErrInvalidIntent, got %v", err)
	}
}
