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
	"fmt"
	"strings"
)

// ValidateTable validates a Table according to catalog rules.
//
// Validation rules:
//   - Id must be non-zero
//   - Name must not be blank
//   - DataLayer must be empty, SoR, SoT or Spec
//
// NOT validated (filled in by enrichment):
//   - Keywords
func ValidateTable(table *Table) error {
	if table == nil {
		return fmt.Errorf("%w: table is nil", ErrRecordInvalid)
	}
	if table.Id == 0 {
		return fmt.Errorf("%w: %w", ErrRecordInvalid, ErrMissingTableID)
	}
	if strings.TrimSpace(table.Name) == "" {
		return fmt.Errorf("%w: %w", ErrRecordInvalid, ErrMissingTableName)
	}
	if err := ValidateDataLayer(table.DataLayer); err != nil {
		return fmt.Errorf("%w: %w", ErrRecordInvalid, err)
	}
	return nil
}

// ValidateDataLayer validates that a DataLayer has a known value.
func ValidateDataLayer(layer DataLayer) error {
	switch layer {
	case DataLayerNone, DataLayerSoR, DataLayerSoT, DataLayerSpec:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDataLayer, string(layer))
}

// ValidateOutcome validates that an Outcome has a known value.
func ValidateOutcome(outcome Outcome) error {
	switch outcome {
	case OutcomeApproved, OutcomeRejected, OutcomeModified:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidOutcome, string(outcome))
}

// ValidateDecisionRecord validates a DecisionRecord before it is appended to the log.
func ValidateDecisionRecord(record *DecisionRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidDecision)
	}
	if record.ConceptHash == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDecision, ErrEmptyConceptHash)
	}
	if err := ValidateOutcome(record.Outcome); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDecision, err)
	}
	if record.ConfidenceAtDecision < 0 || record.ConfidenceAtDecision > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidDecision, ErrInvalidConfidence)
	}
	return nil
}

// ValidateIntent validates a CanonicalIntent produced by an extractor.
func ValidateIntent(intent *CanonicalIntent) error {
	if intent == nil {
		return fmt.Errorf("%w: intent is nil", ErrInvalidIntent)
	}
	if strings.TrimSpace(intent.DataNeed) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidIntent, ErrEmptyDataNeed)
	}
	if intent.ExtractionConfidence < 0 || intent.ExtractionConfidence > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidIntent, ErrInvalidConfidence)
	}
	return nil
}
