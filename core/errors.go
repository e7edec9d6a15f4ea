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

import "errors"

// Domain validation errors
var (
	// ErrRecordInvalid indicates a table record failed validation.
	ErrRecordInvalid = errors.New("invalid table record")

	// ErrMissingTableID indicates the table id is zero.
	ErrMissingTableID = errors.New("table id is required")

	// ErrMissingTableName indicates the table name is empty.
	ErrMissingTableName = errors.New("table name is required")

	// ErrInvalidDataLayer indicates an unknown data layer value.
	ErrInvalidDataLayer = errors.New("invalid data layer")

	// ErrInvalidDecision indicates a DecisionRecord failed validation.
	ErrInvalidDecision = errors.New("invalid decision record")

	// ErrInvalidOutcome indicates an unknown outcome value.
	ErrInvalidOutcome = errors.New("invalid outcome")

	// ErrEmptyConceptHash indicates the decision has no concept hash.
	ErrEmptyConceptHash = errors.New("concept hash cannot be empty")

	// ErrInvalidIntent indicates a CanonicalIntent failed validation.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrEmptyDataNeed indicates the intent carries no data need.
	ErrEmptyDataNeed = errors.New("data need cannot be empty")

	// ErrInvalidConfidence indicates a confidence outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrCorruptRecord indicates an encoded record could not be decoded.
	ErrCorruptRecord = errors.New("corrupt encoded record")
)
