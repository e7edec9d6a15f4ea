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

import "time"

// Outcome is the human verdict on a recommendation.
type Outcome string

const (
	OutcomeApproved Outcome = "APPROVED"
	OutcomeRejected Outcome = "REJECTED"
	OutcomeModified Outcome = "MODIFIED"
)

// Category is a justification category from the closed rejection/approval vocabulary.
type Category string

// Rejection categories.
const (
	CategoryWrongGranularity  Category = "wrong_granularity"
	CategoryWrongProduct      Category = "wrong_product"
	CategoryWrongSegment      Category = "wrong_segment"
	CategoryWrongEntity       Category = "wrong_entity"
	CategoryOutdatedData      Category = "outdated_data"
	CategoryIncompleteData    Category = "incomplete_data"
	CategoryWrongScope        Category = "wrong_scope"
	CategoryPermissionDenied  Category = "permission_denied"
	CategoryTableDeprecated   Category = "table_deprecated"
	CategoryBetterAlternative Category = "better_alternative"
	CategoryConceptMismatch   Category = "concept_mismatch"
	CategoryQualityIssues     Category = "quality_issues"
	CategoryOther             Category = "other"
)

// Approval categories.
const (
	CategoryExactMatch         Category = "exact_match"
	CategoryGoodEnough         Category = "good_enough"
	CategoryOnlyOption         Category = "only_option"
	CategoryRecommendedByOwner Category = "recommended_by_owner"
	CategoryCertifiedSource    Category = "certified_source"
	CategoryAlreadyUsing       Category = "already_using"
)

// RejectionCategories lists the rejection vocabulary.
var RejectionCategories = []Category{
	CategoryWrongGranularity,
	CategoryWrongProduct,
	CategoryWrongSegment,
	CategoryWrongEntity,
	CategoryOutdatedData,
	CategoryIncompleteData,
	CategoryWrongScope,
	CategoryPermissionDenied,
	CategoryTableDeprecated,
	CategoryBetterAlternative,
	CategoryConceptMismatch,
	CategoryQualityIssues,
	CategoryOther,
}

// IsRejection reports whether c belongs to the rejection vocabulary.
func (c Category) IsRejection() bool {
	for _, r := range RejectionCategories {
		if r == c {
			return true
		}
	}
	return false
}

// DecisionRecord is an append-only record of one human decision on a recommendation.
type DecisionRecord struct {
	Id                    ID
	RequestId             string
	ConceptHash           string
	DomainId              string
	OwnerId               ID
	TableId               ID
	Outcome               Outcome
	ActualTableId         ID
	ConfidenceAtDecision  float64
	JustificationText     string
	JustificationCategory Category
	JustificationKeywords []string
	WasCloseMatch         bool
	SuggestedImprovement  string
	CreatedAt             time.Time

	// Query is the raw request text; learned expansions are keyed by it.
	Query string
}

// Approved reports whether the decision approved the recommendation.
func (d *DecisionRecord) Approved() bool {
	return d.Outcome == OutcomeApproved
}

// DataExistence classifies whether the requested data already exists.
type DataExistence string

const (
	DataExists        DataExistence = "EXISTS"
	DataUncertain     DataExistence = "UNCERTAIN"
	DataNeedsCreation DataExistence = "NEEDS_CREATION"
)

// Action is the recommended next step for the requester.
type Action string

const (
	ActionUseTable          Action = "USE_TABLE"
	ActionConfirmWithOwner  Action = "CONFIRM_WITH_OWNER"
	ActionCreateInvolvement Action = "CREATE_INVOLVEMENT"
)

// AmbiguityType classifies how the final ranking is ambiguous.
type AmbiguityType string

const (
	AmbiguityNone   AmbiguityType = "NONE"
	AmbiguityDomain AmbiguityType = "DOMAIN_AMBIGUOUS"
	AmbiguityTable  AmbiguityType = "TABLE_AMBIGUOUS"
)

// AmbiguityOption is one choice offered in a clarifying question.
type AmbiguityOption struct {
	Id      string `json:"id"`
	Label   string `json:"label"`
	TableId ID     `json:"table_id"`
}

// AmbiguityResult describes whether a clarifying question is needed.
type AmbiguityResult struct {
	Type               AmbiguityType     `json:"type"`
	IsAmbiguous        bool              `json:"is_ambiguous"`
	ClarifyingQuestion string            `json:"clarifying_question,omitempty"`
	Options            []AmbiguityOption `json:"options,omitempty"`
}
