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

package pipeline

import (
	"errors"
	"fmt"

	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/retrieval"
)

// StateVersion is the layout version of State.
const StateVersion = 1

// OutputMode selects the shape of the final answer.
type OutputMode string

const (
	// OutputSingle returns the single best domain, owner and table.
	OutputSingle OutputMode = "SINGLE"
	// OutputRanking returns ranked lists of domains, owners and tables.
	OutputRanking OutputMode = "RANKING"
)

// Stage names, in execution order.
const (
	StageIntent    = "intent"
	StageDomains   = "domains"
	StageOwners    = "owners"
	StageTables    = "tables"
	StageColumns   = "columns"
	StageMerge     = "merge"
	StageRerank    = "rerank"
	StageAmbiguity = "ambiguity"
	StageDecide    = "decide"
	StageFeedback  = "feedback"
)

// Request is one data request.
type Request struct {
	// RequestId identifies the request. A UUID is generated when empty.
	RequestId string
	Query     string
	Mode      OutputMode
	// VariableName and VariableType describe the variable the requester
	// needs. Variable name tokens drive the column search.
	VariableName string
	VariableType string
	Context      map[string]string
}

// StageError records the failure of one stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStageFailed, e.Stage, e.Err)
}

func (e *StageError) Unwrap() []error {
	return []error{ErrStageFailed, e.Err}
}

// SingleOutput is the answer of OutputSingle requests.
type SingleOutput struct {
	Domain           *core.Domain       `json:"domain,omitempty"`
	Owner            *core.Owner        `json:"owner,omitempty"`
	Table            *core.Table        `json:"table,omitempty"`
	DomainConfidence float64            `json:"domain_confidence"`
	OwnerConfidence  float64            `json:"owner_confidence"`
	TableConfidence  *float64           `json:"table_confidence,omitempty"`
	DataExistence    core.DataExistence `json:"data_existence"`
	Action           core.Action        `json:"action"`
	Reasoning        string             `json:"reasoning"`
}

// RankingOutput is the answer of OutputRanking requests.
type RankingOutput struct {
	Domains            []*core.DomainMatch `json:"domains"`
	Owners             []*core.OwnerMatch  `json:"owners"`
	Tables             []*core.TableMatch  `json:"tables"`
	Summary            string              `json:"summary"`
	ClarifyingQuestion string              `json:"clarifying_question,omitempty"`
}

// State is the request record threaded through every stage. Each stage
// reads the fields of earlier stages and treats absent ones as uncertainty.
type State struct {
	Version      int               `json:"version"`
	RequestId    string            `json:"request_id"`
	Mode         OutputMode        `json:"output_mode"`
	Query        string            `json:"raw_query"`
	VariableName string            `json:"variable_name,omitempty"`
	VariableType string            `json:"variable_type,omitempty"`
	Context      map[string]string `json:"context,omitempty"`

	// intent
	Intent      *core.CanonicalIntent `json:"canonical_intent,omitempty"`
	ConceptHash string                `json:"concept_hash,omitempty"`

	// domains and owners
	Retrieved     []*retrieval.Result  `json:"-"`
	SearchBand    retrieval.Confidence `json:"search_confidence,omitempty"`
	SearchMessage string               `json:"search_message,omitempty"`
	Domains       []*core.DomainMatch  `json:"matched_domains"`
	Owners        []*core.OwnerMatch   `json:"matched_owners"`

	// tables, columns, merge and rerank
	Tables   []*core.TableMatch `json:"matched_tables"`
	Columns  []*core.TableMatch `json:"column_search_results"`
	Ranking  []*core.TableMatch `json:"ranking"`
	Reranked bool               `json:"llm_reranked"`

	// ambiguity and decide
	Ambiguity         *core.AmbiguityResult `json:"ambiguity,omitempty"`
	BestDomain        *core.Domain          `json:"best_domain,omitempty"`
	BestOwner         *core.Owner           `json:"best_owner,omitempty"`
	BestTable         *core.Table           `json:"best_table,omitempty"`
	DataExistence     core.DataExistence    `json:"data_existence"`
	Action            core.Action           `json:"action"`
	OverallConfidence float64               `json:"overall_confidence"`
	Single            *SingleOutput         `json:"single_output,omitempty"`
	RankingOutput     *RankingOutput        `json:"ranking_output,omitempty"`

	Errors []*StageError `json:"-"`
}

func newState(req *Request, requestID string) *State {
	return &State{
		Version:      StateVersion,
		RequestId:    requestID,
		Mode:         req.Mode,
		Query:        req.Query,
		VariableName: req.VariableName,
		VariableType: req.VariableType,
		Context:      req.Context,
	}
}

func (s *State) fail(stage string, err error) {
	s.Errors = append(s.Errors, &StageError{Stage: stage, Err: err})
}

// Failed reports whether stage recorded an error.
func (s *State) Failed(stage string) bool {
	for _, e := range s.Errors {
		if e.Stage == stage {
			return true
		}
	}
	return false
}

// Err joins the recorded stage errors. It is nil when every stage succeeded.
func (s *State) Err() error {
	errs := make([]error, len(s.Errors))
	for i, e := range s.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// domainScore returns the match score of the domain table belongs to.
func (s *State) domainScore(t *core.Table) float64 {
	for _, m := range s.Domains {
		if tableInDomain(t, m.Domain) {
			return m.Score
		}
	}
	return 0
}

// ownerScore returns the match score of the owner of table.
func (s *State) ownerScore(t *core.Table) float64 {
	for _, m := range s.Owners {
		if ownedBy(t, m.Owner) {
			return m.Score
		}
	}
	return 0
}
