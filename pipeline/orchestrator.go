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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/poiesic/datafinder/ai"
	"github.com/poiesic/datafinder/ambiguity"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/feedback"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/poiesic/datafinder/storage"
)

// Retriever is the table search surface the stages need.
type Retriever interface {
	Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]*retrieval.Result, error)
	SearchWithDomainFallback(ctx context.Context, query string, opts *retrieval.FallbackOptions) (*retrieval.FallbackResult, error)
	TokenCandidates(tokens []string) []retrieval.TokenHit
	Get(ctx context.Context, id core.ID) (*core.Table, error)
}

var _ Retriever = (*retrieval.Engine)(nil)

// Learner learns query expansions from approved decisions.
type Learner interface {
	LearnExpansion(query string, tableKeywords []string)
}

// Orchestrator runs requests through the stage sequence. It holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	retriever Retriever
	extractor ai.IntentExtractor
	reranker  ai.Reranker
	detector  *ambiguity.Detector
	catalog   *Catalog
	scores    *feedback.Store
	decisions storage.DecisionRepository
	learner   Learner
	config    Config
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger.With("component", "pipeline")
		return nil
	}
}

// WithConfig replaces the default thresholds.
func WithConfig(config Config) Option {
	return func(o *Orchestrator) error {
		if err := config.Validate(); err != nil {
			return err
		}
		o.config = config
		return nil
	}
}

// WithCatalog sets the domain, owner and table snapshot.
func WithCatalog(catalog *Catalog) Option {
	return func(o *Orchestrator) error {
		o.catalog = catalog
		return nil
	}
}

// WithFeedback enables historical scoring and decision recording.
func WithFeedback(scores *feedback.Store) Option {
	return func(o *Orchestrator) error {
		o.scores = scores
		return nil
	}
}

// WithDecisions stores pending decisions so they can be resolved later.
func WithDecisions(decisions storage.DecisionRepository) Option {
	return func(o *Orchestrator) error {
		o.decisions = decisions
		return nil
	}
}

// WithLearner sets the vocabulary taught by resolved decisions.
func WithLearner(learner Learner) Option {
	return func(o *Orchestrator) error {
		o.learner = learner
		return nil
	}
}

// NewOrchestrator creates an orchestrator over retriever and provider's
// intent extractor and reranker.
func NewOrchestrator(retriever Retriever, provider ai.Provider, opts ...Option) (*Orchestrator, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	o := &Orchestrator{
		retriever: retriever,
		extractor: provider.IntentExtractor(),
		reranker:  provider.Reranker(),
		config:    DefaultConfig(),
		logger:    slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	detector, err := ambiguity.NewDetector(
		ambiguity.WithMargin(o.config.AmbiguityMargin),
		ambiguity.WithLogger(o.logger),
	)
	if err != nil {
		return nil, err
	}
	o.detector = detector
	return o, nil
}

// Run resolves req. Stage failures are recorded in the returned state; an
// error is returned only for an invalid request.
func (o *Orchestrator) Run(ctx context.Context, req *Request) (*State, error) {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	mode := req.Mode
	if mode == "" {
		mode = OutputSingle
	}
	if mode != OutputSingle && mode != OutputRanking {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOutputMode, string(mode))
	}
	requestID := req.RequestId
	if requestID == "" {
		requestID = uuid.NewString()
	}

	st := newState(req, requestID)
	st.Mode = mode
	st.Query = strings.TrimSpace(req.Query)
	logger := o.logger.With("request_id", requestID)
	logger.Info("resolving request", "query", st.Query, "mode", mode)

	o.runStage(ctx, st, StageIntent, o.extractIntent)
	o.runStage(ctx, st, StageDomains, o.searchDomains)
	o.runStage(ctx, st, StageOwners, o.searchOwners)
	o.fork(ctx, st)
	o.runStage(ctx, st, StageMerge, o.merge)
	o.runStage(ctx, st, StageRerank, o.rerank)
	o.runStage(ctx, st, StageAmbiguity, o.detectAmbiguity)
	o.decide(st)
	o.runStage(ctx, st, StageFeedback, o.savePending)

	logger.Info("request resolved",
		"data_existence", st.DataExistence,
		"action", st.Action,
		"confidence", st.OverallConfidence,
		"ambiguous", st.Ambiguity != nil && st.Ambiguity.IsAmbiguous,
		"failed_stages", len(st.Errors))
	return st, nil
}

// runStage runs fn unless the request was cancelled, recording any failure.
func (o *Orchestrator) runStage(ctx context.Context, st *State, name string, fn func(context.Context, *State) error) {
	if err := ctx.Err(); err != nil {
		st.fail(name, err)
		return
	}
	if err := fn(ctx, st); err != nil {
		o.logger.Warn("stage failed", "request_id", st.RequestId, "stage", name, "err", err)
		st.fail(name, err)
	}
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.config.StageTimeout)
}

// Resolve records the verdict on the pending decision of requestID.
// actualTableID names the table the requester used instead, if any.
// Approved and modified decisions teach the learner the request's query.
func (o *Orchestrator) Resolve(ctx context.Context, requestID string, outcome core.Outcome, justification string, actualTableID core.ID) (*core.DecisionRecord, error) {
	if o.decisions == nil {
		return nil, ErrDecisionRepositoryRequired
	}
	if err := core.ValidateOutcome(outcome); err != nil {
		return nil, err
	}
	pending, err := o.decisions.LoadPending(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending decision %s: %w", requestID, err)
	}

	record := *pending
	record.Outcome = outcome
	record.JustificationText = strings.TrimSpace(justification)
	record.ActualTableId = actualTableID

	var stored *core.DecisionRecord
	if o.scores != nil {
		stored, err = o.scores.Record(ctx, &record)
	} else {
		stored, err = o.decisions.AppendDecision(ctx, &record)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record decision %s: %w", requestID, err)
	}
	if err := o.decisions.DeletePending(ctx, requestID); err != nil {
		o.logger.Warn("failed to delete pending decision", "request_id", requestID, "err", err)
	}

	o.learn(ctx, stored)
	return stored, nil
}

func (o *Orchestrator) learn(ctx context.Context, record *core.DecisionRecord) {
	if o.learner == nil || record.Query == "" {
		return
	}
	var target core.ID
	switch record.Outcome {
	case core.OutcomeApproved:
		target = record.TableId
		if record.ActualTableId != 0 {
			target = record.ActualTableId
		}
	case core.OutcomeModified:
		target = record.ActualTableId
	}
	if target == 0 {
		return
	}
	table, err := o.table(ctx, target)
	if err != nil {
		o.logger.Warn("cannot learn from decision, table unavailable", "table", target, "err", err)
		return
	}
	if len(table.Keywords) > 0 {
		o.learner.LearnExpansion(record.Query, table.Keywords)
	}
}

// table looks id up in the catalog, then in the retriever.
func (o *Orchestrator) table(ctx context.Context, id core.ID) (*core.Table, error) {
	if t := o.catalog.Table(id); t != nil {
		return t, nil
	}
	t, err := o.retriever.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, storage.ErrNotFound
	}
	return t, nil
}

// Pending returns the pending decision of requestID.
func (o *Orchestrator) Pending(ctx context.Context, requestID string) (*core.DecisionRecord, error) {
	if o.decisions == nil {
		return nil, ErrDecisionRepositoryRequired
	}
	record, err := o.decisions.LoadPending(ctx, requestID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("no pending decision for request %s: %w", requestID, err)
	}
	return record, err
}
