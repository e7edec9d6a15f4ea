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
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/retrieval"
	"github.com/poiesic/datafinder/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxAttempts is the number of tries per engine write.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the first backoff delay between tries.
	DefaultBaseDelay = 200 * time.Millisecond
	// DefaultConcurrency is the number of engine writes in flight.
	DefaultConcurrency = 4
)

// Indexer is the part of the retrieval engine a sync writes to.
type Indexer interface {
	IndexTable(ctx context.Context, table *core.Table) error
	Delete(ctx context.Context, id core.ID) error
	List(ctx context.Context, limit, offset int) ([]*core.Table, error)
	Count(ctx context.Context) (int, error)
}

var _ Indexer = (*retrieval.Engine)(nil)

// ChangeType classifies a table id after diffing.
type ChangeType string

const (
	ChangeInsert    ChangeType = "INSERT"
	ChangeUpdate    ChangeType = "UPDATE"
	ChangeDelete    ChangeType = "DELETE"
	ChangeUnchanged ChangeType = "UNCHANGED"
)

// Change is one detected difference.
type Change struct {
	Id        core.ID    `json:"id"`
	Name      string     `json:"name"`
	Type      ChangeType `json:"type"`
	OldDigest string     `json:"old_digest,omitempty"`
	NewDigest string     `json:"new_digest,omitempty"`
}

// SyncOptions controls a single sync.
type SyncOptions struct {
	// ApplyDeletes removes indexed tables missing from the snapshot.
	ApplyDeletes bool
	// DryRun classifies changes without writing anything.
	DryRun bool
}

// Result summarizes a sync. On a dry run the counts are the detected
// changes; otherwise they are the changes applied.
type Result struct {
	Success   bool          `json:"success"`
	Inserts   int           `json:"inserts"`
	Updates   int           `json:"updates"`
	Deletes   int           `json:"deletes"`
	Unchanged int           `json:"unchanged"`
	Errors    []string      `json:"errors,omitempty"`
	Changes   []Change      `json:"changes,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// TotalChanges returns inserts + updates + deletes.
func (r *Result) TotalChanges() int {
	return r.Inserts + r.Updates + r.Deletes
}

// Syncer diffs catalog snapshots against the indexed state and applies the
// differences. Concurrent syncs against the same index are not supported.
type Syncer struct {
	indexer     Indexer
	digests     storage.DigestRepository
	maxAttempts int
	baseDelay   time.Duration
	concurrency int
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "cdc")
		return nil
	}
}

// WithRetry sets the attempts per engine write and the first backoff delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *Syncer) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		s.maxAttempts = maxAttempts
		s.baseDelay = baseDelay
		return nil
	}
}

// WithConcurrency sets how many engine writes run at once.
func WithConcurrency(n int) Option {
	return func(s *Syncer) error {
		if n <= 0 {
			return ErrInvalidConcurrency
		}
		s.concurrency = n
		return nil
	}
}

// WithProgress reports apply progress to w. Nil disables reporting.
func WithProgress(w io.Writer) Option {
	return func(s *Syncer) error {
		s.progress = w
		return nil
	}
}

// NewSyncer creates a Syncer writing to indexer and tracking digests in repo.
func NewSyncer(indexer Indexer, repo storage.DigestRepository, opts ...Option) (*Syncer, error) {
	if indexer == nil {
		return nil, ErrIndexerRequired
	}
	if repo == nil {
		return nil, ErrDigestRepositoryRequired
	}
	s := &Syncer{
		indexer:     indexer,
		digests:     repo,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		concurrency: DefaultConcurrency,
		logger:      slog.Default().With("component", "cdc"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Preview classifies the snapshot, deletes included, without applying it.
func (s *Syncer) Preview(ctx context.Context, records []*Record) (*Result, error) {
	return s.Sync(ctx, records, SyncOptions{ApplyDeletes: true, DryRun: true})
}

// Sync diffs records against the previously observed state and applies the
// differences. Invalid records and failed writes are reported in the result;
// the returned error is reserved for failures reading the current state.
func (s *Syncer) Sync(ctx context.Context, records []*Record, opts SyncOptions) (*Result, error) {
	start := time.Now()
	result := &Result{}

	previous, names, err := s.observed(ctx)
	if err != nil {
		return nil, err
	}

	incoming := make(map[core.ID]*Record, len(records))
	order := make([]core.ID, 0, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		if _, dup := incoming[r.Id]; dup {
			result.Errors = append(result.Errors, fmt.Sprintf("%v: %d", ErrDuplicateRecord, r.Id))
			continue
		}
		incoming[r.Id] = r
		order = append(order, r.Id)
	}

	var (
		changes []Change
		current = make(map[core.ID]string, len(order))
	)
	for _, id := range order {
		r := incoming[id]
		digest := r.Digest()
		current[id] = digest
		old, seen := previous[id]
		switch {
		case !seen:
			changes = append(changes, Change{Id: id, Name: r.Name, Type: ChangeInsert, NewDigest: digest})
		case old != digest:
			changes = append(changes, Change{Id: id, Name: r.Name, Type: ChangeUpdate, OldDigest: old, NewDigest: digest})
		default:
			result.Unchanged++
		}
	}
	if opts.ApplyDeletes {
		var gone []core.ID
		for id := range previous {
			if _, ok := incoming[id]; !ok {
				gone = append(gone, id)
			}
		}
		slices.Sort(gone)
		for _, id := range gone {
			changes = append(changes, Change{Id: id, Name: names[id], Type: ChangeDelete, OldDigest: previous[id]})
		}
	}
	result.Changes = changes

	if opts.DryRun {
		for _, c := range changes {
			result.count(c.Type)
		}
		result.Success = len(result.Errors) == 0
		result.Duration = time.Since(start)
		s.logger.Info("sync preview", "inserts", result.Inserts, "updates", result.Updates,
			"deletes", result.Deletes, "unchanged", result.Unchanged)
		return result, nil
	}

	applied := s.apply(ctx, changes, incoming, result)

	// Unchanged ids backfilled from engine metadata get their digest stored too.
	save := make(map[core.ID]string)
	var removed []core.ID
	for id, digest := range current {
		if stored, ok := previous[id]; ok && stored == digest {
			save[id] = digest
		}
	}
	for _, c := range applied {
		if c.Type == ChangeDelete {
			removed = append(removed, c.Id)
		} else {
			save[c.Id] = c.NewDigest
		}
	}
	if len(save) > 0 {
		if err := s.digests.SaveDigests(ctx, save); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("save digests: %v", err))
		}
	}
	if len(removed) > 0 {
		if err := s.digests.DeleteDigests(ctx, removed...); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("delete digests: %v", err))
		}
	}

	result.Success = len(result.Errors) == 0
	result.Duration = time.Since(start)
	s.logger.Info("sync complete", "inserts", result.Inserts, "updates", result.Updates,
		"deletes", result.Deletes, "unchanged", result.Unchanged, "errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// observed loads the stored digests and the indexed tables concurrently.
// Indexed tables without a stored digest are digested from their metadata.
func (s *Syncer) observed(ctx context.Context) (map[core.ID]string, map[core.ID]string, error) {
	var (
		g       errgroup.Group
		digests map[core.ID]string
		tables  []*core.Table
	)
	g.Go(func() error {
		var err error
		digests, err = s.digests.LoadDigests(ctx)
		if err != nil {
			return fmt.Errorf("load digests: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tables, err = s.indexer.List(ctx, 0, 0)
		if err != nil {
			return fmt.Errorf("list indexed tables: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	previous := make(map[core.ID]string, max(len(digests), len(tables)))
	for id, d := range digests {
		previous[id] = d
	}
	names := make(map[core.ID]string, len(tables))
	for _, t := range tables {
		names[t.Id] = t.Name
		if _, ok := previous[t.Id]; !ok {
			previous[t.Id] = Digest(t)
		}
	}
	return previous, names, nil
}

// apply writes changes to the engine and returns the ones that succeeded.
func (s *Syncer) apply(ctx context.Context, changes []Change, incoming map[core.ID]*Record, result *Result) []Change {
	var tracker *ProgressTracker
	if s.progress != nil && len(changes) > 0 {
		tracker = NewProgressTracker(s.progress, len(changes), max(len(changes)/20, 1))
		tracker.Start()
		defer tracker.Finish()
	}

	var (
		mu      sync.Mutex
		applied []Change
		g       errgroup.Group
	)
	g.SetLimit(s.concurrency)
	for _, c := range changes {
		g.Go(func() error {
			write := func() error {
				if c.Type == ChangeDelete {
					return s.indexer.Delete(ctx, c.Id)
				}
				return s.indexer.IndexTable(ctx, incoming[c.Id].ToTable())
			}
			err := RetryWithBackoff(ctx, s.logger, write, s.maxAttempts, s.baseDelay)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.logger.Error("failed to apply change", "id", c.Id, "type", c.Type, "err", err)
				result.Errors = append(result.Errors, fmt.Sprintf("%s %d: %v", c.Type, c.Id, err))
				return nil
			}
			result.count(c.Type)
			applied = append(applied, c)
			if tracker != nil {
				tracker.Increment(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return applied
}

func (r *Result) count(t ChangeType) {
	switch t {
	case ChangeInsert:
		r.Inserts++
	case ChangeUpdate:
		r.Updates++
	case ChangeDelete:
		r.Deletes++
	case ChangeUnchanged:
		r.Unchanged++
	}
}
