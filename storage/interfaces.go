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

package storage

import (
	"context"

	"github.com/poiesic/datafinder/core"
)

// Repository is the base interface for all storage components.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// Filter restricts vector queries to matching metadata.
// A nil filter or empty Domain matches everything.
type Filter struct {
	// Domain matches either the table's domain name or its domain id.
	Domain string
}

// Matches reports whether the table passes the filter.
func (f *Filter) Matches(table *core.Table) bool {
	if f == nil || f.Domain == "" {
		return true
	}
	if table == nil {
		return false
	}
	return table.DomainName == f.Domain || table.DomainId == f.Domain
}

// Hit is a single vector query result.
type Hit struct {
	Id core.ID
	// Distance is the cosine distance in [0,2]; 0 means identical direction.
	Distance float64
	Metadata *core.Table
}

// VectorEntry is one stored row of a vector sub-index.
type VectorEntry struct {
	Id       core.ID
	Vector   []float32
	Document string
	Metadata *core.Table
}

// VectorStore is a named vector sub-index keyed by table id.
// Implementations must be safe for concurrent use.
type VectorStore interface {
	Repository

	// Name returns the sub-index name (e.g. "name", "description", "keywords").
	Name() string

	// Upsert inserts or overwrites the entry stored under id.
	Upsert(ctx context.Context, id core.ID, vector []float32, document string, metadata *core.Table) error

	// Query returns up to k entries nearest to vector, ordered by ascending distance.
	// Entries whose metadata fails filter are skipped.
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]*Hit, error)

	// Delete removes the given ids. Missing ids are ignored.
	Delete(ctx context.Context, ids ...core.ID) error

	// Get returns the metadata of the ids that exist, in request order.
	Get(ctx context.Context, ids ...core.ID) ([]*core.Table, error)

	// List returns metadata ordered by id, skipping offset entries.
	List(ctx context.Context, limit, offset int) ([]*core.Table, error)

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// ClearAll removes every entry of the sub-index.
	ClearAll(ctx context.Context) error
}

// DecisionRepository persists the append-only decision log and the decisions
// still awaiting a human verdict.
type DecisionRepository interface {
	Repository

	// AppendDecision stores a new decision. A sequence id is assigned and
	// CreatedAt is set when zero. Existing decisions are never rewritten.
	AppendDecision(ctx context.Context, record *core.DecisionRecord) (*core.DecisionRecord, error)

	// GetDecisions returns the decisions recorded for a (concept, table) pair in insertion order.
	GetDecisions(ctx context.Context, conceptHash string, tableID core.ID) ([]*core.DecisionRecord, error)

	// AllDecisions returns every recorded decision.
	AllDecisions(ctx context.Context) ([]*core.DecisionRecord, error)

	// SavePending stores a decision awaiting a verdict, keyed by request id.
	SavePending(ctx context.Context, record *core.DecisionRecord) error

	// LoadPending returns the pending decision of a request.
	// Returns ErrNotFound if none exists.
	LoadPending(ctx context.Context, requestID string) (*core.DecisionRecord, error)

	// DeletePending removes a pending decision. Missing requests are ignored.
	DeletePending(ctx context.Context, requestID string) error
}

// DigestRepository persists the change-detection digest last observed per table id.
type DigestRepository interface {
	Repository

	// SaveDigests stores or overwrites digests.
	SaveDigests(ctx context.Context, digests map[core.ID]string) error

	// DeleteDigests removes digests. Missing ids are ignored.
	DeleteDigests(ctx context.Context, ids ...core.ID) error

	// LoadDigests returns every stored digest.
	LoadDigests(ctx context.Context) (map[core.ID]string, error)
}
