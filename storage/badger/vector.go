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

package badger

import (
	"context"
	"errors"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

// VectorStore implements storage.VectorStore for BadgerDB.
// Entries of one sub-index share the "vec:<name>:" key prefix and queries
// scan that prefix computing cosine distances.
type VectorStore struct {
	backend *Backend
	name    string
	prefix  []byte
}

var _ storage.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a named vector sub-index on top of backend.
func NewVectorStore(backend *Backend, name string) *VectorStore {
	return &VectorStore{
		backend: backend,
		name:    name,
		prefix:  makeVectorPrefix(name),
	}
}

// Name returns the sub-index name.
func (s *VectorStore) Name() string {
	return s.name
}

// Close is a no-op; the backend owns the database handle.
func (s *VectorStore) Close() error {
	return nil
}

// Upsert stores or overwrites the entry for id.
func (s *VectorStore) Upsert(ctx context.Context, id core.ID, vector []float32, document string, metadata *core.Table) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(vector) == 0 {
		return storage.ErrEmptyVector
	}
	entry := &storage.VectorEntry{
		Id:       id,
		Vector:   vector,
		Document: document,
		Metadata: metadata,
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeVectorKey(s.name, id), storage.MarshalVectorEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Query returns up to k entries nearest to vector.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int, filter *storage.Filter) ([]*storage.Hit, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if len(vector) == 0 {
		return nil, storage.ErrEmptyVector
	}
	if k <= 0 {
		return nil, storage.ErrInvalidQuery
	}

	var hits []*storage.Hit
	err := s.scan(ctx, func(entry *storage.VectorEntry) error {
		if !filter.Matches(entry.Metadata) {
			return nil
		}
		hits = append(hits, &storage.Hit{
			Id:       entry.Id,
			Distance: cosineDistance(vector, entry.Vector),
			Metadata: entry.Metadata,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(hits, func(a, b *storage.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes the given ids.
func (s *VectorStore) Delete(ctx context.Context, ids ...core.ID) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(ids) == 0 {
		return nil
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeVectorKey(s.name, id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Get returns metadata for the ids that exist.
func (s *VectorStore) Get(ctx context.Context, ids ...core.ID) ([]*core.Table, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	tables := make([]*core.Table, 0, len(ids))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			item, err := tx.Get(makeVectorKey(s.name, id))
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}
			err = item.Value(func(val []byte) error {
				entry, err := storage.UnmarshalVectorEntry(val)
				if err != nil {
					return err
				}
				tables = append(tables, entry.Metadata)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return tables, err
}

// List returns metadata in id order. A non-positive limit returns everything after offset.
func (s *VectorStore) List(ctx context.Context, limit, offset int) ([]*core.Table, error) {
	if s.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var tables []*core.Table
	skipped := 0
	errStop := errors.New("stop")
	err := s.scan(ctx, func(entry *storage.VectorEntry) error {
		if skipped < offset {
			skipped++
			return nil
		}
		tables = append(tables, entry.Metadata)
		if limit > 0 && len(tables) >= limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return tables, nil
}

// Count returns the number of entries using a keys-only iteration.
func (s *VectorStore) Count(ctx context.Context) (int, error) {
	if s.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = s.prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// ClearAll drops every entry of the sub-index.
func (s *VectorStore) ClearAll(ctx context.Context) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.DropPrefix(s.prefix)
}

// scan visits every entry of the sub-index in key order.
func (s *VectorStore) scan(ctx context.Context, fn func(entry *storage.VectorEntry) error) error {
	return s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Seek(s.prefix); it.ValidForPrefix(s.prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var entry *storage.VectorEntry
			err := it.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(entry); err != nil {
				return err
			}
		}
		return nil
	}, false)
}
