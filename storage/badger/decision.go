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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

// DecisionRepository implements storage.DecisionRepository for BadgerDB.
type DecisionRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DecisionRepository = (*DecisionRepository)(nil)

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository(backend *Backend) (*DecisionRepository, error) {
	idSeq, err := backend.GetSequence(decisionIDSeq)
	if err != nil {
		return nil, err
	}

	return &DecisionRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DecisionRepository) Close() error {
	return r.idSeq.Release()
}

// AppendDecision stores a new decision under a freshly allocated sequence id.
func (r *DecisionRepository) AppendDecision(ctx context.Context, record *core.DecisionRecord) (*core.DecisionRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if err := core.ValidateDecisionRecord(record); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		record.Id = core.ID(nextID)
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now().UTC()
		}

		key := makeDecisionKey(record.ConceptHash, record.TableId, record.Id)
		if err := tx.Set(key, storage.MarshalDecisionRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetDecisions returns the decisions for a (concept, table) pair in insertion order.
func (r *DecisionRepository) GetDecisions(ctx context.Context, conceptHash string, tableID core.ID) ([]*core.DecisionRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return r.scan(ctx, makePartialDecisionKey(conceptHash, tableID))
}

// AllDecisions returns every recorded decision.
func (r *DecisionRepository) AllDecisions(ctx context.Context) ([]*core.DecisionRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return r.scan(ctx, []byte(decisionRecordPrefix+":"))
}

// SavePending stores a decision awaiting a verdict.
func (r *DecisionRepository) SavePending(ctx context.Context, record *core.DecisionRecord) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if record == nil || record.RequestId == "" {
		return storage.ErrInvalidQuery
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makePendingKey(record.RequestId), storage.MarshalDecisionRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadPending returns the pending decision of a request.
func (r *DecisionRepository) LoadPending(ctx context.Context, requestID string) (*core.DecisionRecord, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var record *core.DecisionRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makePendingKey(requestID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			record, unmarshalErr = storage.UnmarshalDecisionRecord(val)
			return unmarshalErr
		})
	}, false)
	return record, err
}

// DeletePending removes a pending decision.
func (r *DecisionRepository) DeletePending(ctx context.Context, requestID string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makePendingKey(requestID)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

func (r *DecisionRepository) scan(ctx context.Context, prefix []byte) ([]*core.DecisionRecord, error) {
	var records []*core.DecisionRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(val []byte) error {
				record, err := storage.UnmarshalDecisionRecord(val)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return records, err
}
