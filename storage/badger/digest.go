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

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/datafinder/core"
	"github.com/poiesic/datafinder/storage"
)

// DigestRepository implements storage.DigestRepository for BadgerDB.
type DigestRepository struct {
	backend *Backend
}

var _ storage.DigestRepository = (*DigestRepository)(nil)

// NewDigestRepository creates a new DigestRepository.
func NewDigestRepository(backend *Backend) *DigestRepository {
	return &DigestRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns the database handle.
func (r *DigestRepository) Close() error {
	return nil
}

// SaveDigests persists digests in a single transaction.
func (r *DigestRepository) SaveDigests(ctx context.Context, digests map[core.ID]string) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(digests) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for id, digest := range digests {
			if err := tx.Set(makeDigestKey(id), storage.MarshalDigest(digest)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteDigests removes the digests of the given ids.
func (r *DigestRepository) DeleteDigests(ctx context.Context, ids ...core.ID) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	if len(ids) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeDigestKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// LoadDigests returns every stored digest keyed by table id.
func (r *DigestRepository) LoadDigests(ctx context.Context) (map[core.ID]string, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	digests := make(map[core.ID]string)
	prefix := []byte(digestPrefix + ":")
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := tx.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := digestIDFromKey(item.Key())
			err := item.Value(func(val []byte) error {
				digest, err := storage.UnmarshalDigest(val)
				if err != nil {
					return err
				}
				digests[id] = digest
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return digests, err
}
