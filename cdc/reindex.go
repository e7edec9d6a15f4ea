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
	"time"

	"github.com/poiesic/datafinder/core"
)

// DefaultBatchSize is the number of tables fetched per page by Reindex.
const DefaultBatchSize = 100

// tableIterator pages through the indexed tables in id order.
type tableIterator struct {
	indexer   Indexer
	batchSize int
}

func newTableIterator(indexer Indexer, batchSize int) *tableIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &tableIterator{indexer: indexer, batchSize: batchSize}
}

// ForEach calls fn with each page until the index is exhausted, fn fails or
// ctx is done.
func (it *tableIterator) ForEach(ctx context.Context, fn func([]*core.Table) error) error {
	for offset := 0; ; offset += it.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := it.indexer.List(ctx, it.batchSize, offset)
		if err != nil {
			return fmt.Errorf("list tables at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < it.batchSize {
			return nil
		}
	}
}

// Reindex re-embeds every indexed table from its stored metadata, for
// instance after the embedding model changed. Each table counts as an
// update. Stored digests are left alone since the metadata does not change.
func (s *Syncer) Reindex(ctx context.Context, batchSize int) (*Result, error) {
	start := time.Now()
	result := &Result{}

	var tracker *ProgressTracker
	if s.progress != nil {
		total, err := s.indexer.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("count tables: %w", err)
		}
		tracker = NewProgressTracker(s.progress, total, max(total/20, 1))
		tracker.Start()
		defer tracker.Finish()
	}

	err := newTableIterator(s.indexer, batchSize).ForEach(ctx, func(tables []*core.Table) error {
		for _, table := range tables {
			err := RetryWithBackoff(ctx, s.logger, func() error {
				return s.indexer.IndexTable(ctx, table)
			}, s.maxAttempts, s.baseDelay)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Error("failed to reindex table", "id", table.Id, "err", err)
				result.Errors = append(result.Errors, fmt.Sprintf("reindex %d: %v", table.Id, err))
				continue
			}
			result.Updates++
			if tracker != nil {
				tracker.Increment(1)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.Success = len(result.Errors) == 0
	result.Duration = time.Since(start)
	s.logger.Info("reindex complete", "tables", result.Updates, "errors", len(result.Errors), "duration", result.Duration)
	return result, nil
}
