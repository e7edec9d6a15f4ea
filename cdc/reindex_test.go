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
	"bytes"
	"context"
	"slices"
	"testing"

	"github.com/poiesic/datafinder/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReindex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var buf bytes.Buffer
	s := f.syncer(t, WithProgress(&buf))

	_, err := s.Sync(ctx, snapshot(), SyncOptions{})
	require.NoError(t, err)
	before, err := f.digests.LoadDigests(ctx)
	require.NoError(t, err)

	enricher := f.provider.GetMockKeywordEnricher()
	enricher.EnrichKeywordsFunc = func(ctx context.Context, name, domain, description string, existing []string) ([]string, error) {
		if slices.Contains(existing, "reindexado") {
			return existing, nil
		}
		return append(slices.Clone(existing), "reindexado"), nil
	}
	calls := enricher.CallCount()
	buf.Reset()

	result, err := s.Reindex(ctx, 2)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Updates)
	assert.Equal(t, 3, enricher.CallCount()-calls)
	assert.Contains(t, buf.String(), "3/3")

	for _, id := range []core.ID{1, 2, 3} {
		table, err := f.engine.Get(ctx, id)
		require.NoError(t, err)
		assert.Contains(t, table.Keywords, "reindexado")
	}

	after, err := f.digests.LoadDigests(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReindex_Empty(t *testing.T) {
	f := newFixture(t)
	result, err := f.syncer(t).Reindex(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.Updates)
}

func TestReindex_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.syncer(t).Sync(ctx, snapshot(), SyncOptions{})
	require.NoError(t, err)
	cancel()

	_, err = f.syncer(t).Reindex(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
