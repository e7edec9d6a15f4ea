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

package retrieval

import (
	"slices"
	"sync"

	"github.com/poiesic/datafinder/core"
)

// invertedIndex maps lower-cased tokens to the ids of tables containing them.
// It lives in memory only and is rebuilt per upsert.
type invertedIndex struct {
	mu     sync.RWMutex
	tokens map[string]map[core.ID]struct{}
	byID   map[core.ID][]string
}

func newInvertedIndex() *invertedIndex {
	return &invertedIndex{
		tokens: make(map[string]map[core.ID]struct{}),
		byID:   make(map[core.ID][]string),
	}
}

// indexTokens returns the distinct tokens of the fields a table is indexed by.
func indexTokens(table *core.Table) []string {
	var tokens []string
	add := func(text string) {
		for _, t := range core.Tokenize(text) {
			if !slices.Contains(tokens, t) {
				tokens = append(tokens, t)
			}
		}
	}
	add(table.Name)
	add(table.DisplayName)
	for _, kw := range table.Keywords {
		add(kw)
	}
	add(table.Domain())
	add(table.OwnerName)
	return tokens
}

// add indexes table, replacing any tokens previously indexed for its id.
func (ix *invertedIndex) add(table *core.Table) {
	tokens := indexTokens(table)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(table.Id)
	for _, t := range tokens {
		ids, ok := ix.tokens[t]
		if !ok {
			ids = make(map[core.ID]struct{})
			ix.tokens[t] = ids
		}
		ids[table.Id] = struct{}{}
	}
	ix.byID[table.Id] = tokens
}

func (ix *invertedIndex) remove(id core.ID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.removeLocked(id)
}

func (ix *invertedIndex) removeLocked(id core.ID) {
	for _, t := range ix.byID[id] {
		ids := ix.tokens[t]
		delete(ids, id)
		if len(ids) == 0 {
			delete(ix.tokens, t)
		}
	}
	delete(ix.byID, id)
}

func (ix *invertedIndex) reset() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.tokens = make(map[string]map[core.ID]struct{})
	ix.byID = make(map[core.ID][]string)
}

// lookup returns, per table id, how many of the given tokens it contains.
func (ix *invertedIndex) lookup(tokens []string) map[core.ID]int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	hits := make(map[core.ID]int)
	for _, t := range tokens {
		for id := range ix.tokens[t] {
			hits[id]++
		}
	}
	return hits
}

func (ix *invertedIndex) size() (tokens, tables int) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.tokens), len(ix.byID)
}
