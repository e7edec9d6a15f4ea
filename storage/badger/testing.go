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

import "github.com/poiesic/datafinder/storage"

// MemoryRepositories bundles the repositories of an in-memory backend for tests.
type MemoryRepositories struct {
	Backend   *Backend
	Vectors   map[string]storage.VectorStore
	Decisions storage.DecisionRepository
	Digests   storage.DigestRepository
}

// Close releases every repository and the backend.
func (m *MemoryRepositories) Close() error {
	if m.Decisions != nil {
		m.Decisions.Close()
	}
	return m.Backend.Close()
}

// NewMemoryRepositories creates in-memory repositories for testing.
// One vector store is created per name. Caller must call Close when done.
func NewMemoryRepositories(vectorNames ...string) (*MemoryRepositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	decisions, err := NewDecisionRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	repos := &MemoryRepositories{
		Backend:   backend,
		Vectors:   make(map[string]storage.VectorStore, len(vectorNames)),
		Decisions: decisions,
		Digests:   NewDigestRepository(backend),
	}
	for _, name := range vectorNames {
		repos.Vectors[name] = NewVectorStore(backend, name)
	}
	return repos, nil
}
