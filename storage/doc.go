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

// Package storage provides the storage abstraction layer for datafinder.
//
// This package defines repository interfaces that decouple storage implementation
// from retrieval and feedback logic. The badger sub-package provides the
// BadgerDB implementation; tests use its in-memory mode.
//
// # Architecture
//
//   - VectorStore: one named vector sub-index (name, description, keywords),
//     keyed by table id, carrying the table metadata snapshot
//   - DecisionRepository: append-only decision log plus pending decisions
//   - DigestRepository: change-detection digests per table id
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	names := badger.NewVectorStore(backend, "name")
//	hits, err := names.Query(ctx, vector, 10, &storage.Filter{Domain: "Comercial"})
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support.
package storage
