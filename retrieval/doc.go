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

// Package retrieval implements hybrid table search over a data catalog.
//
// Every table is indexed three times, once per text view (name, description
// and keywords), in separate vector sub-indices. An in-memory inverted index
// maps tokens to table ids. A search queries the three sub-indices
// concurrently and fuses their similarities with a token-overlap score:
//
//	combined = 0.30 name + 0.20 description + 0.25 keywords + 0.25 overlap
//
// Query expansion feeds the overlap score only; the embedding is always
// computed from the original query. Expansion, enrichment and reranking are
// optional and every failure falls back to the previous stage's result.
package retrieval
