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

// Package pipeline resolves a natural-language data request into a domain,
// an owner and a table.
//
// An Orchestrator runs the request through a fixed sequence of stages over a
// single State value:
//
//	intent -> domains -> owners -> {tables, columns} -> merge -> rerank -> ambiguity -> decide -> feedback
//
// The tables and columns stages run concurrently and join at merge. A stage
// that fails records a StageError in the state and the request continues
// with degraded inputs, so Run only fails on invalid requests.
//
// Decisions are stored as pending until Resolve records the human verdict,
// which feeds historical scoring and the learned vocabulary.
package pipeline
