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

// Package ai provides abstractions for the AI collaborators used by the finder.
//
// Interfaces:
//
//   - Embedder: text to vectors
//   - Completer: prompt to free text
//   - IntentExtractor: query to core.CanonicalIntent
//   - QueryExpander, KeywordEnricher, Reranker: optional enrichment calls
//   - Provider: aggregates all of the above
//
// Every failure of a collaborator wraps ErrCollaboratorUnavailable.
// Callers treat such errors as a signal to fall back to the previous stage's
// result; no retrieval or pipeline operation fails because of them.
//
// Implementations live in ai/openai (langchaingo, OpenAI-compatible APIs)
// and ai/mock (deterministic test doubles).
package ai
