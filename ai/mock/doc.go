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

// Package mock provides test doubles for the ai package interfaces.
//
// Every mock exposes an XxxFunc hook for behavior injection and a
// CallCount method for assertions. Constructors return concrete types.
//
// # Usage
//
//	provider := mock.NewMockProvider()
//	provider.GetMockReranker().RerankFunc = func(ctx context.Context, q string, c []ai.RerankCandidate) ([]int, error) {
//	    return []int{2, 0, 1}, nil
//	}
//
// # Default Behavior
//
//   - MockEmbedder: bag-of-words vectors, so shared tokens mean high cosine similarity
//   - MockIntentExtractor: ai.HeuristicIntent
//   - MockQueryExpander, MockKeywordEnricher: pass-through
//   - MockReranker: identity order
//   - MockCompleter: a fixed response
package mock
