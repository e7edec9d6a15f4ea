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

package pipeline

import "errors"

var (
	// ErrStageFailed indicates a stage could not produce its output.
	// It is recorded in the request state and never returned from Run.
	ErrStageFailed = errors.New("pipeline stage failed")

	// ErrRetrieverRequired indicates no retriever was supplied.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrAIProviderRequired indicates no AI provider was supplied.
	ErrAIProviderRequired = errors.New("AI provider is required")

	// ErrDecisionRepositoryRequired indicates decisions cannot be resolved
	// because no decision repository was configured.
	ErrDecisionRepositoryRequired = errors.New("decision repository is required")

	// ErrEmptyQuery indicates a request without query text.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidOutputMode indicates an unknown output mode.
	ErrInvalidOutputMode = errors.New("invalid output mode")
)
