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

// Monitor receives callbacks at each stage of a search.
// Implementations must be safe for concurrent use when shared across searches.
type Monitor interface {
	Start(query string)
	AfterExpansion(expanded string)
	AfterViewQuery(view string, hits int)
	AfterKeywordRecall(added int)
	AfterFusion(results []*Result)
	AfterRerank(order []int)
	Finish(results []*Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                 {}
func (n *noopMonitor) AfterExpansion(_ string)        {}
func (n *noopMonitor) AfterViewQuery(_ string, _ int) {}
func (n *noopMonitor) AfterKeywordRecall(_ int)       {}
func (n *noopMonitor) AfterFusion(_ []*Result)        {}
func (n *noopMonitor) AfterRerank(_ []int)            {}
func (n *noopMonitor) Finish(_ []*Result)             {}
