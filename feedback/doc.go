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

// Package feedback learns from human verdicts on recommendations.
//
// The Analyzer classifies free-text justifications into a closed vocabulary
// of approval and rejection categories by keyword containment. The Store keeps
// the append-only decision log and turns it into a historical score per
// (concept, table) pair: a justification-weighted approval rate, neutral until
// enough decisions exist, cached for a few minutes and invalidated on every
// new decision for the pair.
package feedback
