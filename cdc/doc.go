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

// Package cdc keeps the retrieval index in step with an external catalog
// snapshot.
//
// Each incoming table record is reduced to a digest over the fields that
// affect retrieval. Digests are compared with the ones observed on the
// previous sync, which live in a storage.DigestRepository, and every table
// id is classified as an insert, update, delete or unchanged:
//
//	records ──► digest ──► diff against stored digests ──► apply ──► save digests
//	                           ▲
//	                           └── engine metadata for ids without a stored digest
//
// Inserts and updates are re-indexed through the engine, deletes remove the
// table from every sub-index. Each write is retried with exponential backoff.
// A dry run classifies without touching the engine or the digest store.
package cdc
