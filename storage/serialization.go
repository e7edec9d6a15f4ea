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

package storage

import (
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/datafinder/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	return id, err
}

// MarshalTable serializes a Table to bytes.
func MarshalTable(table *core.Table) []byte {
	buf := make([]byte, core.TableMUS.Size(*table))
	core.TableMUS.Marshal(*table, buf)
	return buf
}

// UnmarshalTable deserializes a Table from bytes.
func UnmarshalTable(data []byte) (*core.Table, error) {
	table, _, err := core.TableMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &table, nil
}

// MarshalDecisionRecord serializes a DecisionRecord to bytes.
func MarshalDecisionRecord(record *core.DecisionRecord) []byte {
	buf := make([]byte, core.DecisionRecordMUS.Size(*record))
	core.DecisionRecordMUS.Marshal(*record, buf)
	return buf
}

// UnmarshalDecisionRecord deserializes a DecisionRecord from bytes.
func UnmarshalDecisionRecord(data []byte) (*core.DecisionRecord, error) {
	record, _, err := core.DecisionRecordMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &record, nil
}

// MarshalVectorEntry serializes a VectorEntry to bytes.
// A nil Metadata is stored as a table carrying only the entry id.
func MarshalVectorEntry(entry *VectorEntry) []byte {
	meta := entry.Metadata
	if meta == nil {
		meta = &core.Table{Id: entry.Id}
	}
	size := core.IDMUS.Size(entry.Id) +
		core.Float32sMUS.Size(entry.Vector) +
		ord.String.Size(entry.Document) +
		core.TableMUS.Size(*meta)
	buf := make([]byte, size)
	n := core.IDMUS.Marshal(entry.Id, buf)
	n += core.Float32sMUS.Marshal(entry.Vector, buf[n:])
	n += ord.String.Marshal(entry.Document, buf[n:])
	core.TableMUS.Marshal(*meta, buf[n:])
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*VectorEntry, error) {
	var (
		entry VectorEntry
		n, n1 int
		err   error
	)
	entry.Id, n, err = core.IDMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	entry.Vector, n1, err = core.Float32sMUS.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	entry.Document, n1, err = ord.String.Unmarshal(data[n:])
	n += n1
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	meta, _, err := core.TableMUS.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	entry.Metadata = &meta
	return &entry, nil
}

// MarshalDigest serializes a change-detection digest to bytes.
func MarshalDigest(digest string) []byte {
	buf := make([]byte, ord.String.Size(digest))
	ord.String.Marshal(digest, buf)
	return buf
}

// UnmarshalDigest deserializes a change-detection digest from bytes.
func UnmarshalDigest(data []byte) (string, error) {
	digest, _, err := ord.String.Unmarshal(data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return digest, nil
}
