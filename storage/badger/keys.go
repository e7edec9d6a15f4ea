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

package badger

import (
	"encoding/binary"

	"github.com/poiesic/datafinder/core"
)

// Key prefixes for different data types
const (
	vectorPrefix          = "vec"
	decisionRecordPrefix  = "decrec"
	decisionPendingPrefix = "decpend"
	decisionIDSeq         = "decrecseq"
	digestPrefix          = "cdcdig"
)

// makeVectorPrefix generates the prefix shared by every entry of a sub-index.
// Format: vec:name:
func makeVectorPrefix(name string) []byte {
	return []byte(vectorPrefix + ":" + name + ":")
}

// makeVectorKey generates a key for a vector entry.
// Format: vec:name:id
func makeVectorKey(name string, id core.ID) []byte {
	prefix := makeVectorPrefix(name)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort matches id order
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialDecisionKey generates a prefix for all decisions of a (concept, table) pair.
// Format: decrec:hash:tableID
func makePartialDecisionKey(conceptHash string, tableID core.ID) []byte {
	prefix := decisionRecordPrefix + ":" + conceptHash + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(tableID))
	return buf
}

// makeDecisionKey generates a key for a decision record.
// Format: decrec:hash:tableID:seq
func makeDecisionKey(conceptHash string, tableID, seq core.ID) []byte {
	partial := makePartialDecisionKey(conceptHash, tableID)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makePendingKey generates a key for a decision awaiting a verdict.
func makePendingKey(requestID string) []byte {
	return []byte(decisionPendingPrefix + ":" + requestID)
}

// makeDigestKey generates a key for a change-detection digest.
// Format: cdcdig:id
func makeDigestKey(id core.ID) []byte {
	prefix := digestPrefix + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// digestIDFromKey extracts the table id from a digest key.
func digestIDFromKey(key []byte) core.ID {
	if len(key) < 8 {
		return 0
	}
	return core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
}
