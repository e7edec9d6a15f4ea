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

package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for catalog and decision records. Field order is part of the
// on-disk format; append new fields at the end only.
var (
	IDMUS             = idMUS{}
	StringsMUS        = stringsMUS{}
	Float32sMUS       = float32sMUS{}
	TimeMUS           = timeMUS{}
	TableMUS          = tableMUS{}
	DecisionRecordMUS = decisionRecordMUS{}
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

type stringsMUS struct{}

func (s stringsMUS) Marshal(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, str := range v {
		n += ord.String.Marshal(str, bs[n:])
	}
	return
}

func (s stringsMUS) Unmarshal(bs []byte) (v []string, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = ErrCorruptRecord
		return
	}
	if length == 0 {
		return
	}
	v = make([]string, length)
	var n1 int
	for i := range v {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s stringsMUS) Size(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, str := range v {
		size += ord.String.Size(str)
	}
	return
}

type float32sMUS struct{}

func (s float32sMUS) Marshal(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return
}

func (s float32sMUS) Unmarshal(bs []byte) (v []float32, n int, err error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = ErrCorruptRecord
		return
	}
	if length == 0 {
		return
	}
	v = make([]float32, length)
	var n1 int
	for i := range v {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

func (s float32sMUS) Size(v []float32) (size int) {
	size = varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return
}

// timeMUS stores times as UTC microseconds since the Unix epoch.
type timeMUS struct{}

func (s timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func (s timeMUS) Size(v time.Time) (size int) {
	return varint.Int64.Size(v.UnixMicro())
}

type tableMUS struct{}

func (s tableMUS) Marshal(v Table, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.DisplayName, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += ord.String.Marshal(v.SchemaName, bs[n:])
	n += ord.String.Marshal(v.DomainId, bs[n:])
	n += ord.String.Marshal(v.DomainName, bs[n:])
	n += IDMUS.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.OwnerName, bs[n:])
	n += StringsMUS.Marshal(v.Keywords, bs[n:])
	n += StringsMUS.Marshal(v.Columns, bs[n:])
	n += ord.String.Marshal(v.Granularity, bs[n:])
	n += ord.String.Marshal(string(v.DataLayer), bs[n:])
	n += ord.Bool.Marshal(v.IsGoldenSource, bs[n:])
	n += ord.Bool.Marshal(v.IsVisaoCliente, bs[n:])
	n += ord.String.Marshal(v.UpdateFrequency, bs[n:])
	return n + ord.String.Marshal(v.InferredProduct, bs[n:])
}

func (s tableMUS) Unmarshal(bs []byte) (v Table, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DisplayName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SchemaName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DomainId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DomainName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.OwnerName, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Keywords, n1, err = StringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Columns, n1, err = StringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Granularity, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var layer string
	layer, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DataLayer = DataLayer(layer)
	v.IsGoldenSource, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.IsVisaoCliente, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdateFrequency, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.InferredProduct, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s tableMUS) Size(v Table) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Name)
	size += ord.String.Size(v.DisplayName)
	size += ord.String.Size(v.Description)
	size += ord.String.Size(v.SchemaName)
	size += ord.String.Size(v.DomainId)
	size += ord.String.Size(v.DomainName)
	size += IDMUS.Size(v.OwnerId)
	size += ord.String.Size(v.OwnerName)
	size += StringsMUS.Size(v.Keywords)
	size += StringsMUS.Size(v.Columns)
	size += ord.String.Size(v.Granularity)
	size += ord.String.Size(string(v.DataLayer))
	size += ord.Bool.Size(v.IsGoldenSource)
	size += ord.Bool.Size(v.IsVisaoCliente)
	size += ord.String.Size(v.UpdateFrequency)
	return size + ord.String.Size(v.InferredProduct)
}

type decisionRecordMUS struct{}

func (s decisionRecordMUS) Marshal(v DecisionRecord, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.RequestId, bs[n:])
	n += ord.String.Marshal(v.ConceptHash, bs[n:])
	n += ord.String.Marshal(v.DomainId, bs[n:])
	n += IDMUS.Marshal(v.OwnerId, bs[n:])
	n += IDMUS.Marshal(v.TableId, bs[n:])
	n += ord.String.Marshal(string(v.Outcome), bs[n:])
	n += IDMUS.Marshal(v.ActualTableId, bs[n:])
	n += raw.Float64.Marshal(v.ConfidenceAtDecision, bs[n:])
	n += ord.String.Marshal(v.JustificationText, bs[n:])
	n += ord.String.Marshal(string(v.JustificationCategory), bs[n:])
	n += StringsMUS.Marshal(v.JustificationKeywords, bs[n:])
	n += ord.Bool.Marshal(v.WasCloseMatch, bs[n:])
	n += ord.String.Marshal(v.SuggestedImprovement, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return n + ord.String.Marshal(v.Query, bs[n:])
}

func (s decisionRecordMUS) Unmarshal(bs []byte) (v DecisionRecord, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.RequestId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ConceptHash, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.DomainId, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.TableId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var str string
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Outcome = Outcome(str)
	v.ActualTableId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.ConfidenceAtDecision, n1, err = raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.JustificationText, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	str, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.JustificationCategory = Category(str)
	v.JustificationKeywords, n1, err = StringsMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.WasCloseMatch, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.SuggestedImprovement, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Query, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s decisionRecordMUS) Size(v DecisionRecord) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.RequestId)
	size += ord.String.Size(v.ConceptHash)
	size += ord.String.Size(v.DomainId)
	size += IDMUS.Size(v.OwnerId)
	size += IDMUS.Size(v.TableId)
	size += ord.String.Size(string(v.Outcome))
	size += IDMUS.Size(v.ActualTableId)
	size += raw.Float64.Size(v.ConfidenceAtDecision)
	size += ord.String.Size(v.JustificationText)
	size += ord.String.Size(string(v.JustificationCategory))
	size += StringsMUS.Size(v.JustificationKeywords)
	size += ord.Bool.Size(v.WasCloseMatch)
	size += ord.String.Size(v.SuggestedImprovement)
	size += TimeMUS.Size(v.CreatedAt)
	return size + ord.String.Size(v.Query)
}
