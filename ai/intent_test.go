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

package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeuristicIntent(t *testing.T) {
	intent := HeuristicIntent("Base de clientes pessoa física atualizada diariamente")

	require.NotNil(t, intent)
	assert.Equal(t, "base de clientes pessoa física atualizada diariamente", intent.DataNeed)
	assert.Equal(t, "cliente", intent.TargetEntity)
	assert.Equal(t, "pessoa física", intent.TargetSegment)
	assert.Equal(t, "diária", intent.Granularity)
	assert.Empty(t, intent.TargetProduct)
	assert.Equal(t, []string{CategoryComercial}, intent.InferredDomains)
	assert.Equal(t, "Base de clientes pessoa física atualizada diariamente", intent.OriginalQuery)
	assert.InDelta(t, HeuristicConfidence, intent.ExtractionConfidence, 1e-9)
}

func TestHeuristicIntent_ShortSegmentNeedsWordBoundary(t *testing.T) {
	intent := HeuristicIntent("saldo consignado pf mensal")
	assert.Equal(t, "pessoa física", intent.TargetSegment)
	assert.Equal(t, "consignado", intent.TargetProduct)
	assert.Equal(t, "mensal", intent.Granularity)

	intent = HeuristicIntent("pfizer")
	assert.Empty(t, intent.TargetSegment)
}
