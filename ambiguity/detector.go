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

// Package ambiguity decides whether a final table ranking is too close to
// call and, if so, builds the clarifying question offered to the requester.
package ambiguity

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/poiesic/datafinder/core"
)

const (
	// DefaultMargin is the score gap within which two candidates are too close to call.
	DefaultMargin = 0.05
	// DefaultMaxOptions caps the options of a clarifying question.
	DefaultMaxOptions = 5
)

// Detector inspects rankings. It never changes scores or order and is safe
// for concurrent use.
type Detector struct {
	margin     float64
	maxOptions int
	logger     *slog.Logger
}

// Option configures a Detector.
type Option func(*Detector) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger.With("component", "ambiguity")
		return nil
	}
}

// WithMargin sets the closeness margin. Default is 0.05.
func WithMargin(margin float64) Option {
	return func(d *Detector) error {
		if margin < 0 || margin > 1 {
			return fmt.Errorf("margin must be within [0,1]: %f", margin)
		}
		d.margin = margin
		return nil
	}
}

// WithMaxOptions sets the maximum number of options offered. Default is 5.
func WithMaxOptions(n int) Option {
	return func(d *Detector) error {
		if n < 2 {
			return fmt.Errorf("max options must be at least 2: %d", n)
		}
		d.maxOptions = n
		return nil
	}
}

// NewDetector creates a detector.
func NewDetector(opts ...Option) (*Detector, error) {
	d := &Detector{
		margin:     DefaultMargin,
		maxOptions: DefaultMaxOptions,
		logger:     slog.Default().With("component", "ambiguity"),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// None is the result for an unambiguous ranking.
func None() *core.AmbiguityResult {
	return &core.AmbiguityResult{Type: core.AmbiguityNone}
}

// Detect inspects ranking in order. The first match is the top candidate;
// later duplicates of a table are ignored. The ranking is unambiguous when
// fewer than two tables remain or the top score beats the runner-up by more
// than the margin. Otherwise every candidate within the margin of the top is
// close; close candidates from different domains make the result
// DOMAIN_AMBIGUOUS, else it is TABLE_AMBIGUOUS.
func (d *Detector) Detect(query string, ranking []*core.TableMatch) *core.AmbiguityResult {
	distinct := dedupe(ranking)
	if len(distinct) < 2 {
		return None()
	}
	top := distinct[0]
	if top.TotalScore-distinct[1].TotalScore > d.margin {
		return None()
	}

	close := make([]*core.TableMatch, 0, d.maxOptions)
	for _, m := range distinct {
		if len(close) == d.maxOptions {
			break
		}
		if math.Abs(top.TotalScore-m.TotalScore) <= d.margin {
			close = append(close, m)
		}
	}
	if len(close) < 2 {
		return None()
	}

	if result := d.domainAmbiguity(close); result != nil {
		return result
	}

	options := make([]core.AmbiguityOption, len(close))
	labels := make([]string, len(close))
	for i, m := range close {
		options[i] = core.AmbiguityOption{
			Id:      fmt.Sprintf("table:%d", m.Table.Id),
			Label:   tableLabel(m.Table),
			TableId: m.Table.Id,
		}
		labels[i] = options[i].Label
	}
	d.logger.Debug("ranking is table ambiguous", "query", query, "options", len(options))
	return &core.AmbiguityResult{
		Type:        core.AmbiguityTable,
		IsAmbiguous: true,
		ClarifyingQuestion: fmt.Sprintf("Encontrei %d tabelas com relevância parecida para '%s': %s. Qual delas você procura?",
			len(options), query, strings.Join(labels, "; ")),
		Options: options,
	}
}

// domainAmbiguity returns a DOMAIN_AMBIGUOUS result when close spans more
// than one domain, offering the best table of each domain.
func (d *Detector) domainAmbiguity(close []*core.TableMatch) *core.AmbiguityResult {
	var options []core.AmbiguityOption
	var domains []string
	seen := make(map[string]bool)
	for _, m := range close {
		domain := m.Table.Domain()
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
		options = append(options, core.AmbiguityOption{
			Id:      "domain:" + domain,
			Label:   domain,
			TableId: m.Table.Id,
		})
	}
	if len(options) < 2 {
		return nil
	}
	d.logger.Debug("ranking is domain ambiguous", "domains", domains)
	return &core.AmbiguityResult{
		Type:        core.AmbiguityDomain,
		IsAmbiguous: true,
		ClarifyingQuestion: fmt.Sprintf("Sua busca pode se referir a domínios diferentes (%s). Qual domínio você procura?",
			strings.Join(domains, ", ")),
		Options: options,
	}
}

func dedupe(ranking []*core.TableMatch) []*core.TableMatch {
	out := make([]*core.TableMatch, 0, len(ranking))
	seen := make(map[core.ID]bool, len(ranking))
	for _, m := range ranking {
		if m == nil || m.Table == nil || seen[m.Table.Id] {
			continue
		}
		seen[m.Table.Id] = true
		out = append(out, m)
	}
	return out
}

func tableLabel(t *core.Table) string {
	if d := t.Domain(); d != "" {
		return fmt.Sprintf("%s (%s)", t.Label(), d)
	}
	return t.Label()
}
