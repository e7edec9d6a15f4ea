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

// Package lexicon keeps vocabulary learned from human feedback: keywords per
// table, expansion terms per query and bidirectional synonyms. It is safe for
// concurrent use and optionally persists to a YAML file.
package lexicon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/poiesic/datafinder/ai"
	"gopkg.in/yaml.v3"
)

const (
	// partialKeywordLimit caps keywords returned for a partial table-name match.
	partialKeywordLimit = 5
	// partialExpansionLimit caps expansion terms returned for a partial query match.
	partialExpansionLimit = 3
	// learnedExpansionLimit caps table keywords recorded per learned expansion.
	learnedExpansionLimit = 5
)

// document is the on-disk YAML layout.
type document struct {
	Keywords   map[string][]string `yaml:"keywords"`
	Expansions map[string][]string `yaml:"expansions"`
	Synonyms   map[string][]string `yaml:"synonyms"`
}

// Lexicon holds learned vocabulary.
type Lexicon struct {
	mu         sync.RWMutex
	path       string
	keywords   map[string][]string
	expansions map[string][]string
	synonyms   map[string][]string
	logger     *slog.Logger
}

var _ ai.Vocabulary = (*Lexicon)(nil)

// Option configures a Lexicon.
type Option func(*Lexicon) error

// WithLogger sets the logger. nil falls back to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexicon) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger.With("component", "lexicon")
		return nil
	}
}

// New creates an empty in-memory lexicon.
func New(opts ...Option) (*Lexicon, error) {
	l := &Lexicon{
		keywords:   make(map[string][]string),
		expansions: make(map[string][]string),
		synonyms:   make(map[string][]string),
		logger:     slog.Default().With("component", "lexicon"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Load reads a lexicon from path. A missing file yields an empty lexicon that
// will be written to path on the first learned term.
func Load(path string, opts ...Option) (*Lexicon, error) {
	l, err := New(opts...)
	if err != nil {
		return nil, err
	}
	l.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l, nil
		}
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	for k, v := range doc.Keywords {
		l.keywords[normalize(k)] = lowerAll(v)
	}
	for k, v := range doc.Expansions {
		l.expansions[normalize(k)] = lowerAll(v)
	}
	for k, v := range doc.Synonyms {
		l.synonyms[normalize(k)] = lowerAll(v)
	}
	l.logger.Debug("loaded lexicon", "path", path,
		"keywords", len(l.keywords), "expansions", len(l.expansions), "synonyms", len(l.synonyms))
	return l, nil
}

// Save writes the lexicon to its path. It is a no-op for in-memory lexicons.
func (l *Lexicon) Save() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.saveLocked()
}

func (l *Lexicon) saveLocked() error {
	if l.path == "" {
		return nil
	}
	data, err := yaml.Marshal(&document{
		Keywords:   l.keywords,
		Expansions: l.expansions,
		Synonyms:   l.synonyms,
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

// persist saves after a mutation; failures are logged, never returned.
func (l *Lexicon) persist() {
	if err := l.saveLocked(); err != nil {
		l.logger.Warn("failed to save lexicon", "path", l.path, "err", err)
	}
}

// LearnKeywords records keywords for a table name.
func (l *Lexicon) LearnKeywords(tableName string, keywords []string) {
	key := normalize(tableName)
	if key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keywords[key] = appendUnique(l.keywords[key], keywords...)
	l.persist()
	l.logger.Info("learned keywords", "table", key, "keywords", keywords)
}

// Keywords returns learned keywords for a table name: every keyword on an
// exact match, else at most five from the first key that contains or is
// contained in the name.
func (l *Lexicon) Keywords(tableName string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lookup(l.keywords, normalize(tableName), partialKeywordLimit)
}

// LearnExpansion records the first keywords of the table a human chose for query.
func (l *Lexicon) LearnExpansion(query string, tableKeywords []string) {
	key := normalize(query)
	if key == "" {
		return
	}
	if len(tableKeywords) > learnedExpansionLimit {
		tableKeywords = tableKeywords[:learnedExpansionLimit]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expansions[key] = appendUnique(l.expansions[key], tableKeywords...)
	l.persist()
	l.logger.Info("learned expansion", "query", key, "terms", l.expansions[key])
}

// Expansion returns learned expansion terms for query: every term on an exact
// match, else at most three from the first partially matching query.
func (l *Lexicon) Expansion(query string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lookup(l.expansions, normalize(query), partialExpansionLimit)
}

// LearnSynonym records a and b as synonyms of each other.
func (l *Lexicon) LearnSynonym(a, b string) {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" || a == b {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.synonyms[a] = appendUnique(l.synonyms[a], b)
	l.synonyms[b] = appendUnique(l.synonyms[b], a)
	l.persist()
}

// Synonyms returns the learned synonyms of term.
func (l *Lexicon) Synonyms(term string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.synonyms[normalize(term)])
}

// Stats reports the number of learned entries per kind.
func (l *Lexicon) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	stats := Stats{
		Tables:     len(l.keywords),
		Expansions: len(l.expansions),
		Terms:      len(l.synonyms),
	}
	for _, syns := range l.synonyms {
		stats.Synonyms += len(syns)
	}
	return stats
}

// Stats summarizes a lexicon.
type Stats struct {
	Tables     int `json:"learned_tables"`
	Expansions int `json:"learned_expansions"`
	Terms      int `json:"learned_terms"`
	Synonyms   int `json:"total_learned_synonyms"`
}

// lookup returns a copy of m[key] or, failing that, up to limit values of the
// first key (in sorted order) that contains key or is contained in it.
func lookup(m map[string][]string, key string, limit int) []string {
	if key == "" {
		return nil
	}
	if values, ok := m[key]; ok {
		return slices.Clone(values)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if strings.Contains(key, k) || strings.Contains(k, key) {
			values := m[k]
			if len(values) > limit {
				values = values[:limit]
			}
			return slices.Clone(values)
		}
	}
	return nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerAll(values []string) []string {
	return appendUnique(nil, values...)
}

// appendUnique appends the normalized, non-empty values not already present.
func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		v = normalize(v)
		if v == "" || slices.Contains(dst, v) {
			continue
		}
		dst = append(dst, v)
	}
	return dst
}
