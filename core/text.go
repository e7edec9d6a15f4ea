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
	"regexp"
	"strings"
	"unicode/utf8"
)

var tokenSeparators = regexp.MustCompile(`[\s_\-.]+`)

// Tokenize lower-cases text and splits it on whitespace, underscores, hyphens
// and dots. Tokens shorter than two characters are dropped.
func Tokenize(text string) []string {
	parts := tokenSeparators.Split(strings.ToLower(text), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if utf8.RuneCountInString(p) >= 2 {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
