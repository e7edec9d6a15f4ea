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

package openai

import (
	"regexp"
	"strings"
)

var (
	firstObjectPattern   = regexp.MustCompile(`(?s)\{.*?\}`)
	firstArrayPattern    = regexp.MustCompile(`(?s)\[.*?\]`)
	firstIntArrayPattern = regexp.MustCompile(`\[[\d,\s]+\]`)
)

// cleanResponse strips markdown code fences and repairs unquoted keys.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return repairJSON(strings.TrimSpace(s))
}

// firstObject returns the first non-greedy {...} span of s, or "".
func firstObject(s string) string {
	return firstObjectPattern.FindString(s)
}

// firstArray returns the first non-greedy [...] span of s, or "".
func firstArray(s string) string {
	return firstArrayPattern.FindString(s)
}

// firstIntArray returns the first array made only of digits, commas and spaces, or "".
func firstIntArray(s string) string {
	return firstIntArrayPattern.FindString(s)
}

// repairJSON fixes keys that lost their opening quote, a common failure of
// small models in JSON mode.
// Example: `{"a": 1, b": 2}` becomes `{"a": 1, "b": 2}`.
func repairJSON(s string) string {
	src := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 16)

	i := 0
	for i < len(src) {
		ch := src[i]
		out.WriteRune(ch)
		i++
		if ch != '{' && ch != ',' {
			continue
		}

		for i < len(src) && isSpace(src[i]) {
			out.WriteRune(src[i])
			i++
		}
		if i >= len(src) || !isLetter(src[i]) {
			continue
		}

		start := i
		for i < len(src) && (isLetter(src[i]) || src[i] == '_') {
			i++
		}
		if i+1 < len(src) && src[i] == '"' && src[i+1] == ':' {
			out.WriteRune('"')
		}
		out.WriteString(string(src[start:i]))
	}

	return out.String()
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\n' || r == '\t' || r == '\r'
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
