// Copyright 2025 The vozpublica Authors
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

import "strings"

// repairJSON fixes the formatting slips chat models make in JSON mode:
//   - a key that lost its opening quote, e.g. `, overall_shift":`
//   - typographic quotes used as delimiters, e.g. `{“a”: “b”}`
//   - a trailing comma before a closing brace or bracket
//
// Text inside well-formed strings is never changed.
func repairJSON(s string) string {
	src := []rune(s)
	var out strings.Builder
	out.Grow(len(s) + 8)

	// typographic is set while inside a string opened by a typographic quote,
	// which only a typographic quote closes.
	inString, typographic := false, false
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if inString {
			switch {
			case ch == '\\' && i+1 < len(src):
				out.WriteRune(ch)
				i++
				out.WriteRune(src[i])
			case typographic && (ch == '“' || ch == '”'):
				out.WriteRune('"')
				inString = false
			case ch == '"' && typographic:
				out.WriteString(`\"`)
			case ch == '"':
				out.WriteRune(ch)
				inString = false
			default:
				out.WriteRune(ch)
			}
			continue
		}

		switch ch {
		case '"':
			out.WriteRune(ch)
			inString, typographic = true, false
		case '“', '”':
			out.WriteRune('"')
			inString, typographic = true, true
		case ',':
			if next := skipSpace(src, i+1); next < len(src) && (src[next] == '}' || src[next] == ']') {
				continue
			}
			out.WriteRune(ch)
			i = writeBareKey(&out, src, i+1) - 1
		case '{':
			out.WriteRune(ch)
			i = writeBareKey(&out, src, i+1) - 1
		default:
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// writeBareKey copies the whitespace at src[start:] and, when it is followed
// by an identifier ending in `":`, writes the identifier with its missing
// opening quote. It returns the index of the first rune not written.
func writeBareKey(out *strings.Builder, src []rune, start int) int {
	i := skipSpace(src, start)
	out.WriteString(string(src[start:i]))

	end := i
	for end < len(src) && isKeyRune(src[end]) {
		end++
	}
	if end == i || end+1 >= len(src) || src[end] != '"' || src[end+1] != ':' {
		return i
	}
	out.WriteRune('"')
	out.WriteString(string(src[i:end]))
	out.WriteRune('"')
	return end + 1
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\n' || src[i] == '\t' || src[i] == '\r') {
		i++
	}
	return i
}

func isKeyRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}
