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

// Package speaker splits the speaker labels printed in stenographic
// transcripts into a person name and a role.
//
// Labels come in a handful of shapes:
//
//	PRESIDENTA CLAUDIA SHEINBAUM PARDO
//	SECRETARIA DE TURISMO, JOSEFINA RODRÍGUEZ ZAMORA
//	PABLO GÓMEZ ÁLVAREZ, TITULAR DE LA UNIDAD DE INTELIGENCIA FINANCIERA (UIF):
//	MODERADOR:
//
// Parse uses keyword and name-likeness heuristics to tell the parts apart.
// It never fails; parts it cannot identify are returned empty.
package speaker

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// roleKeywords are fragments that mark a chunk as a position or title.
var roleKeywords = []string{
	"PRESIDENT", "PRESIDENTA", "PRESIDENTE", "SECRETAR", "MINISTR", "TITULAR", "COORDINADOR", "COORDINADORA",
	"JEFE", "DIRECTOR", "VOCER", "VOCERA", "SUBSECRETAR", "PROCURAD", "GOBERNADOR", "ALCALDE", "DIPUTADO",
	"SENADOR", "REPRESENTANTE", "RECTOR", "DELEGADO", "VOCES", "VOZ", "MODERADOR", "MODERADORA", "COORDINACIÓN",
	"SECRETARÍA", "SECRETARIA", "UNIDAD", "DEPARTAMENTO", "INSTITUTO", "COMISION", "COMISIÓN",
	"OFICIAL", "PRESIDENCIA", "CONSEJ", "CONSEJERA", "EMBAJADOR", "EMBAJADORA", "COMISARIO", "TESORER", "UIF", "SHCP",
}

// nameStopwords are connectives that appear inside names and roles alike.
var nameStopwords = map[string]bool{
	"DE": true, "LA": true, "DEL": true, "Y": true, "LOS": true, "LAS": true, "EL": true,
}

var (
	trailingColons = regexp.MustCompile(`:+\s*$`)
	nameToken      = regexp.MustCompile(`^[A-ZÁÉÍÓÚÑÀ-ÿ'\-]+$`)
)

// Speaker is a parsed speaker label.
type Speaker struct {
	Raw  string // trimmed label as printed
	Name string // normalized person name, empty when none was found
	Role string // normalized role, empty when none was found
}

// Parse splits a raw speaker label into name and role.
func Parse(raw string) Speaker {
	original := strings.TrimSpace(raw)
	if original == "" {
		return Speaker{}
	}

	s := strings.TrimSpace(trailingColons.ReplaceAllString(original, ""))

	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var namePart, rolePart string
	switch len(parts) {
	case 0:
	case 1:
		namePart, rolePart = splitSingle(parts[0])
	case 2:
		namePart, rolePart = splitPair(parts[0], parts[1])
	default:
		namePart, rolePart = splitMany(parts)
	}

	sp := Speaker{Raw: original}
	if namePart != "" {
		sp.Name = NormalizeName(namePart)
	}
	if rolePart != "" {
		sp.Role = strings.TrimSpace(titleKeepAcronyms(rolePart))
	}
	return sp
}

// splitSingle handles labels without commas, such as "PRESIDENTA CLAUDIA
// SHEINBAUM PARDO" or a bare "MODERADOR".
func splitSingle(p string) (name, role string) {
	tokens := strings.Fields(p)

	if len(tokens) >= 3 && countRoleKeywords(tokens[0]) > 0 {
		for i := 1; i < len(tokens); i++ {
			head := tokens[i:min(i+2, len(tokens))]
			tail := strings.Join(tokens[i:], " ")
			if nameScore(strings.Join(head, " ")) >= 2 || nameScore(tail) >= 2 {
				return tail, strings.Join(tokens[:i], " ")
			}
		}
	}

	if nameScore(p) >= 2 {
		return p, ""
	}
	return "", p
}

// splitPair handles "ROLE, NAME" and "NAME, ROLE".
func splitPair(left, right string) (name, role string) {
	switch {
	case looksLikeRole(right):
		if nameScore(right) >= 2 && len(strings.Fields(right)) <= 3 && countRoleKeywords(right) == 0 {
			return right, left
		}
		return left, right
	case looksLikeRole(left):
		return right, left
	}

	leftRole, rightRole := countRoleKeywords(left), countRoleKeywords(right)
	switch {
	case leftRole > rightRole:
		return right, left
	case rightRole > leftRole:
		return left, right
	}

	leftName, rightName := nameScore(left), nameScore(right)
	switch {
	case len(strings.Fields(right)) <= 3 && rightName >= max(1, leftName):
		return right, left
	case len(strings.Fields(left)) <= 3 && leftName >= max(1, rightName):
		return left, right
	default:
		return right, left
	}
}

// splitMany handles labels with several commas. The name is usually the last chunk.
func splitMany(parts []string) (name, role string) {
	last := parts[len(parts)-1]
	preceding := strings.Join(parts[:len(parts)-1], ", ")
	if nameScore(last) >= 2 && len(strings.Fields(last)) <= 4 {
		return last, preceding
	}

	for i := len(parts) - 1; i >= 0; i-- {
		p := parts[i]
		if nameScore(p) >= 2 && len(strings.Fields(p)) <= 4 {
			others := make([]string, 0, len(parts)-1)
			others = append(others, parts[:i]...)
			others = append(others, parts[i+1:]...)
			return p, strings.Join(others, ", ")
		}
	}
	return last, preceding
}

// looksLikeRole reports whether p has parentheses or an all-caps ASCII word.
func looksLikeRole(p string) bool {
	if strings.Contains(p, "(") {
		return true
	}
	for _, w := range words(p) {
		if len(w) >= 2 && isASCIIUpper(w) {
			return true
		}
	}
	return false
}

func countRoleKeywords(text string) int {
	upper := strings.ToUpper(text)
	count := 0
	for _, kw := range roleKeywords {
		if strings.Contains(upper, kw) {
			count++
		}
	}
	return count
}

// nameScore counts tokens that look like fragments of a personal name.
func nameScore(p string) int {
	score := 0
	for _, t := range strings.Fields(p) {
		u := strings.ToUpper(t)
		if nameStopwords[u] {
			continue
		}
		if nameToken.MatchString(u) {
			score++
		}
	}
	return score
}

// words returns the maximal runs of letters, digits and underscores in s.
func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

func isASCIIUpper(w string) bool {
	for _, r := range w {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// titleKeepAcronyms title-cases text while keeping 2 to 5 letter all-caps
// words, such as UIF or SHCP, upper case.
func titleKeepAcronyms(text string) string {
	acronyms := make(map[string]bool)
	for _, w := range words(text) {
		if len(w) >= 2 && len(w) <= 5 && isASCIIUpper(w) && !nameStopwords[w] {
			acronyms[w] = true
		}
	}

	titled := cases.Title(language.Spanish).String(text)
	if len(acronyms) == 0 {
		return titled
	}

	var b strings.Builder
	var word strings.Builder
	flush := func() {
		w := word.String()
		if up := strings.ToUpper(w); acronyms[up] {
			w = up
		}
		b.WriteString(w)
		word.Reset()
	}
	for _, r := range titled {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			word.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

// NormalizeName trims a person name, drops trailing colons and capitalizes
// each word, keeping accents. It returns "" for a blank name.
func NormalizeName(name string) string {
	s := strings.TrimSpace(name)
	s = strings.TrimSpace(strings.TrimRight(s, ":"))
	if s == "" {
		return ""
	}

	lower := cases.Lower(language.Spanish)
	fields := strings.Fields(s)
	for i, f := range fields {
		runes := []rune(lower.String(f))
		runes[0] = unicode.ToTitle(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
