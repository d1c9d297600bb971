package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Embedding is a vector as it appears in external data. Sources either
// provide a JSON array of numbers or the textual form "[a,b,...]"; both are
// decoded into Vector. Text keeps the textual form when that is what was read,
// and the raw JSON when an array could not be decoded.
type Embedding struct {
	Vector []float32
	Text   string
}

// Valid reports whether the embedding holds a usable vector.
func (e Embedding) Valid() bool {
	return len(e.Vector) > 0
}

// UnmarshalJSON accepts a numeric array, a string holding a bracketed list, or null.
// Input that fails to parse is kept in Text with an empty Vector so callers
// can drop the embedding without losing the record; Resolve reports the parse error.
func (e *Embedding) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*e = Embedding{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
		}
		e.Text = s
		e.Vector, _ = ParseEmbedding(s)
		return nil
	default:
		v, err := ParseEmbedding(string(data))
		if err != nil {
			*e = Embedding{Text: string(data)}
			return nil
		}
		*e = Embedding{Vector: v}
		return nil
	}
}

// MarshalJSON writes the vector as a numeric array.
func (e Embedding) MarshalJSON() ([]byte, error) {
	if e.Vector == nil {
		return []byte("null"), nil
	}
	return json.Marshal(e.Vector)
}

// Resolve returns the vector, parsing Text when no vector was decoded.
func (e Embedding) Resolve() ([]float32, error) {
	if len(e.Vector) > 0 {
		if i := nonFinite(e.Vector); i >= 0 {
			return nil, fmt.Errorf("%w: component %d is not finite", ErrMalformedEmbedding, i)
		}
		return e.Vector, nil
	}
	if e.Text == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedEmbedding)
	}
	return ParseEmbedding(e.Text)
}

// nonFinite returns the index of the first NaN or infinite component, or -1.
func nonFinite(v []float32) int {
	for i, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return i
		}
	}
	return -1
}

// ParseEmbedding parses the textual vector form "[a,b,...]".
// Empty vectors and components that are not finite as float32 are rejected.
func ParseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("%w: expected bracketed list", ErrMalformedEmbedding)
	}

	var raw []float64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no components", ErrMalformedEmbedding)
	}

	v := make([]float32, len(raw))
	for i, x := range raw {
		v[i] = float32(x)
	}
	if i := nonFinite(v); i >= 0 {
		return nil, fmt.Errorf("%w: component %d is not finite", ErrMalformedEmbedding, i)
	}
	return v, nil
}

// FormatEmbedding renders v in the textual vector form accepted by ParseEmbedding.
func FormatEmbedding(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}
