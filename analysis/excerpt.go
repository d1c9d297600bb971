package analysis

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Perruchok/vozpublica/core"
)

const (
	// MinMeaningfulChars is the minimum trimmed length, in characters, of a meaningful text.
	MinMeaningfulChars = 150

	// MinMeaningfulWords is the minimum word count of a meaningful text.
	MinMeaningfulWords = 20

	// DefaultExcerpts is the number of excerpts selected when none is requested.
	DefaultExcerpts = 10

	// MaxExcerpts caps excerpt selection.
	MaxExcerpts = 50
)

// IsMeaningful reports whether text is long enough to be shown as evidence:
// at least MinMeaningfulChars characters after trimming and at least
// MinMeaningfulWords whitespace-separated words.
func IsMeaningful(text string) bool {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < MinMeaningfulChars {
		return false
	}
	return len(strings.Fields(trimmed)) >= MinMeaningfulWords
}

// FilterMeaningful returns the records whose text passes IsMeaningful,
// preserving order.
func FilterMeaningful(records []core.SpeechTurnRecord) []core.SpeechTurnRecord {
	out := make([]core.SpeechTurnRecord, 0, len(records))
	for _, r := range records {
		if IsMeaningful(r.Text) {
			out = append(out, r)
		}
	}
	return out
}

// ClampExcerpts maps a requested excerpt count to the accepted range:
// non-positive becomes DefaultExcerpts and anything above MaxExcerpts is capped.
func ClampExcerpts(n int) int {
	switch {
	case n <= 0:
		return DefaultExcerpts
	case n > MaxExcerpts:
		return MaxExcerpts
	default:
		return n
	}
}

// Excerpt is a record selected as qualitative evidence.
type Excerpt struct {
	DocID      string    `json:"doc_id" yaml:"doc_id"`
	Speaker    string    `json:"speaker" yaml:"speaker"`
	Date       time.Time `json:"date" yaml:"date"`
	Text       string    `json:"text" yaml:"text"`
	Similarity float64   `json:"similarity" yaml:"similarity"`
	Href       string    `json:"href,omitempty" yaml:"href,omitempty"`
}

// Reference renders the citation for the excerpt: a markdown link when a
// hyperlink is known, the bare document id otherwise.
func (e Excerpt) Reference() string {
	if e.Href != "" {
		return fmt.Sprintf("[%s](%s)", e.DocID, e.Href)
	}
	return e.DocID
}

// Line renders the excerpt as a single citation-annotated line:
//
//	- (YYYY-MM-DD) [speaker] text (Ref: [doc_id](href))
func (e Excerpt) Line() string {
	return fmt.Sprintf("- (%s) [%s] %s (Ref: %s)",
		e.Date.UTC().Format(time.DateOnly), e.Speaker, strings.TrimSpace(e.Text), e.Reference())
}

// SelectTop takes the first n records, which callers supply already ordered by
// similarity, and turns them into excerpts. n is clamped with ClampExcerpts.
func SelectTop(records []core.SpeechTurnRecord, n int) []Excerpt {
	n = ClampExcerpts(n)
	if n > len(records) {
		n = len(records)
	}
	excerpts := make([]Excerpt, 0, n)
	for i := range records[:n] {
		r := &records[i]
		excerpts = append(excerpts, Excerpt{
			DocID:      r.DocID,
			Speaker:    r.SpeakerLabel(),
			Date:       r.PublishedAt,
			Text:       r.Text,
			Similarity: r.Similarity,
			Href:       r.Href,
		})
	}
	return excerpts
}

// FormatExcerpts renders excerpts one per line, in order. This block is what
// the drift explainer receives.
func FormatExcerpts(excerpts []Excerpt) string {
	lines := make([]string, len(excerpts))
	for i, e := range excerpts {
		lines[i] = e.Line()
	}
	return strings.Join(lines, "\n")
}
