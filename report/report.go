package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"unicode"

	"github.com/Perruchok/vozpublica/analysis"
	"github.com/Perruchok/vozpublica/narrative"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format is an output format for reports.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat maps a user supplied name to a Format. The empty string means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

// Extension returns the file extension used by Save, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "txt"
	}
}

// Render writes r to w in the given format.
func Render(w io.Writer, r *narrative.Report, format Format) error {
	if r == nil {
		return fmt.Errorf("nil report")
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	case FormatText, "":
		return textTemplate.Execute(w, r)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// FileName returns narrative_<concept>_<timestamp>.<ext> for r. The concept is
// folded to lowercase ASCII; the timestamp is the UTC generation time.
func FileName(r *narrative.Report, format Format) string {
	return fmt.Sprintf("narrative_%s_%s.%s",
		slug(r.Concept), r.GeneratedAt.UTC().Format("20060102T150405Z"), format.Extension())
}

// Save renders r into dir and returns the path of the written file.
// dir is created when missing.
func Save(dir string, r *narrative.Report, format Format) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil report")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	path := filepath.Join(dir, FileName(r, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report file: %w", err)
	}
	if err := Render(f, r, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("rendering report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing report file: %w", err)
	}
	return path, nil
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func slug(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return "concept"
	}
	return out
}

var textTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":      func(x float64) string { return fmt.Sprintf("%.2f", x) },
	"excerpts": analysis.FormatExcerpts,
	"date":     func(r narrative.Range) string { return r.Start + " to " + r.End },
}).Parse(`NARRATIVE REPORT: {{.Concept}}
Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 MST"}}
Pre period:  {{date .Pre}}
Post period: {{date .Post}}
Similarity threshold: {{pct .SimilarityThreshold}}

OVERALL DRIFT: {{pct .OverallDrift}}

SPEAKER DRIFT
{{- if .SpeakerDrifts}}
{{- range .SpeakerDrifts}}
  {{pct .Drift}}  {{.Speaker}} (pre {{.PreCount}}, post {{.PostCount}})
{{- end}}
{{- else}}
  no speaker with enough evidence in both periods
{{- end}}

DRIFT OVER TIME
{{- if .DriftOverTime.Points}}
{{- range .DriftOverTime.Points}}
  {{.Period}}  similarity {{pct .CentroidSimilarity}}  turns {{.NumChunks}}
{{- end}}
{{- range .DriftOverTime.Drift}}
  {{.From}} -> {{.To}}  change {{pct .SemanticChange}}
{{- end}}
{{- with .DriftOverTime.MaxDrift}}
  largest shift: {{.From}} -> {{.To}} ({{pct .SemanticChange}})
{{- end}}
{{- else}}
  no matching speech turns
{{- end}}

PRE EXCERPTS
{{excerpts .PreExcerpts}}

POST EXCERPTS
{{excerpts .PostExcerpts}}
{{- with .Explanation}}

EXPLANATION
First period: {{.CoreFraming.FirstPeriod}}
Second period: {{.CoreFraming.SecondPeriod}}
Gained prominence:
{{- range .GainedProminence}}
  - {{.}}
{{- end}}
Lost prominence:
{{- range .LostProminence}}
  - {{.}}
{{- end}}
Overall shift: {{.OverallShift}}
{{- end}}
`))
