package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Perruchok/vozpublica/core"
)

const (
	// DefaultImportBatchSize is the number of lines stored per write.
	DefaultImportBatchSize = 500

	maxLineBytes = 16 << 20
)

// TranscriptLine is one line of a transcript JSONL source.
type TranscriptLine struct {
	DocID       string `json:"doc_id"`
	Title       string `json:"title"`
	Href        string `json:"href"`
	PublishedAt string `json:"published_at"`
}

// TurnLine is one line of a speech turn JSONL source.
type TurnLine struct {
	DocID             string         `json:"doc_id"`
	Sequence          int            `json:"sequence"`
	SpeakerRaw        string         `json:"speaker_raw"`
	SpeakerNormalized string         `json:"speaker_normalized"`
	Role              string         `json:"role"`
	Text              string         `json:"text"`
	Embedding         core.Embedding `json:"embedding"`
}

// ImportStats summarizes one import run.
type ImportStats struct {
	Source string `json:"source"`
	Lines  int64  `json:"lines"`
	// Resumed counts lines skipped because a checkpoint covered them.
	Resumed  int64 `json:"resumed"`
	Imported int   `json:"imported"`
	// Skipped counts unparsable or invalid lines.
	Skipped int `json:"skipped"`
	// Dropped counts malformed embeddings discarded from imported turns.
	Dropped int `json:"dropped"`
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParsePublishedAt parses the publication dates found in transcript sources.
// Values without an offset are taken as UTC.
func ParsePublishedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q", core.ErrMissingPublishedAt, s)
}

// ImportTranscripts reads transcript lines from r and stores them.
func (p *Pipeline) ImportTranscripts(ctx context.Context, source string, r io.Reader) (*ImportStats, error) {
	return importLines(ctx, p, source, r, func(line *TranscriptLine, stats *ImportStats) (*core.Transcript, bool) {
		published, err := ParsePublishedAt(line.PublishedAt)
		if err != nil {
			p.logger.Warn("skipping transcript", "source", source, "doc_id", line.DocID, "err", err)
			return nil, false
		}
		t := &core.Transcript{
			DocID:       strings.TrimSpace(line.DocID),
			Title:       strings.TrimSpace(line.Title),
			Href:        strings.TrimSpace(line.Href),
			PublishedAt: published,
		}
		if err := core.ValidateTranscript(t); err != nil {
			p.logger.Warn("skipping transcript", "source", source, "doc_id", line.DocID, "err", err)
			return nil, false
		}
		return t, true
	}, p.AddTranscripts)
}

// ImportTurns reads speech turn lines from r, stores them and schedules
// embedding for turns that arrive without a usable vector. A malformed
// embedding is dropped with a warning and the turn is imported without it.
func (p *Pipeline) ImportTurns(ctx context.Context, source string, r io.Reader) (*ImportStats, error) {
	return importLines(ctx, p, source, r, func(line *TurnLine, stats *ImportStats) (*core.SpeechTurn, bool) {
		turn := &core.SpeechTurn{
			DocID:             strings.TrimSpace(line.DocID),
			Sequence:          line.Sequence,
			SpeakerRaw:        strings.TrimSpace(line.SpeakerRaw),
			SpeakerNormalized: strings.TrimSpace(line.SpeakerNormalized),
			Role:              strings.TrimSpace(line.Role),
			Text:              line.Text,
		}
		if line.Embedding.Valid() || line.Embedding.Text != "" {
			vec, err := line.Embedding.Resolve()
			if err != nil {
				stats.Dropped++
				p.logger.Warn("dropping malformed embedding", "source", source,
					"doc_id", turn.DocID, "sequence", turn.Sequence, "err", err)
			} else {
				turn.Vector = vec
			}
		}
		if err := core.ValidateSpeechTurn(turn); err != nil {
			p.logger.Warn("skipping speech turn", "source", source,
				"doc_id", turn.DocID, "sequence", turn.Sequence, "err", err)
			return nil, false
		}
		return turn, true
	}, p.Ingest)
}

// importLines drives a JSONL import: it resumes after the checkpointed line,
// converts each line, stores converted values in batches and advances the
// checkpoint after every stored batch.
func importLines[L any, V any](
	ctx context.Context,
	p *Pipeline,
	source string,
	r io.Reader,
	convert func(*L, *ImportStats) (V, bool),
	store func(context.Context, ...V) error,
) (*ImportStats, error) {
	stats := &ImportStats{Source: source}

	var resumeAfter int64
	if p.checkpoints != nil {
		cp, err := p.checkpoints.LoadCheckpoint(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint for %s: %w", source, err)
		}
		if cp != nil {
			resumeAfter = cp.LastLine
			p.logger.Info("resuming import", "source", source, "after_line", resumeAfter)
		}
	}

	batch := make([]V, 0, DefaultImportBatchSize)
	flush := func(lineNo int64) error {
		if len(batch) > 0 {
			if err := store(ctx, batch...); err != nil {
				return fmt.Errorf("storing batch ending at line %d: %w", lineNo, err)
			}
			stats.Imported += len(batch)
			batch = batch[:0]
		}
		return p.saveCheckpoint(ctx, source, lineNo)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lineNo int64
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		lineNo++
		stats.Lines++
		if lineNo <= resumeAfter {
			stats.Resumed++
			continue
		}

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var line L
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			stats.Skipped++
			p.logger.Warn("skipping unparsable line", "source", source, "line", lineNo, "err", err)
			continue
		}
		value, ok := convert(&line, stats)
		if !ok {
			stats.Skipped++
			continue
		}

		batch = append(batch, value)
		if len(batch) == DefaultImportBatchSize {
			if err := flush(lineNo); err != nil {
				return stats, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("reading %s: %w", source, err)
	}
	if lineNo > resumeAfter {
		if err := flush(lineNo); err != nil {
			return stats, err
		}
	}

	p.logger.Info("import finished", "source", source, "lines", stats.Lines,
		"imported", stats.Imported, "skipped", stats.Skipped, "resumed", stats.Resumed)
	return stats, nil
}

func (p *Pipeline) saveCheckpoint(ctx context.Context, source string, lineNo int64) error {
	if p.checkpoints == nil {
		return nil
	}
	err := p.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		Source:    source,
		LastLine:  lineNo,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("saving checkpoint for %s: %w", source, err)
	}
	return nil
}
