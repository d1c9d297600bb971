package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Perruchok/vozpublica/core"
	"github.com/Perruchok/vozpublica/vecmath"
)

// Granularity is the time-bucketing unit.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ErrInvalidGranularity is returned when a granularity string is not recognised.
var ErrInvalidGranularity = errors.New("invalid granularity")

// ParseGranularity parses "day", "week" or "month", case-insensitively.
// An empty string yields Month.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return Month, nil
	case Day, Week, Month:
		return g, nil
	default:
		return "", fmt.Errorf("%w: %q (expected day, week or month)", ErrInvalidGranularity, s)
	}
}

// Key returns the period key of t. Keys are fixed-width and zero-padded so
// lexicographic order equals chronological order:
//
//	day   YYYY-MM-DD
//	week  YYYY-MM-DD of the Monday starting the week
//	month YYYY-MM
//
// All keys are computed in UTC.
func (g Granularity) Key(t time.Time) string {
	t = t.UTC()
	switch g {
	case Day:
		return t.Format(time.DateOnly)
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
		return monday.Format(time.DateOnly)
	default:
		return t.Format("2006-01")
	}
}

// Aggregator groups timestamped embeddings into period buckets.
// The first accepted vector fixes the dimension; later vectors of a different
// dimension are dropped like malformed ones.
type Aggregator struct {
	granularity Granularity
	logger      *slog.Logger
	dim         int
	vectors     map[string][][]float32
	warnings    []string
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithAggregatorLogger sets the logger used to report dropped records.
func WithAggregatorLogger(logger *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewAggregator creates an empty aggregator for granularity g.
func NewAggregator(g Granularity, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		granularity: g,
		logger:      slog.Default().With("component", "period-aggregator"),
		vectors:     make(map[string][][]float32),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add places an embedding in the bucket for t. It reports whether the
// embedding was accepted; unparseable or mismatched embeddings are dropped
// and recorded as warnings.
func (a *Aggregator) Add(t time.Time, e core.Embedding) bool {
	vec, err := e.Resolve()
	if err != nil {
		a.warn(t, err.Error())
		return false
	}
	if a.dim == 0 {
		a.dim = len(vec)
	} else if len(vec) != a.dim {
		a.warn(t, fmt.Sprintf("%v: got %d dimensions, expected %d", vecmath.ErrDimensionMismatch, len(vec), a.dim))
		return false
	}

	key := a.granularity.Key(t)
	a.vectors[key] = append(a.vectors[key], vec)
	return true
}

// AddRecords adds every record's embedding bucketed by its publication time.
// It returns the number of records accepted.
func (a *Aggregator) AddRecords(records []core.SpeechTurnRecord) int {
	accepted := 0
	for i := range records {
		if a.Add(records[i].PublishedAt, records[i].Embedding) {
			accepted++
		}
	}
	return accepted
}

func (a *Aggregator) warn(t time.Time, msg string) {
	w := fmt.Sprintf("dropped record at %s: %s", t.UTC().Format(time.RFC3339), msg)
	a.warnings = append(a.warnings, w)
	a.logger.Warn("dropping malformed embedding", "published_at", t, "error", msg)
}

// Periods returns the keys of non-empty buckets in chronological order.
func (a *Aggregator) Periods() []string {
	keys := make([]string, 0, len(a.vectors))
	for k := range a.vectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Vectors returns the vectors assigned to each period.
func (a *Aggregator) Vectors() map[string][][]float32 {
	return a.vectors
}

// Counts returns the number of vectors in each period.
func (a *Aggregator) Counts() map[string]int {
	counts := make(map[string]int, len(a.vectors))
	for k, v := range a.vectors {
		counts[k] = len(v)
	}
	return counts
}

// Centroids returns the mean vector of every non-empty bucket.
func (a *Aggregator) Centroids() map[string][]float32 {
	centroids := make(map[string][]float32, len(a.vectors))
	for k, v := range a.vectors {
		// Add guarantees non-empty buckets with a single dimension.
		mean, err := vecmath.Mean(v)
		if err != nil {
			continue
		}
		centroids[k] = mean
	}
	return centroids
}

// Warnings returns a message per dropped record, in the order they were dropped.
func (a *Aggregator) Warnings() []string {
	return a.warnings
}

// Dimension returns the vector dimension fixed by the first accepted record,
// or 0 if nothing was accepted.
func (a *Aggregator) Dimension() int {
	return a.dim
}
