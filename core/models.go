package core

//go:generate go run ../cmd/musgen

import (
	"encoding/binary"
	"strconv"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is derived from content using BLAKE2b so re-imports are idempotent.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// TurnID returns the identifier of the speech turn at position seq of a document.
func TurnID(docID string, seq int) ID {
	return IDFromContent(docID + "#" + strconv.Itoa(seq))
}

// Transcript is a published document, such as a press-conference stenographic
// version, made up of speech turns.
type Transcript struct {
	Id          ID
	DocID       string    // External document identifier
	Title       string
	Href        string    // Source URL, may be empty
	PublishedAt time.Time // Publication date of the document
	InsertedAt  time.Time
	UpdatedAt   time.Time
}

// SpeechTurn is one contiguous intervention by a speaker inside a transcript.
type SpeechTurn struct {
	Id                ID
	DocID             string
	Sequence          int
	SpeakerRaw        string // Speaker label as printed in the transcript
	SpeakerNormalized string // Canonical person name, may be empty
	Role              string // Position or title of the speaker, may be empty
	Text              string
	Vector            []float32 // Embedding of Text, empty until embedded
	PublishedAt       time.Time // Copied from the owning transcript for date-range scans
	InsertedAt        time.Time
	UpdatedAt         time.Time
}

// HasVector reports whether the turn carries an embedding.
func (t *SpeechTurn) HasVector() bool {
	return len(t.Vector) > 0
}

// SpeakerIdentity returns the normalized speaker name, falling back to the raw label.
func (t *SpeechTurn) SpeakerIdentity() string {
	if t.SpeakerNormalized != "" {
		return t.SpeakerNormalized
	}
	return t.SpeakerRaw
}

// SpeechTurnRecord is a speech turn joined with its transcript metadata, as
// returned by similarity queries. Similarity is relative to the query vector.
type SpeechTurnRecord struct {
	DocID             string
	Sequence          int
	SpeakerRaw        string
	SpeakerNormalized string
	Role              string
	Text              string
	Embedding         Embedding
	PublishedAt       time.Time
	Title             string
	Href              string
	Similarity        float64
}

// SpeakerLabel returns the label used when quoting this record.
func (r *SpeechTurnRecord) SpeakerLabel() string {
	switch {
	case r.SpeakerNormalized != "":
		return r.SpeakerNormalized
	case r.SpeakerRaw != "":
		return r.SpeakerRaw
	default:
		return "unknown"
	}
}

// Checkpoint records import progress for a named source so interrupted
// imports can resume.
type Checkpoint struct {
	Source    string
	LastLine  int64
	UpdatedAt time.Time
}
