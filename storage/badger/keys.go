package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/Perruchok/vozpublica/core"
)

// Key prefixes for different data types. No prefix is a prefix of another,
// so a prefix scan never crosses into a different keyspace.
const (
	turnPrefix        = "turn:"
	turnDatePrefix    = "turnd:"
	turnDocPrefix     = "turndoc:"
	transcriptPrefix  = "trans:"
	checkpointPrefix  = "chkpt:"
	signBit           = uint64(1) << 63
	sequenceKeyLength = 8
)

// makeTurnKey generates a key for a speech turn by ID.
func makeTurnKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", turnPrefix, id))
}

// encodeTime maps t to a uint64 whose BigEndian bytes sort chronologically,
// including dates before 1970.
func encodeTime(t time.Time) uint64 {
	return uint64(t.UnixMicro()) ^ signBit
}

// makeTurnDateKey generates a composite key for the publication date index.
// Format: prefix + timestamp + id
func makeTurnDateKey(publishedAt time.Time, id core.ID) []byte {
	buf := make([]byte, len(turnDatePrefix)+16)
	offset := copy(buf, turnDatePrefix)
	// BigEndian so lexicographic order is chronological
	binary.BigEndian.PutUint64(buf[offset:], encodeTime(publishedAt))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialTurnDateKey generates a partial key for date range scans.
// Format: prefix + timestamp
func makePartialTurnDateKey(publishedAt time.Time) []byte {
	buf := make([]byte, len(turnDatePrefix)+8)
	offset := copy(buf, turnDatePrefix)
	binary.BigEndian.PutUint64(buf[offset:], encodeTime(publishedAt))
	return buf
}

// makeTurnDocPrefix generates the index prefix shared by all turns of a document.
// Format: prefix + docID + 0x00
func makeTurnDocPrefix(docID string) []byte {
	buf := make([]byte, 0, len(turnDocPrefix)+len(docID)+1)
	buf = append(buf, turnDocPrefix...)
	buf = append(buf, docID...)
	return append(buf, 0)
}

// makeTurnDocKey generates a composite key for the document index.
// Format: prefix + docID + 0x00 + sequence
func makeTurnDocKey(docID string, sequence int) []byte {
	prefix := makeTurnDocPrefix(docID)
	buf := make([]byte, len(prefix)+sequenceKeyLength)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(sequence))
	return buf
}

// makeTranscriptKey generates a key for a transcript by document id.
func makeTranscriptKey(docID string) []byte {
	return []byte(fmt.Sprintf("%s%d", transcriptPrefix, core.IDFromContent(docID)))
}

// makeCheckpointKey generates a key for an import source checkpoint.
func makeCheckpointKey(source string) []byte {
	return []byte(checkpointPrefix + source)
}
