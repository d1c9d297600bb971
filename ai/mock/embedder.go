package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/Perruchok/vozpublica/vecmath"
)

// DefaultDimension is the size of vectors produced by the default MockEmbedder.
const DefaultDimension = 384

// MockEmbedder is a test double for ai.Embedder. By default it returns
// DeterministicVector for every text; the func fields override that.
type MockEmbedder struct {
	// EmbedTextFunc replaces the default single-text behavior when set.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc replaces the default batch behavior when set.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension of default vectors. Zero means DefaultDimension.
	Dimension int

	mu       sync.Mutex
	calls    int
	embedded []string
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) record(texts ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.embedded = append(m.embedded, texts...)
	if m.Dimension > 0 {
		return m.Dimension
	}
	return DefaultDimension
}

// EmbedText returns the deterministic vector of text.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	dim := m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return DeterministicVector(text, dim), nil
}

// EmbedTexts returns the deterministic vector of every text, in order.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	dim := m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = DeterministicVector(text, dim)
	}
	return vectors, nil
}

// CallCount returns how many EmbedText and EmbedTexts calls were made.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Embedded returns every text passed to the mock so far, in call order.
func (m *MockEmbedder) Embedded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.embedded...)
}

// Reset forgets recorded calls and removes the injected funcs.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = 0
	m.embedded = nil
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// DeterministicVector derives a unit vector of size dim from text with an
// FNV seeded linear congruential sequence.
func DeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	state := h.Sum32()

	vector := make([]float32, dim)
	for i := range vector {
		state = state*1664525 + 1013904223
		vector[i] = float32(state%1000) / 1000.0
	}
	return vecmath.Normalize(vector)
}
