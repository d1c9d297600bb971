package mock

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/Perruchok/vozpublica/ai"
)

// MockExplainer is a test double for ai.DriftExplainer.
type MockExplainer struct {
	// ExplainDriftFunc is called by ExplainDrift if set.
	// If nil, returns a fixed analysis mentioning the concept and score.
	ExplainDriftFunc func(ctx context.Context, input ai.ExplainInput) (*ai.DriftAnalysis, error)

	callCount atomic.Int64
	last      atomic.Pointer[ai.ExplainInput]
}

// NewMockExplainer creates a mock explainer with default behavior.
func NewMockExplainer() *MockExplainer {
	return &MockExplainer{}
}

// ExplainDrift returns a canned analysis or delegates to ExplainDriftFunc.
func (m *MockExplainer) ExplainDrift(ctx context.Context, input ai.ExplainInput) (*ai.DriftAnalysis, error) {
	m.callCount.Add(1)
	m.last.Store(&input)

	if m.ExplainDriftFunc != nil {
		return m.ExplainDriftFunc(ctx, input)
	}

	return &ai.DriftAnalysis{
		CoreFraming: ai.CoreFraming{
			FirstPeriod:  fmt.Sprintf("%s framing before", input.Concept),
			SecondPeriod: fmt.Sprintf("%s framing after", input.Concept),
		},
		GainedProminence: []string{},
		LostProminence:   []string{},
		OverallShift:     fmt.Sprintf("drift of %.2f", input.DriftScore),
	}, nil
}

// LastInput returns the input of the most recent call, or nil.
func (m *MockExplainer) LastInput() *ai.ExplainInput {
	return m.last.Load()
}

// CallCount returns the number of times ExplainDrift was called.
func (m *MockExplainer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockExplainer) Reset() {
	m.callCount.Store(0)
	m.last.Store(nil)
	m.ExplainDriftFunc = nil
}
