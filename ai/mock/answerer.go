package mock

import (
	"context"
	"sync/atomic"
)

// MockAnswerer is a test double for ai.Answerer.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set.
	// If nil, echoes the question and the context size.
	AnswerFunc func(ctx context.Context, question, contextBlock string) (string, error)

	callCount   atomic.Int64
	lastContext atomic.Value
}

// NewMockAnswerer creates a mock answerer with default behavior.
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer returns a canned answer or delegates to AnswerFunc.
func (m *MockAnswerer) Answer(ctx context.Context, question, contextBlock string) (string, error) {
	m.callCount.Add(1)
	m.lastContext.Store(contextBlock)

	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, contextBlock)
	}
	return "answer: " + question, nil
}

// LastContext returns the context block of the most recent call.
func (m *MockAnswerer) LastContext() string {
	s, _ := m.lastContext.Load().(string)
	return s
}

// CallCount returns the number of times Answer was called.
func (m *MockAnswerer) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockAnswerer) Reset() {
	m.callCount.Store(0)
	m.lastContext.Store("")
	m.AnswerFunc = nil
}
