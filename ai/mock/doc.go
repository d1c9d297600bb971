// Package mock provides test double implementations of AI service interfaces.
//
// The mocks let tests run without a model host and with deterministic output.
//
//	mockEmbedder := mock.NewMockEmbedder()
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1, 0}, nil
//	}
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: unit vectors derived from an FNV hash of the text
//   - MockExplainer: a well-formed DriftAnalysis mentioning concept and score
//   - MockAnswerer: echoes the question
//   - MockProvider: aggregates the three
package mock
