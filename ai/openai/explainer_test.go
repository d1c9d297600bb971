package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/Perruchok/vozpublica/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays canned responses and records call options.
type fakeModel struct {
	responses []string
	err       error
	calls     int
	options   llms.CallOptions
	messages  []llms.MessageContent
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	f.calls++
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.responses[i]}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", errors.New("not used")
}

const goodAnalysis = `{"core_framing":{"first_period":"orden [a](u)","second_period":"salud [b](v)"},"gained_prominence":["vacunas"],"lost_prominence":["policía"],"overall_shift":"cambio"}`

func testInput() ai.ExplainInput {
	return ai.ExplainInput{
		Concept:      "seguridad",
		DriftScore:   0.1234,
		PreExcerpts:  "- (2020-01-02) [Ana] texto (Ref: [a](u))",
		PostExcerpts: "",
	}
}

func TestExplainDrift_Success(t *testing.T) {
	model := &fakeModel{responses: []string{"```json\n" + goodAnalysis + "\n```"}}
	explainer := newDriftExplainerWithModel(model, ai.DefaultConfig())

	got, err := explainer.ExplainDrift(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "orden [a](u)", got.CoreFraming.FirstPeriod)
	assert.Equal(t, []string{"policía"}, got.LostProminence)

	assert.True(t, model.options.JSONMode)
	assert.Equal(t, 0.2, model.options.Temperature)
	assert.Equal(t, 1000, model.options.MaxTokens)

	require.Len(t, model.messages, 2)
	prompt := model.messages[1].Parts[0].(llms.TextContent).Text
	assert.Contains(t, prompt, "semantic drift score of 0.12")
	assert.Contains(t, prompt, `concept "seguridad"`)
	assert.Contains(t, prompt, "(Ref: [a](u))")
	assert.Contains(t, prompt, noExcerpts)
	assert.Contains(t, prompt, `"overall_shift"`)
}

func TestExplainDrift_RetriesMalformed(t *testing.T) {
	model := &fakeModel{responses: []string{`{"summary":"x"}`, goodAnalysis}}
	explainer := newDriftExplainerWithModel(model, ai.DefaultConfig())

	got, err := explainer.ExplainDrift(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "cambio", got.OverallShift)
	assert.Equal(t, 2, model.calls)
}

func TestExplainDrift_GivesUp(t *testing.T) {
	model := &fakeModel{responses: []string{`not json at all`}}
	explainer := newDriftExplainerWithModel(model, ai.DefaultConfig())

	_, err := explainer.ExplainDrift(context.Background(), testInput())
	assert.ErrorIs(t, err, ai.ErrMalformedAnalysis)
	assert.Equal(t, maxParseAttempts, model.calls)
}

func TestExplainDrift_TransportError(t *testing.T) {
	boom := errors.New("connection refused")
	model := &fakeModel{err: boom}
	explainer := newDriftExplainerWithModel(model, ai.DefaultConfig())

	_, err := explainer.ExplainDrift(context.Background(), testInput())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ai.ErrMalformedAnalysis)
}

func TestAnswer(t *testing.T) {
	model := &fakeModel{responses: []string{"  No lo sé.  "}}
	answerer := newAnswererWithModel(model, ai.DefaultConfig())

	got, err := answerer.Answer(context.Background(), "¿Qué dijo?", "[doc | ANA]\ntexto")
	require.NoError(t, err)
	assert.Equal(t, "No lo sé.", got)
	assert.Equal(t, 600, model.options.MaxTokens)
	assert.False(t, model.options.JSONMode)

	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[1].Role)
	assert.Equal(t, "Context:\n[doc | ANA]\ntexto", model.messages[1].Parts[0].(llms.TextContent).Text)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[2].Role)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid json untouched", goodAnalysis, goodAnalysis},
		{"missing opening quote", `{"a":"x", overall_shift":"y"}`, `{"a":"x", "overall_shift":"y"}`},
		{"comma inside value", `{"a":"uno, dos"}`, `{"a":"uno, dos"}`},
		{"bare key after brace", `{ overall_shift":"y"}`, `{ "overall_shift":"y"}`},
		{"typographic quotes", `{“a”: “dijo \"no\"”}`, `{"a": "dijo \"no\""}`},
		{"trailing commas", `{"a":["x","y",],}`, `{"a":["x","y"]}`},
		{"quote inside string kept", `{"a":"la “seguridad”"}`, `{"a":"la “seguridad”"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.input))
		})
	}
}
