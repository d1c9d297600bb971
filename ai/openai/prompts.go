package openai

import (
	"fmt"
	"strings"

	"github.com/Perruchok/vozpublica/ai"
)

const explainerSystemPrompt = `You are a discourse analyst assisting with semantic analysis.
You MUST rely ONLY on the provided excerpts.
Do NOT speculate beyond the text.
Cite specific phrases or patterns when making claims.
IMPORTANT: Respond in SPANISH unless the concept being analyzed is in English.
Respond in JSON format.`

const explainerPromptTemplate = `We measured a semantic drift score of %.2f for the concept "%s" between two time periods.

TASK:
1. Compare how the concept is framed in each period.
2. Identify changes in emphasis, scope, or framing.
3. Point to concrete textual evidence.
4. Explain how these differences plausibly account for the measured drift.
5. When citing excerpts, include the reference links provided (Ref: [doc_id](url)) to support your claims.

FIRST PERIOD EXCERPTS:
%s

SECOND PERIOD EXCERPTS:
%s

Output ONLY a JSON object that complies with this schema. Do not include any preamble or text outside the object:

%s

IMPORTANT:
- Use exact key names: core_framing, gained_prominence, lost_prominence, overall_shift
- gained_prominence and lost_prominence are arrays of short strings; use [] when nothing applies
- Include reference links in markdown format: [doc_id](url)
- Keep text concise but grounded in evidence`

const answererSystemPrompt = `You are an assistant that answers questions using ONLY the provided context. ` +
	`If the answer is not contained in the context, say you don't know. ` +
	`Cite the source when relevant.`

const noExcerpts = "(no excerpts)"

// buildExplainerPrompt renders the user prompt for a drift explanation.
func buildExplainerPrompt(input ai.ExplainInput) string {
	return fmt.Sprintf(explainerPromptTemplate,
		input.DriftScore,
		input.Concept,
		orPlaceholder(input.PreExcerpts),
		orPlaceholder(input.PostExcerpts),
		ai.DriftAnalysisSchema())
}

func orPlaceholder(block string) string {
	if strings.TrimSpace(block) == "" {
		return noExcerpts
	}
	return block
}

// buildContextPrompt wraps retrieved context for the answerer.
func buildContextPrompt(contextBlock string) string {
	return "Context:\n" + contextBlock
}
