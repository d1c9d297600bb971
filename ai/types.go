package ai

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// ErrMalformedAnalysis is returned when explainer output does not match DriftAnalysis.
var ErrMalformedAnalysis = errors.New("malformed drift analysis")

// CoreFraming describes how the concept is framed in each period.
type CoreFraming struct {
	FirstPeriod  string `json:"first_period" yaml:"first_period" jsonschema:"required,description=How the concept is framed in the first period with citations [doc_id](url)"`
	SecondPeriod string `json:"second_period" yaml:"second_period" jsonschema:"required,description=How the concept is framed in the second period with citations [doc_id](url)"`
}

// DriftAnalysis is the structured explanation of a semantic drift.
type DriftAnalysis struct {
	CoreFraming      CoreFraming `json:"core_framing" yaml:"core_framing" jsonschema:"required"`
	GainedProminence []string    `json:"gained_prominence" yaml:"gained_prominence" jsonschema:"required,description=Themes that gained prominence"`
	LostProminence   []string    `json:"lost_prominence" yaml:"lost_prominence" jsonschema:"required,description=Themes that lost prominence"`
	OverallShift     string      `json:"overall_shift" yaml:"overall_shift" jsonschema:"required,description=Explanation of the shift with citations [doc_id](url)"`
}

// rawAnalysis keeps pointers so missing and null members can be told apart
// from empty ones.
type rawAnalysis struct {
	CoreFraming *struct {
		FirstPeriod  *string `json:"first_period"`
		SecondPeriod *string `json:"second_period"`
	} `json:"core_framing"`
	GainedProminence *[]string `json:"gained_prominence"`
	LostProminence   *[]string `json:"lost_prominence"`
	OverallShift     *string   `json:"overall_shift"`
}

// ParseDriftAnalysis decodes and validates explainer output. Unknown keys,
// missing keys, null arrays and blank strings are all rejected.
func ParseDriftAnalysis(data []byte) (*DriftAnalysis, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var raw rawAnalysis
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAnalysis, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after object", ErrMalformedAnalysis)
	}

	if raw.CoreFraming == nil {
		return nil, fmt.Errorf("%w: core_framing is missing", ErrMalformedAnalysis)
	}
	if err := requireText("core_framing.first_period", raw.CoreFraming.FirstPeriod); err != nil {
		return nil, err
	}
	if err := requireText("core_framing.second_period", raw.CoreFraming.SecondPeriod); err != nil {
		return nil, err
	}
	if err := requireText("overall_shift", raw.OverallShift); err != nil {
		return nil, err
	}
	if raw.GainedProminence == nil || *raw.GainedProminence == nil {
		return nil, fmt.Errorf("%w: gained_prominence must be an array", ErrMalformedAnalysis)
	}
	if raw.LostProminence == nil || *raw.LostProminence == nil {
		return nil, fmt.Errorf("%w: lost_prominence must be an array", ErrMalformedAnalysis)
	}

	return &DriftAnalysis{
		CoreFraming: CoreFraming{
			FirstPeriod:  *raw.CoreFraming.FirstPeriod,
			SecondPeriod: *raw.CoreFraming.SecondPeriod,
		},
		GainedProminence: *raw.GainedProminence,
		LostProminence:   *raw.LostProminence,
		OverallShift:     *raw.OverallShift,
	}, nil
}

func requireText(field string, v *string) error {
	if v == nil || strings.TrimSpace(*v) == "" {
		return fmt.Errorf("%w: %s must be a non-empty string", ErrMalformedAnalysis, field)
	}
	return nil
}

// DriftAnalysisSchema returns the JSON schema of DriftAnalysis, indented for
// inclusion in prompts.
func DriftAnalysisSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
	}
	schema := reflector.Reflect(&DriftAnalysis{})
	schema.Version = ""
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		// Reflected schemas of static types always marshal.
		panic(err)
	}
	return string(b)
}
