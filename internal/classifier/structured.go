package classifier

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Structured-output block delimiters. The model is instructed to wrap its
// decision JSON in exactly one of these blocks.
const (
	structuredOpenTag  = "<structured_output>"
	structuredCloseTag = "</structured_output>"
)

// structuredOutput is the classification wire shape. Every field is
// required; any deviation is a parse error, not a best-effort coercion.
type structuredOutput struct {
	UserInput     string   `json:"userinput"`
	SelectedAgent string   `json:"selected_agent"`
	Confidence    *float64 `json:"confidence"`
}

// parseStructuredOutput locates exactly one structured-output block in the
// response text and decodes it. Zero blocks yields ErrNoStructuredOutput;
// a present but invalid block yields MalformedStructuredOutputError.
func parseStructuredOutput(response string) (structuredOutput, error) {
	var out structuredOutput

	start := strings.Index(response, structuredOpenTag)
	if start < 0 {
		return out, ErrNoStructuredOutput
	}
	if strings.Contains(response[start+len(structuredOpenTag):], structuredOpenTag) {
		return out, &MalformedStructuredOutputError{Reason: "multiple structured output blocks"}
	}

	rest := response[start+len(structuredOpenTag):]
	end := strings.Index(rest, structuredCloseTag)
	if end < 0 {
		return out, &MalformedStructuredOutputError{Reason: "unterminated structured output block"}
	}

	raw := strings.TrimSpace(rest[:end])
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return structuredOutput{}, &MalformedStructuredOutputError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	var missing []string
	if out.UserInput == "" {
		missing = append(missing, "userinput")
	}
	if out.SelectedAgent == "" {
		missing = append(missing, "selected_agent")
	}
	if out.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if len(missing) > 0 {
		return structuredOutput{}, &MalformedStructuredOutputError{
			Reason: "missing required fields: " + strings.Join(missing, ", "),
		}
	}
	if *out.Confidence < 0 || *out.Confidence > 1 {
		return structuredOutput{}, &MalformedStructuredOutputError{
			Reason: fmt.Sprintf("confidence %v outside [0,1]", *out.Confidence),
		}
	}

	return out, nil
}
