package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/internal/api"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// classifierMaxTokens bounds the classification call; the decision block
// is small.
const classifierMaxTokens = 1024

// historyHintTurns is how many recent user turns are summarized into the
// classification prompt.
const historyHintTurns = 3

// completeFunc performs one classification call and returns the raw
// response text. Injectable for tests.
type completeFunc func(ctx context.Context, system, input string) (string, error)

// ModelClassifier asks a model to pick an agent, constrained to the
// structured-output wire shape.
type ModelClassifier struct {
	resolver Resolver
	roster   func() []models.AgentInfo
	complete completeFunc
}

// ModelClassifierConfig contains configuration for a ModelClassifier.
type ModelClassifierConfig struct {
	// Client is the shared Anthropic client. Required.
	Client *api.Client
	// Model overrides the client's default model when set.
	Model anthropic.Model
	// Resolver maps decision names to registered agents. Required.
	Resolver Resolver
	// Roster lists the registered agents for the prompt. Required.
	Roster func() []models.AgentInfo
}

// NewModelClassifier creates a model-backed classifier.
func NewModelClassifier(cfg ModelClassifierConfig) (*ModelClassifier, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("model classifier: client is required")
	}
	if cfg.Resolver == nil || cfg.Roster == nil {
		return nil, fmt.Errorf("model classifier: resolver and roster are required")
	}

	model := cfg.Model
	if model == "" {
		model = cfg.Client.Model()
	} else {
		model = cfg.Client.TranslateModel(model)
	}

	c := &ModelClassifier{
		resolver: cfg.Resolver,
		roster:   cfg.Roster,
	}
	c.complete = func(ctx context.Context, system, input string) (string, error) {
		resp, err := cfg.Client.Complete(ctx, anthropic.MessageNewParams{
			Model:     model,
			MaxTokens: classifierMaxTokens,
			System:    []anthropic.TextBlockParam{{Text: system}},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(input)),
			},
		})
		if err != nil {
			return "", err
		}
		var sb strings.Builder
		for _, block := range resp.Content {
			if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
				sb.WriteString(variant.Text)
			}
		}
		return sb.String(), nil
	}
	return c, nil
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, input string, history []models.Message) (Result, error) {
	response, err := c.complete(ctx, c.systemPrompt(history), input)
	if err != nil {
		return Result{}, fmt.Errorf("classification call: %w", err)
	}

	out, err := parseStructuredOutput(response)
	if err != nil {
		return Result{}, err
	}

	// An unknown agent name is a decision, not a failure: preserve the
	// confidence so the caller can tell the two apart.
	return Result{
		Agent:      c.resolver(out.SelectedAgent),
		Confidence: *out.Confidence,
	}, nil
}

// systemPrompt builds the constrained classification prompt from the
// current roster and a short hint of recent user turns.
func (c *ModelClassifier) systemPrompt(history []models.Message) string {
	var sb strings.Builder
	sb.WriteString("You route user input to exactly one of the following agents.\n\nAgents:\n")
	for _, info := range c.roster() {
		fmt.Fprintf(&sb, "- %s: %s\n", info.Name, info.Description)
	}

	if hint := historyHint(history); hint != "" {
		sb.WriteString("\nRecent user turns for context:\n")
		sb.WriteString(hint)
	}

	sb.WriteString("\nRespond with exactly one block of the form:\n")
	sb.WriteString(structuredOpenTag)
	sb.WriteString(`{"userinput": "<the input>", "selected_agent": "<agent name>", "confidence": <0..1>}`)
	sb.WriteString(structuredCloseTag)
	sb.WriteString("\nDo not emit anything else inside the block.")
	return sb.String()
}

// historyHint extracts the last few user turns, newest last.
func historyHint(history []models.Message) string {
	var turns []string
	for _, m := range history {
		if m.Role == models.RoleUser {
			if text := m.Text(); text != "" {
				turns = append(turns, "- "+text)
			}
		}
	}
	if len(turns) > historyHintTurns {
		turns = turns[len(turns)-historyHintTurns:]
	}
	return strings.Join(turns, "\n")
}
