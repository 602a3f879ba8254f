package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/switchboard-dev/switchboard/internal/api"
	"github.com/switchboard-dev/switchboard/pkg/models"
)

// defaultMaxTokens bounds each model call's output.
const defaultMaxTokens = 4096

// ModelAgentConfig contains configuration for a model-backed agent.
type ModelAgentConfig struct {
	// Name is the agent's human-readable name; its ID is derived from it.
	Name string
	// Description tells the classifier what this agent handles.
	Description string
	// SystemPrompt configures the underlying model's behavior. Replaceable
	// after registration via SetSystemPrompt.
	SystemPrompt string
	// Model overrides the client's default model when set.
	Model anthropic.Model
	// Client is the shared Anthropic client. Required.
	Client *api.Client
	// MaxTokens bounds each call's output; defaults to 4096.
	MaxTokens int64
	// Streaming makes the agent yield fragments via ProcessStream.
	Streaming bool
	// Toolset registers tools the model may call mid-turn. Optional.
	Toolset *Toolset
	// MaxRecursions bounds the tool-use exchange; defaults to
	// DefaultToolMaxRecursions.
	MaxRecursions int
	// Retriever prepends external context before each call. Optional.
	Retriever Retriever
}

// ModelAgent answers turns through the Anthropic API. It supports the
// bounded tool-use exchange and lazy fragment streaming.
type ModelAgent struct {
	info          models.AgentInfo
	client        *api.Client
	model         anthropic.Model
	systemPrompt  string
	maxTokens     int64
	toolset       *Toolset
	maxRecursions int
	retriever     Retriever
}

// NewModelAgent creates a model-backed agent.
func NewModelAgent(cfg ModelAgentConfig) (*ModelAgent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("model agent: name is required")
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("model agent %q: client is required", cfg.Name)
	}

	model := cfg.Model
	if model == "" {
		model = cfg.Client.Model()
	} else {
		model = cfg.Client.TranslateModel(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	usesTools := cfg.Toolset != nil && cfg.Toolset.Len() > 0

	return &ModelAgent{
		info: models.AgentInfo{
			ID:          models.DeriveAgentID(cfg.Name),
			Name:        cfg.Name,
			Description: cfg.Description,
			Capabilities: models.Capabilities{
				Streaming:     cfg.Streaming,
				UsesTools:     usesTools,
				UsesRetrieval: cfg.Retriever != nil,
			},
		},
		client:        cfg.Client,
		model:         model,
		systemPrompt:  cfg.SystemPrompt,
		maxTokens:     maxTokens,
		toolset:       cfg.Toolset,
		maxRecursions: cfg.MaxRecursions,
		retriever:     cfg.Retriever,
	}, nil
}

// Info implements Agent.
func (a *ModelAgent) Info() models.AgentInfo {
	return a.info
}

// SetSystemPrompt replaces the agent's system prompt. This is the only
// post-registration mutation an agent supports.
func (a *ModelAgent) SetSystemPrompt(prompt string) {
	a.systemPrompt = prompt
}

// Process implements Agent.
func (a *ModelAgent) Process(ctx context.Context, req Request) (*models.Message, error) {
	conversation, err := a.buildConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	var reply models.Message
	if a.info.Capabilities.UsesTools {
		reply, err = RunToolLoop(ctx, conversation, a.round, a.toolset, a.maxRecursions)
	} else {
		reply, err = a.round(ctx, conversation)
	}
	if err != nil {
		return nil, &ProcessError{AgentName: a.info.Name, Err: err}
	}
	if err := reply.Validate(); err != nil {
		return nil, &ProcessError{AgentName: a.info.Name, Err: ErrEmptyReply}
	}
	return &reply, nil
}

// ProcessStream implements Streamer. For tool-capable agents the tool
// rounds resolve through non-streaming calls and the final reply's text
// blocks are emitted as fragments; plain agents stream straight from the
// transport.
func (a *ModelAgent) ProcessStream(ctx context.Context, req Request) (<-chan string, error) {
	if !a.info.Capabilities.Streaming {
		return nil, &ProcessError{AgentName: a.info.Name, Err: fmt.Errorf("agent is not streaming-capable")}
	}

	conversation, err := a.buildConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	if a.info.Capabilities.UsesTools {
		reply, err := RunToolLoop(ctx, conversation, a.round, a.toolset, a.maxRecursions)
		if err != nil {
			return nil, &ProcessError{AgentName: a.info.Name, Err: err}
		}
		out := make(chan string, len(reply.Content))
		go func() {
			defer close(out)
			for _, b := range reply.Content {
				if b.Type != models.BlockText || b.Text == "" {
					continue
				}
				select {
				case out <- b.Text:
				case <-ctx.Done():
					return
				}
			}
		}()
		return out, nil
	}

	stream := a.client.Stream(ctx, a.params(conversation))
	out := make(chan string)
	go func() {
		defer close(out)
		var accumulated anthropic.Message
		for stream.Next() {
			event := stream.Current()
			if err := accumulated.Accumulate(event); err != nil {
				log.Printf("[agent] %s: accumulate stream event: %v", a.info.Name, err)
			}
			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				switch delta := ev.Delta.AsAny().(type) {
				case anthropic.TextDelta:
					if delta.Text == "" {
						continue
					}
					select {
					case out <- delta.Text:
					case <-ctx.Done():
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			log.Printf("[agent] %s: stream failed: %v", a.info.Name, err)
			return
		}
		a.client.Tracker().Add(accumulated.Usage.InputTokens, accumulated.Usage.OutputTokens)
	}()
	return out, nil
}

// buildConversation appends the (possibly retrieval-augmented) user turn
// to the bounded history.
func (a *ModelAgent) buildConversation(ctx context.Context, req Request) ([]models.Message, error) {
	input := req.Input
	if a.retriever != nil {
		combined, err := a.retriever.RetrieveAndCombine(ctx, input)
		if err != nil {
			return nil, &ProcessError{AgentName: a.info.Name, Err: fmt.Errorf("retrieve context: %w", err)}
		}
		input = combined
	}

	conversation := make([]models.Message, 0, len(req.History)+1)
	conversation = append(conversation, req.History...)
	conversation = append(conversation, models.UserText(input))
	return conversation, nil
}

// round performs one non-streaming model call.
func (a *ModelAgent) round(ctx context.Context, conversation []models.Message) (models.Message, error) {
	resp, err := a.client.Complete(ctx, a.params(conversation))
	if err != nil {
		return models.Message{}, err
	}
	return fromAPIMessage(resp), nil
}

func (a *ModelAgent) params(conversation []models.Message) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  toAPIMessages(conversation),
	}
	if a.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.systemPrompt}}
	}
	if a.info.Capabilities.UsesTools {
		params.Tools = a.toolset.Definitions()
	}
	return params
}

// toAPIMessages converts canonical messages to SDK message params.
func toAPIMessages(msgs []models.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Type {
			case models.BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case models.BlockToolUse:
				blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
			case models.BlockToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(b.ToolUseID, b.Payload, b.Status == models.ToolResultError))
			}
		}
		if m.Role == models.RoleUser {
			out = append(out, anthropic.NewUserMessage(blocks...))
		} else {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		}
	}
	return out
}

// fromAPIMessage converts an SDK response to the canonical message form.
func fromAPIMessage(resp *anthropic.Message) models.Message {
	blocks := make([]models.ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, models.TextBlock(variant.Text))
		case anthropic.ToolUseBlock:
			blocks = append(blocks, models.ToolUseBlock(variant.ID, variant.Name, variant.Input))
		}
	}
	return models.NewMessage(models.RoleAssistant, blocks...)
}
