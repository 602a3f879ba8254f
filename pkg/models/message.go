// Package models contains the shared data model for Switchboard:
// conversation messages, content blocks, and agent metadata.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message authored by the end user (or a tool result
	// fed back on the user's side of the exchange).
	RoleUser Role = "user"
	// RoleAssistant marks a message authored by an agent.
	RoleAssistant Role = "assistant"
)

// Valid returns true if the role is a known value.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// BlockType tags a ContentBlock variant.
type BlockType string

const (
	// BlockText is plain text content.
	BlockText BlockType = "text"
	// BlockToolUse is an agent's mid-turn request to invoke a tool.
	BlockToolUse BlockType = "tool_use"
	// BlockToolResult carries the outcome of a prior tool invocation.
	BlockToolResult BlockType = "tool_result"
)

// ToolResultStatus indicates whether a tool invocation succeeded.
type ToolResultStatus string

const (
	// ToolResultSuccess marks a successful tool invocation.
	ToolResultSuccess ToolResultStatus = "success"
	// ToolResultError marks a failed tool invocation.
	ToolResultError ToolResultStatus = "error"
)

// ContentBlock is one tagged variant in a message's content sequence.
// Only the fields for the tagged variant are populated. Blocks are value
// objects: once part of a message they are never mutated.
type ContentBlock struct {
	// Type tags which variant this block is.
	Type BlockType `json:"type"`
	// Text is the text content (BlockText only).
	Text string `json:"text,omitempty"`
	// ID is the tool invocation identifier (BlockToolUse only).
	ID string `json:"id,omitempty"`
	// Name is the tool name (BlockToolUse only).
	Name string `json:"name,omitempty"`
	// Input is the raw JSON tool input (BlockToolUse only).
	Input json.RawMessage `json:"input,omitempty"`
	// ToolUseID references the ToolUse block this result answers
	// (BlockToolResult only).
	ToolUseID string `json:"tool_use_id,omitempty"`
	// Payload is the tool output (BlockToolResult only).
	Payload string `json:"payload,omitempty"`
	// Status is the tool outcome (BlockToolResult only).
	Status ToolResultStatus `json:"status,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ToolUseBlock creates a tool-use content block.
func ToolUseBlock(id, name string, input json.RawMessage) ContentBlock {
	return ContentBlock{Type: BlockToolUse, ID: id, Name: name, Input: input}
}

// ToolResultBlock creates a tool-result content block.
func ToolResultBlock(toolUseID, payload string, status ToolResultStatus) ContentBlock {
	return ContentBlock{Type: BlockToolResult, ToolUseID: toolUseID, Payload: payload, Status: status}
}

// Equal reports structural equality between two blocks.
func (b ContentBlock) Equal(other ContentBlock) bool {
	return b.Type == other.Type &&
		b.Text == other.Text &&
		b.ID == other.ID &&
		b.Name == other.Name &&
		bytes.Equal(b.Input, other.Input) &&
		b.ToolUseID == other.ToolUseID &&
		b.Payload == other.Payload &&
		b.Status == other.Status
}

// Message is one canonical conversation turn. Messages are immutable once
// appended to a history; callers build new messages rather than editing
// stored ones.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the ordered sequence of content blocks. Never empty for
	// a valid message.
	Content []ContentBlock `json:"content"`
}

// UserText creates a user message with a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}}
}

// AssistantText creates an assistant message with a single text block.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}}
}

// NewMessage creates a message with the given role and blocks.
func NewMessage(role Role, blocks ...ContentBlock) Message {
	return Message{Role: role, Content: blocks}
}

// Text returns the concatenation of all text blocks in the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.Type == BlockText {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool-use blocks in the message, in order.
func (m Message) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			uses = append(uses, b)
		}
	}
	return uses
}

// HasToolUse returns true if the message contains any tool-use block.
func (m Message) HasToolUse() bool {
	for _, b := range m.Content {
		if b.Type == BlockToolUse {
			return true
		}
	}
	return false
}

// Equal reports structural equality between two messages.
func (m Message) Equal(other Message) bool {
	if m.Role != other.Role || len(m.Content) != len(other.Content) {
		return false
	}
	for i := range m.Content {
		if !m.Content[i].Equal(other.Content[i]) {
			return false
		}
	}
	return true
}

// MalformedMessageError reports a message that violates the content
// invariants.
type MalformedMessageError struct {
	// Reason describes the violated invariant.
	Reason string
}

// Error implements the error interface.
func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s", e.Reason)
}

// Validate checks the message's local invariants: a known role and a
// non-empty content sequence.
func (m Message) Validate() error {
	if !m.Role.Valid() {
		return &MalformedMessageError{Reason: fmt.Sprintf("unknown role %q", m.Role)}
	}
	if len(m.Content) == 0 {
		return &MalformedMessageError{Reason: "empty content"}
	}
	return nil
}

// ValidateExchange checks a sequence of messages forming one logical turn.
// Beyond per-message validation, every tool-result block must reference a
// tool-use id that appeared in a prior assistant message of the sequence.
func ValidateExchange(msgs []Message) error {
	seen := make(map[string]bool)
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return err
		}
		for _, b := range m.Content {
			switch b.Type {
			case BlockToolUse:
				if m.Role != RoleAssistant {
					return &MalformedMessageError{Reason: fmt.Sprintf("tool_use in %s message at index %d", m.Role, i)}
				}
				seen[b.ID] = true
			case BlockToolResult:
				if !seen[b.ToolUseID] {
					return &MalformedMessageError{Reason: fmt.Sprintf("tool_result references unknown tool_use id %q", b.ToolUseID)}
				}
			}
		}
	}
	return nil
}
