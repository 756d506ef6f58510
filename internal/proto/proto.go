// Package proto holds the provider-neutral conversation model exchanged
// between the chat engine and model backends.
package proto

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role of a conversation turn.
type Role string

// Turn roles. Tool results travel in user turns.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind tags a content block.
type Kind string

// Block kinds.
const (
	KindText           Kind = "text"
	KindToolInvocation Kind = "tool_invocation"
	KindToolResult     Kind = "tool_result"
)

// Block is one typed unit of a turn or model response.
type Block interface {
	Kind() Kind
}

// Text is a plain text block.
type Text struct {
	Text string
}

// ToolInvocation is a model's request to run a tool.
type ToolInvocation struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// ToolResult answers the ToolInvocation with the same ID.
type ToolResult struct {
	ID      string
	Content string
	IsError bool
}

// Kind implements Block.
func (Text) Kind() Kind { return KindText }

// Kind implements Block.
func (ToolInvocation) Kind() Kind { return KindToolInvocation }

// Kind implements Block.
func (ToolResult) Kind() Kind { return KindToolResult }

// ArgumentsJSON returns the invocation arguments encoded as a JSON object.
func (t ToolInvocation) ArgumentsJSON() string {
	if len(t.Arguments) == 0 {
		return "{}"
	}
	bts, err := json.Marshal(t.Arguments)
	if err != nil {
		return "{}"
	}
	return string(bts)
}

// Turn is one role-tagged message.
type Turn struct {
	Role   Role
	Blocks []Block
}

// Conversation is an ordered list of turns.
type Conversation []Turn

// Append adds a turn holding a copy of blocks.
func (c *Conversation) Append(role Role, blocks ...Block) {
	*c = append(*c, Turn{Role: role, Blocks: append([]Block(nil), blocks...)})
}

// String renders the conversation as a readable transcript.
func (c Conversation) String() string {
	var sb strings.Builder
	for _, turn := range c {
		for _, b := range turn.Blocks {
			switch b := b.(type) {
			case Text:
				fmt.Fprintf(&sb, "**%s**: %s\n\n", turn.Role, b.Text)
			case ToolInvocation:
				fmt.Fprintf(&sb, "**%s**: called `%s` with `%s`\n\n", turn.Role, b.Name, b.ArgumentsJSON())
			case ToolResult:
				fmt.Fprintf(&sb, "**tool** (%s): %s\n\n", b.ID, b.Content)
			}
		}
	}
	return sb.String()
}

// ToolSchema describes a tool offered to the model.
type ToolSchema struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Request is one completion request.
type Request struct {
	System    string
	Turns     Conversation
	Tools     []ToolSchema
	MaxTokens int64
}

// Response is the model's reply: ordered text and tool invocation blocks.
type Response struct {
	Content []Block
}
