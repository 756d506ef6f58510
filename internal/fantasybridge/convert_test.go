package fantasybridge

import (
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/confab/internal/proto"
)

func TestToFantasyPrompt(t *testing.T) {
	turns := proto.Conversation{
		{Role: proto.RoleUser, Blocks: []proto.Block{proto.Text{Text: "hello"}}},
		{Role: proto.RoleAssistant, Blocks: []proto.Block{
			proto.Text{Text: "calling tool"},
			proto.ToolInvocation{ID: "call_1", Name: "search_papers", Arguments: map[string]any{"x": 1}},
		}},
		{Role: proto.RoleUser, Blocks: []proto.Block{proto.ToolResult{ID: "call_1", Content: "ok"}}},
		{Role: proto.RoleUser, Blocks: []proto.Block{proto.ToolResult{ID: "call_2", Content: "boom", IsError: true}}},
	}

	prompt := toFantasyPrompt("sys", turns)
	require.Len(t, prompt, 5)

	require.Equal(t, fantasy.MessageRoleSystem, prompt[0].Role)
	require.Equal(t, fantasy.MessageRoleUser, prompt[1].Role)
	require.Equal(t, fantasy.MessageRoleAssistant, prompt[2].Role)
	require.Equal(t, fantasy.MessageRoleTool, prompt[3].Role)
	require.Equal(t, fantasy.MessageRoleTool, prompt[4].Role)

	require.Len(t, prompt[2].Content, 2)
	callPart, ok := fantasy.AsMessagePart[fantasy.ToolCallPart](prompt[2].Content[1])
	require.True(t, ok)
	require.Equal(t, "call_1", callPart.ToolCallID)
	require.Equal(t, "search_papers", callPart.ToolName)
	require.JSONEq(t, `{"x":1}`, callPart.Input)

	resultPart, ok := fantasy.AsMessagePart[fantasy.ToolResultPart](prompt[3].Content[0])
	require.True(t, ok)
	require.Equal(t, "call_1", resultPart.ToolCallID)
	text, textOK := fantasy.AsToolResultOutputType[fantasy.ToolResultOutputContentText](resultPart.Output)
	require.True(t, textOK)
	require.Equal(t, "ok", text.Text)

	errPart, ok := fantasy.AsMessagePart[fantasy.ToolResultPart](prompt[4].Content[0])
	require.True(t, ok)
	errOutput, errOK := fantasy.AsToolResultOutputType[fantasy.ToolResultOutputContentError](errPart.Output)
	require.True(t, errOK)
	require.Equal(t, "boom", errOutput.Error.Error())
}

func TestToFantasyPromptWithoutSystem(t *testing.T) {
	prompt := toFantasyPrompt("", proto.Conversation{
		{Role: proto.RoleUser, Blocks: []proto.Block{proto.Text{Text: "hi"}}},
	})
	require.Len(t, prompt, 1)
	require.Equal(t, fantasy.MessageRoleUser, prompt[0].Role)
}

func TestFromToolSchemas(t *testing.T) {
	tools := fromToolSchemas([]proto.ToolSchema{{
		Name:        "search",
		Description: "search docs",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []string{"query"},
		},
	}})

	require.Len(t, tools, 1)
	fn, ok := tools[0].(fantasy.FunctionTool)
	require.True(t, ok)
	require.Equal(t, "search", fn.Name)
	require.Equal(t, "search docs", fn.Description)
	require.Equal(t, "object", fn.InputSchema["type"])
	require.Equal(t, []string{"query"}, fn.InputSchema["required"])
}
