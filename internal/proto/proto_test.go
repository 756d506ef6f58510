package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConversationAppendCopies(t *testing.T) {
	blocks := []Block{Text{Text: "hi"}}
	var c Conversation
	c.Append(RoleUser, blocks...)
	blocks[0] = Text{Text: "changed"}

	require.Equal(t, Text{Text: "hi"}, c[0].Blocks[0])
}

func TestArgumentsJSON(t *testing.T) {
	require.Equal(t, "{}", ToolInvocation{}.ArgumentsJSON())
	require.JSONEq(t, `{"topic":"physics","max_results":2}`, ToolInvocation{
		Arguments: map[string]any{"topic": "physics", "max_results": 2},
	}.ArgumentsJSON())
}

func TestConversationString(t *testing.T) {
	var c Conversation
	c.Append(RoleUser, Text{Text: "hello"})
	c.Append(RoleAssistant, ToolInvocation{ID: "1", Name: "search_papers", Arguments: map[string]any{"topic": "go"}})
	c.Append(RoleUser, ToolResult{ID: "1", Content: "none"})

	require.Equal(t,
		"**user**: hello\n\n**assistant**: called `search_papers` with `{\"topic\":\"go\"}`\n\n**tool** (1): none\n\n",
		c.String(),
	)
}
