package fantasybridge

import (
	"errors"
	"testing"

	"charm.land/fantasy"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/proto"
)

func TestBuildCallRequestFields(t *testing.T) {
	c := &Client{config: Config{API: "openai"}}

	t.Run("no tools no choice", func(t *testing.T) {
		call := c.buildCall(proto.Request{})
		require.Nil(t, call.ToolChoice)
		require.Nil(t, call.MaxOutputTokens)
		require.Empty(t, call.Tools)
	})

	t.Run("tools and max tokens", func(t *testing.T) {
		call := c.buildCall(proto.Request{
			System:    "be brief",
			MaxTokens: 2024,
			Tools:     []proto.ToolSchema{{Name: "search_papers"}},
			Turns:     proto.Conversation{{Role: proto.RoleUser, Blocks: []proto.Block{proto.Text{Text: "hi"}}}},
		})
		require.NotNil(t, call.ToolChoice)
		require.Equal(t, fantasy.ToolChoiceAuto, *call.ToolChoice)
		require.NotNil(t, call.MaxOutputTokens)
		require.EqualValues(t, 2024, *call.MaxOutputTokens)
		require.Len(t, call.Tools, 1)
		require.Len(t, call.Prompt, 2)
	})
}

func TestCollectorKeepsArrivalOrder(t *testing.T) {
	col := newCollector()
	for _, part := range []fantasy.StreamPart{
		{Type: fantasy.StreamPartTypeTextStart},
		{Type: fantasy.StreamPartTypeTextDelta, Delta: "Let me "},
		{Type: fantasy.StreamPartTypeTextDelta, Delta: "search."},
		{Type: fantasy.StreamPartTypeToolCall, ID: "tc_1", ToolCallName: "search_papers", ToolCallInput: `{"topic":"physics"}`},
		{Type: fantasy.StreamPartTypeToolCall, ID: "tc_1", ToolCallName: "search_papers", ToolCallInput: `{"topic":"physics"}`},
		{Type: fantasy.StreamPartTypeToolCall, ID: "tc_2", ToolCallName: "extract_info"},
		{Type: fantasy.StreamPartTypeFinish},
	} {
		col.consumePart(part)
	}

	resp, err := col.response()
	require.NoError(t, err)
	require.Equal(t, []proto.Block{
		proto.Text{Text: "Let me search."},
		proto.ToolInvocation{ID: "tc_1", Name: "search_papers", Arguments: map[string]any{"topic": "physics"}},
		proto.ToolInvocation{ID: "tc_2", Name: "extract_info", Arguments: map[string]any{}},
	}, resp.Content)
}

func TestCollectorSeparatesTextBlocks(t *testing.T) {
	col := newCollector()
	col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeTextDelta, Delta: "one"})
	col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeTextEnd})
	col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeTextDelta, Delta: "two"})

	resp, err := col.response()
	require.NoError(t, err)
	require.Equal(t, []proto.Block{proto.Text{Text: "one"}, proto.Text{Text: "two"}}, resp.Content)
}

func TestCollectorSkipsProviderExecutedToolCalls(t *testing.T) {
	col := newCollector()
	col.consumePart(fantasy.StreamPart{
		Type:             fantasy.StreamPartTypeToolCall,
		ID:               "tc_1",
		ToolCallName:     "tool",
		ToolCallInput:    "{}",
		ProviderExecuted: true,
	})

	resp, err := col.response()
	require.NoError(t, err)
	require.Empty(t, resp.Content)
}

func TestCollectorErrors(t *testing.T) {
	t.Run("stream error", func(t *testing.T) {
		col := newCollector()
		col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeTextDelta, Delta: "partial"})
		col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeError, Error: errors.New("overloaded")})
		_, err := col.response()
		require.EqualError(t, err, "overloaded")
	})

	t.Run("bad tool arguments", func(t *testing.T) {
		col := newCollector()
		col.consumePart(fantasy.StreamPart{Type: fantasy.StreamPartTypeToolCall, ID: "x", ToolCallName: "t", ToolCallInput: "{not json"})
		_, err := col.response()
		require.ErrorIs(t, err, errs.ErrMalformedResponse)
	})
}

func TestCollectorDeduplicatesWarnings(t *testing.T) {
	col := newCollector()
	col.consumePart(fantasy.StreamPart{
		Type: fantasy.StreamPartTypeWarnings,
		Warnings: []fantasy.CallWarning{
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_k", Message: "unsupported setting: top_k"},
			{Type: fantasy.CallWarningTypeUnsupportedSetting, Setting: "top_p"},
		},
	})
	require.Equal(t, []string{"unsupported setting: top_k", "unsupported setting: top_p"}, col.warnings)
}
