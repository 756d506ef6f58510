package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/logx"
	imcp "github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/mcp/mcptest"
)

func TestLastRegisteredWins(t *testing.T) {
	ctx := context.Background()

	t.Run("stub owners", func(t *testing.T) {
		reg := New(logx.Nop())
		first := &stubOwner{reply: "from first"}
		second := &stubOwner{reply: "from second"}
		reg.Add("first", first, []mcp.Tool{{Name: "search"}, {Name: "only_first"}}, nil, nil)
		reg.Add("second", second, []mcp.Tool{{Name: "search"}}, nil, nil)

		out, err := reg.InvokeTool(ctx, "search", nil)
		require.NoError(t, err)
		require.Equal(t, "from second", out)

		out, err = reg.InvokeTool(ctx, "only_first", nil)
		require.NoError(t, err)
		require.Equal(t, "from first", out)

		owner, ok := reg.ToolOwner("search")
		require.True(t, ok)
		require.Equal(t, "second", owner)
	})

	t.Run("connected providers", func(t *testing.T) {
		reg := New(logx.Nop())
		for _, id := range []string{"p1", "p2", "p3"} {
			cli, err := mcptest.Dial(ctx, mcptest.NewToolServer(id, map[string]string{"lookup": "answer from " + id}))
			require.NoError(t, err)
			p, err := imcp.Connect(ctx, id, cli, logx.Nop())
			require.NoError(t, err)
			reg.Register(p)
		}
		t.Cleanup(func() { _ = reg.CloseAll() })

		out, err := reg.InvokeTool(ctx, "lookup", nil)
		require.NoError(t, err)
		require.Equal(t, "answer from p3", out)
		require.Len(t, reg.Providers(), 3)
		require.Equal(t, "p1", reg.Providers()[0].ID)
	})

	t.Run("resources and prompts", func(t *testing.T) {
		reg := New(logx.Nop())
		reg.Add("a", &stubOwner{}, nil,
			[]mcp.Resource{{URI: "papers://folders", Name: "a folders"}},
			[]mcp.Prompt{{Name: "summarize", Description: "from a"}})
		reg.Add("b", &stubOwner{}, nil,
			[]mcp.Resource{{URI: "papers://folders", Name: "b folders"}},
			[]mcp.Prompt{{Name: "summarize", Description: "from b"}})

		res, _, ok := reg.Resource("papers://folders")
		require.True(t, ok)
		require.Equal(t, "b folders", res.Name)

		prompt, _, ok := reg.Prompt("summarize")
		require.True(t, ok)
		require.Equal(t, "from b", prompt.Description)

		owner, ok := reg.ResourceOwner("papers://folders")
		require.True(t, ok)
		require.Equal(t, "b", owner)
		owner, ok = reg.PromptOwner("summarize")
		require.True(t, ok)
		require.Equal(t, "b", owner)
		_, ok = reg.PromptOwner("nope")
		require.False(t, ok)
		require.Len(t, reg.Resources(), 1)
		require.Len(t, reg.Prompts(), 1)
	})
}

func TestInvokeTool(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown tool", func(t *testing.T) {
		_, err := New(logx.Nop()).InvokeTool(ctx, "nope", nil)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("arguments are forwarded", func(t *testing.T) {
		owner := &stubOwner{reply: "ok"}
		reg := New(logx.Nop())
		reg.Add("p", owner, []mcp.Tool{{Name: "search_papers"}}, nil, nil)

		_, err := reg.InvokeTool(ctx, "search_papers", map[string]any{"topic": "physics"})
		require.NoError(t, err)
		require.Equal(t, map[string]any{"topic": "physics"}, owner.lastArgs)
	})

	for name, tc := range map[string]struct {
		result *mcp.CallToolResult
		err    error
		target error
	}{
		"empty content": {
			result: &mcp.CallToolResult{},
			target: errs.ErrMalformedResponse,
		},
		"non-text first block": {
			result: &mcp.CallToolResult{Content: []mcp.Content{mcp.ImageContent{Data: "x"}}},
			target: errs.ErrMalformedResponse,
		},
		"provider error flag": {
			result: &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent("rate limited")}, IsError: true},
			target: errs.ErrInvocation,
		},
		"transport failure": {
			err:    errs.Invocation("call tool t", errors.New("pipe closed")),
			target: errs.ErrInvocation,
		},
	} {
		t.Run(name, func(t *testing.T) {
			reg := New(logx.Nop())
			reg.Add("p", &stubOwner{result: tc.result, err: tc.err}, []mcp.Tool{{Name: "t"}}, nil, nil)
			_, err := reg.InvokeTool(ctx, "t", nil)
			require.ErrorIs(t, err, tc.target)
		})
	}

	t.Run("first block wins", func(t *testing.T) {
		reg := New(logx.Nop())
		reg.Add("p", &stubOwner{result: &mcp.CallToolResult{Content: []mcp.Content{
			mcp.NewTextContent("first"), mcp.NewTextContent("second"),
		}}}, []mcp.Tool{{Name: "t"}}, nil, nil)
		out, err := reg.InvokeTool(ctx, "t", nil)
		require.NoError(t, err)
		require.Equal(t, "first", out)
	})

	t.Run("empty result from a live provider", func(t *testing.T) {
		s := mcptest.NewToolServer("odd", nil)
		mcptest.AddEmptyResultTool(s, "nothing")
		cli, err := mcptest.Dial(ctx, s)
		require.NoError(t, err)
		p, err := imcp.Connect(ctx, "odd", cli, logx.Nop())
		require.NoError(t, err)

		reg := New(logx.Nop())
		reg.Register(p)
		t.Cleanup(func() { _ = reg.CloseAll() })

		_, err = reg.InvokeTool(ctx, "nothing", nil)
		require.ErrorIs(t, err, errs.ErrMalformedResponse)
	})
}

func TestCloseAllToleratesFailures(t *testing.T) {
	reg := New(logx.Nop())
	owners := []*stubOwner{{}, {closeErr: errors.New("stuck")}, {}}
	for i, o := range owners {
		reg.Add([]string{"a", "b", "c"}[i], o, []mcp.Tool{{Name: "t"}}, nil, nil)
	}

	err := reg.CloseAll()
	require.ErrorContains(t, err, "stuck")
	for _, o := range owners {
		require.True(t, o.closed)
	}
	require.Empty(t, reg.Tools())

	_, err = reg.InvokeTool(context.Background(), "t", nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestToolSchemas(t *testing.T) {
	reg := New(logx.Nop())
	reg.Add("p", &stubOwner{}, []mcp.Tool{
		{
			Name:        "search_papers",
			Description: "search arXiv",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: map[string]any{"topic": map[string]any{"type": "string"}},
				Required:   []string{"topic"},
			},
		},
		{Name: "ping"},
		{Name: "raw", RawInputSchema: []byte(`{"type":"object","properties":{"n":{"type":"integer"}}}`)},
	}, nil, nil)

	schemas := reg.ToolSchemas()
	require.Len(t, schemas, 3)

	require.Equal(t, "ping", schemas[0].Name)
	require.Equal(t, map[string]any{}, schemas[0].InputSchema["properties"])

	require.Equal(t, "raw", schemas[1].Name)
	require.Contains(t, schemas[1].InputSchema["properties"], "n")

	require.Equal(t, "search_papers", schemas[2].Name)
	require.Equal(t, "search arXiv", schemas[2].Description)
	require.Equal(t, []string{"topic"}, schemas[2].InputSchema["required"])
}

func TestSummary(t *testing.T) {
	require.Equal(t, "no capabilities", Summary(&imcp.Provider{}))
	require.Equal(t, "2 tools and 1 prompt", Summary(&imcp.Provider{
		Tools:   []mcp.Tool{{Name: "a"}, {Name: "b"}},
		Prompts: []mcp.Prompt{{Name: "p"}},
	}))
	require.Equal(t, "1 tool, 3 resources, and 2 prompts", Summary(&imcp.Provider{
		Tools:     []mcp.Tool{{Name: "a"}},
		Resources: []mcp.Resource{{URI: "x://1"}, {URI: "x://2"}, {URI: "x://3"}},
		Prompts:   []mcp.Prompt{{Name: "p"}, {Name: "q"}},
	}))
}

// stubOwner is a test double for Owner.
type stubOwner struct {
	reply    string
	result   *mcp.CallToolResult
	err      error
	closeErr error
	closed   bool
	lastArgs map[string]any
}

func (s *stubOwner) CallTool(_ context.Context, _ string, args map[string]any) (*mcp.CallToolResult, error) {
	s.lastArgs = args
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return mcp.NewToolResultText(s.reply), nil
}

func (s *stubOwner) ReadResource(context.Context, string) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}

func (s *stubOwner) GetPrompt(context.Context, string, map[string]string) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}

func (s *stubOwner) Close() error {
	s.closed = true
	return s.closeErr
}
