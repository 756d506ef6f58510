package prompt

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
	"github.com/dotcommander/confab/internal/registry"
)

func TestExecute(t *testing.T) {
	ctx := context.Background()
	exec := New(research(t))

	t.Run("renders first message", func(t *testing.T) {
		text, err := exec.Execute(ctx, "generate_search_prompt", map[string]string{"topic": "physics", "num_papers": "2"})
		require.NoError(t, err)
		require.Equal(t, "Search for 2 academic papers about 'physics' using the search_papers tool.", text)
	})

	t.Run("optional argument defaults on the provider", func(t *testing.T) {
		text, err := exec.Execute(ctx, "generate_search_prompt", map[string]string{"topic": "ai"})
		require.NoError(t, err)
		require.Contains(t, text, "Search for 5 academic papers")
	})

	t.Run("unknown prompt", func(t *testing.T) {
		_, err := exec.Execute(ctx, "nope", nil)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("provider failure", func(t *testing.T) {
		_, err := exec.Execute(ctx, "generate_search_prompt", nil)
		require.ErrorIs(t, err, errs.ErrInvocation)
	})
}

func TestExecuteContract(t *testing.T) {
	for name, tc := range map[string]struct {
		result *mcp.GetPromptResult
		target error
	}{
		"no messages": {
			result: &mcp.GetPromptResult{},
			target: errs.ErrMalformedResponse,
		},
		"image message": {
			result: mcp.NewGetPromptResult("", []mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleUser, mcp.NewImageContent("AA==", "image/png")),
			}),
			target: errs.ErrMalformedResponse,
		},
	} {
		t.Run(name, func(t *testing.T) {
			reg := registry.New(logx.Nop())
			reg.Add("p", &stubOwner{result: tc.result}, nil, nil, []mcp.Prompt{{Name: "x"}})
			_, err := New(reg).Execute(context.Background(), "x", nil)
			require.ErrorIs(t, err, tc.target)
		})
	}

	t.Run("first of several messages", func(t *testing.T) {
		reg := registry.New(logx.Nop())
		reg.Add("p", &stubOwner{result: mcp.NewGetPromptResult("", []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("one")),
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent("two")),
		})}, nil, nil, []mcp.Prompt{{Name: "x"}})
		text, err := New(reg).Execute(context.Background(), "x", nil)
		require.NoError(t, err)
		require.Equal(t, "one", text)
	})

	t.Run("owner error passes through", func(t *testing.T) {
		reg := registry.New(logx.Nop())
		reg.Add("p", &stubOwner{err: errs.Invocation("get prompt x", errors.New("eof"))}, nil, nil, []mcp.Prompt{{Name: "x"}})
		_, err := New(reg).Execute(context.Background(), "x", nil)
		require.ErrorIs(t, err, errs.ErrInvocation)
	})
}

func TestMissing(t *testing.T) {
	exec := New(research(t))

	missing, err := exec.Missing("generate_search_prompt", map[string]string{"num_papers": "3"})
	require.NoError(t, err)
	require.Len(t, missing, 1)
	require.Equal(t, "topic", missing[0].Name)

	missing, err = exec.Missing("generate_search_prompt", map[string]string{"topic": "physics"})
	require.NoError(t, err)
	require.Empty(t, missing)

	_, err = exec.Missing("nope", nil)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestParseArgs(t *testing.T) {
	args, err := ParseArgs([]string{"topic=quantum computing", "num_papers=3", "empty="})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"topic": "quantum computing", "num_papers": "3", "empty": ""}, args)

	_, err = ParseArgs([]string{"topic"})
	require.Error(t, err)
	_, err = ParseArgs([]string{"=x"})
	require.Error(t, err)
}

func TestSignatureAndList(t *testing.T) {
	exec := New(research(t))
	prompts := exec.List()
	require.Len(t, prompts, 1)
	require.Equal(t, "generate_search_prompt(topic (required), num_papers)", Signature(prompts[0]))
}

func research(tb testing.TB) *registry.Registry {
	tb.Helper()
	ctx := context.Background()
	cli, err := mcptest.Dial(ctx, mcptest.NewResearchServer("research", mcptest.DefaultLibrary()))
	require.NoError(tb, err)
	p, err := imcp.Connect(ctx, "research", cli, logx.Nop())
	require.NoError(tb, err)
	reg := registry.New(logx.Nop())
	reg.Register(p)
	tb.Cleanup(func() { _ = reg.CloseAll() })
	return reg
}

// stubOwner is a test double for registry.Owner.
type stubOwner struct {
	result *mcp.GetPromptResult
	err    error
}

func (s *stubOwner) CallTool(context.Context, string, map[string]any) (*mcp.CallToolResult, error) {
	return nil, nil
}

func (s *stubOwner) ReadResource(context.Context, string) (*mcp.ReadResourceResult, error) {
	return nil, nil
}

func (s *stubOwner) GetPrompt(context.Context, string, map[string]string) (*mcp.GetPromptResult, error) {
	return s.result, s.err
}

func (s *stubOwner) Close() error { return nil }
