package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dotcommander/confab/internal/agent"
	"github.com/dotcommander/confab/internal/config"
	imcp "github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/present"
	"github.com/dotcommander/confab/internal/registry"
)

func newMCPCmd(rt *runtime) *cobra.Command {
	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server integration",
	}

	mcpCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			mcpList(os.Stdout, &rt.cfg, rt.log)
			return nil
		},
	})

	for _, c := range []struct {
		use, short string
		list       func(io.Writer, *registry.Registry)
	}{
		{"tools", "List tools from enabled MCP servers", listTools},
		{"resources", "List resources from enabled MCP servers", listResources},
		{"prompts", "List prompts from enabled MCP servers", listPrompts},
	} {
		mcpCmd.AddCommand(&cobra.Command{
			Use:   c.use,
			Short: c.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if rt.cfgErr != nil {
					return rt.cfgErr
				}
				return rt.withProviders(cmd.Context(), func(reg *registry.Registry) {
					c.list(os.Stdout, reg)
				})
			},
		})
	}

	return mcpCmd
}

// withProviders connects every enabled server, calls fn with the populated
// registry and disconnects.
func (rt *runtime) withProviders(ctx context.Context, fn func(*registry.Registry)) error {
	svc := agent.New(&rt.cfg, rt.log)
	defer func() { _ = svc.Close() }()

	providers, err := svc.Start(ctx)
	if len(providers) == 0 && err != nil {
		return fmt.Errorf("mcp: %w", err)
	}
	for _, e := range unjoin(err) {
		fmt.Fprintf(os.Stderr, "%s %s\n", present.StderrStyles().ErrorHeader.String(), e.Error())
	}
	fn(svc.Registry())
	return nil
}

func mcpList(w io.Writer, cfg *config.Config, log zerolog.Logger) {
	svc := imcp.New(cfg, log)
	names := slices.Collect(maps.Keys(cfg.MCPServers))
	slices.Sort(names)
	for _, name := range names {
		s := name
		if svc.IsEnabled(name) {
			s += present.StdoutStyles().Timeago.Render(" (enabled)")
		} else {
			s += present.StdoutStyles().Comment.Render(" (disabled)")
		}
		fmt.Fprintln(w, s)
	}
}

func listTools(w io.Writer, reg *registry.Registry) {
	for _, tool := range reg.Tools() {
		owner, _ := reg.ToolOwner(tool.Name)
		printItem(w, owner, tool.Name)
	}
}

func listResources(w io.Writer, reg *registry.Registry) {
	for _, res := range reg.Resources() {
		owner, _ := reg.ResourceOwner(res.URI)
		printItem(w, owner, res.URI)
	}
}

func listPrompts(w io.Writer, reg *registry.Registry) {
	for _, p := range reg.Prompts() {
		owner, _ := reg.PromptOwner(p.Name)
		printItem(w, owner, p.Name)
	}
}

func printItem(w io.Writer, server, name string) {
	_, _ = fmt.Fprint(w, present.StdoutStyles().Timeago.Render(server+" > "))
	_, _ = fmt.Fprintln(w, name)
}
