package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/confab/internal/config"
	"github.com/dotcommander/confab/internal/present"
)

func initRootFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	flags.StringVarP(&cfg.Model, "model", "m", cfg.Model, present.StdoutStyles().FlagDesc.Render(helpText["model"]))
	flags.StringVarP(&cfg.API, "api", "a", cfg.API, present.StdoutStyles().FlagDesc.Render(helpText["api"]))
	flags.StringVarP(&cfg.HTTPProxy, "http-proxy", "x", cfg.HTTPProxy, present.StdoutStyles().FlagDesc.Render(helpText["http-proxy"]))
	flags.StringVarP(&cfg.System, "system", "s", cfg.System, present.StdoutStyles().FlagDesc.Render(helpText["system"]))
	flags.Int64Var(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, present.StdoutStyles().FlagDesc.Render(helpText["max-tokens"]))
	flags.IntVar(&cfg.MaxRounds, "max-rounds", cfg.MaxRounds, present.StdoutStyles().FlagDesc.Render(helpText["max-rounds"]))
	flags.BoolVar(&cfg.FeedToolErrors, "feed-tool-errors", cfg.FeedToolErrors, present.StdoutStyles().FlagDesc.Render(helpText["feed-tool-errors"]))
	flags.StringVar(&cfg.ResourceScheme, "resource-scheme", cfg.ResourceScheme, present.StdoutStyles().FlagDesc.Render(helpText["resource-scheme"]))
	flags.BoolVarP(&cfg.Raw, "raw", "r", cfg.Raw, present.StdoutStyles().FlagDesc.Render(helpText["raw"]))
	flags.BoolVarP(&cfg.Quiet, "quiet", "q", cfg.Quiet, present.StdoutStyles().FlagDesc.Render(helpText["quiet"]))
	flags.IntVar(&cfg.WordWrap, "word-wrap", cfg.WordWrap, present.StdoutStyles().FlagDesc.Render(helpText["word-wrap"]))
	flags.StringVar(&cfg.Theme, "theme", cfg.Theme, present.StdoutStyles().FlagDesc.Render(helpText["theme"]))
	flags.BoolVarP(&cfg.TUI, "tui", "t", false, present.StdoutStyles().FlagDesc.Render(helpText["tui"]))
	flags.BoolVarP(&cfg.OpenEditor, "editor", "e", false, present.StdoutStyles().FlagDesc.Render(helpText["editor"]))
	flags.StringArrayVar(&cfg.MCPDisable, "mcp-disable", cfg.MCPDisable, present.StdoutStyles().FlagDesc.Render(helpText["mcp-disable"]))
	flags.BoolVarP(&cfg.ShowHelp, "help", "h", false, present.StdoutStyles().FlagDesc.Render(helpText["help"]))
	flags.BoolVarP(&cfg.ShowVersion, "version", "v", false, present.StdoutStyles().FlagDesc.Render(helpText["version"]))
	flags.SortFlags = false

	pflags := cmd.PersistentFlags()
	pflags.BoolVar(&cfg.Debug, "debug", cfg.Debug, present.StdoutStyles().FlagDesc.Render(helpText["debug"]))
	pflags.BoolVar(&cfg.PrettyLogs, "pretty-logs", cfg.PrettyLogs, present.StdoutStyles().FlagDesc.Render(helpText["pretty-logs"]))
	pflags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, present.StdoutStyles().FlagDesc.Render(helpText["log-level"]))
	pflags.StringVar(&cfg.MCPServersFile, "mcp-servers-file", cfg.MCPServersFile, present.StdoutStyles().FlagDesc.Render(helpText["mcp-servers-file"]))
	pflags.Var(newDurationFlag(cfg.MCPTimeout, &cfg.MCPTimeout), "mcp-timeout", present.StdoutStyles().FlagDesc.Render(helpText["mcp-timeout"]))
	pflags.BoolVar(&cfg.MCPNoInheritEnv, "mcp-no-inherit-env", cfg.MCPNoInheritEnv, present.StdoutStyles().FlagDesc.Render(helpText["mcp-no-inherit-env"]))

	flags.BoolVar(&memprofile, "memprofile", false, "Write memory profiles to CWD")
	_ = flags.MarkHidden("memprofile")

	_ = cmd.RegisterFlagCompletionFunc("api", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, 0, len(cfg.APIs))
		for _, api := range cfg.APIs {
			names = append(names, api.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, api := range cfg.APIs {
			if cfg.API != "" && api.Name != cfg.API {
				continue
			}
			for name := range api.Models {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.MarkFlagsMutuallyExclusive("tui", "editor")
}
