package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	glamour "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/editor"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dotcommander/confab/internal/agent"
	"github.com/dotcommander/confab/internal/config"
	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/logx"
	"github.com/dotcommander/confab/internal/present"
	"github.com/dotcommander/confab/internal/registry"
	"github.com/dotcommander/confab/internal/shell"
	"github.com/dotcommander/confab/internal/tui"
)

type runtime struct {
	build  BuildInfo
	cfg    config.Config
	cfgErr error
	log    zerolog.Logger
}

// NewRootCmd constructs the Cobra root command.
func NewRootCmd(build BuildInfo, cfg config.Config, cfgErr error) *cobra.Command {
	// XXX: unset error styles in Glamour dark and light styles.
	glamour.DarkStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)
	glamour.LightStyleConfig.CodeBlock.Chroma.Error.BackgroundColor = new(string)

	rt := &runtime{build: normalizeBuildInfo(build), cfg: cfg, cfgErr: cfgErr, log: logx.Nop()}

	rootCmd := &cobra.Command{
		Use:           "confab [query]",
		Short:         "Chat with a model that can use tools, resources and prompts from MCP servers.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example:       randomExample(),
		PersistentPreRun: func(*cobra.Command, []string) {
			rt.log = logx.New(logx.Config{
				Level:  rt.cfg.LogLevel,
				Debug:  rt.cfg.Debug,
				Pretty: rt.cfg.PrettyLogs || present.IsErrorTTY(),
				Out:    os.Stderr,
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)
			return rt.runChat(cmd, args)
		},
	}

	rootCmd.SetUsageFunc(usageFunc)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newFlagParseError(err)
	})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.Version = rt.build.Version
	rootCmd.SetVersionTemplate(versionTemplate(rt.build))

	initRootFlags(rootCmd, &rt.cfg)

	rootCmd.AddCommand(newConfigCmd(rt))
	rootCmd.AddCommand(newMCPCmd(rt))
	rootCmd.AddCommand(newManCmd(rootCmd))

	rootCmd.InitDefaultCompletionCmd()

	return rootCmd
}

func (rt *runtime) runChat(cmd *cobra.Command, args []string) error {
	if rt.cfg.ShowHelp {
		drainStdin()
		if err := cmd.Usage(); err != nil {
			return fmt.Errorf("usage: %w", err)
		}
		return nil
	}
	if os.Getenv("VIMRUNTIME") != "" {
		rt.cfg.Quiet = true
	}

	query := removeWhitespace(strings.Join(args, " "))
	if query == "" && present.IsInputTTY() && rt.cfg.OpenEditor {
		text, err := prefixFromEditor("confab")
		if err != nil {
			return err
		}
		query = removeWhitespace(text)
	}
	if !present.IsInputTTY() {
		piped, err := readStdin()
		if err != nil {
			return errs.Error{Err: err, Reason: "Could not read from STDIN."}
		}
		query = joinQuery(query, piped)
		if query == "" {
			return errNoInput()
		}
	}

	ctx := cmd.Context()
	svc := agent.New(&rt.cfg, rt.log)
	defer func() { _ = svc.Close() }()
	rt.connect(ctx, svc)

	if query != "" {
		sh := rt.newShell(svc, os.Stdout, present.StdoutRenderer(), nil)
		if _, err := sh.Handle(ctx, query); err != nil {
			return errs.Error{Err: err, Reason: errs.Describe(err, "Could not answer the query.")}
		}
		return nil
	}

	if rt.cfg.TUI {
		w := tui.NewWriter()
		r := present.StderrRenderer()
		sh := rt.newShell(svc, w, r, nil)
		session := tui.NewSession(ctx, r, sh, w, shell.Banner(present.MakeStyles(r)))
		if _, err := tea.NewProgram(session, tea.WithOutput(os.Stderr), tea.WithContext(ctx)).Run(); err != nil &&
			!errors.Is(err, tea.ErrProgramKilled) {
			return errs.Error{Err: err, Reason: "Couldn't start Bubble Tea program."}
		}
		return nil
	}

	sh := rt.newShell(svc, os.Stdout, present.StdoutRenderer(), shell.FormAsker(themeFrom(rt.cfg.Theme)))
	if err := sh.Run(ctx, os.Stdin); err != nil {
		return errs.Error{Err: err, Reason: "The chat session failed."}
	}
	return nil
}

func (rt *runtime) newShell(svc *agent.Service, out io.Writer, r *lipgloss.Renderer, ask shell.ArgumentAsker) *shell.Shell {
	return shell.New(svc, out, r, shell.Options{
		Raw:      rt.cfg.Raw || !present.IsOutputTTY(),
		WordWrap: rt.cfg.WordWrap,
		Quiet:    rt.cfg.Quiet,
		Ask:      ask,
	}, rt.log)
}

// connect starts every enabled provider. Failures are reported and skipped.
func (rt *runtime) connect(ctx context.Context, svc *agent.Service) {
	providers, err := svc.Start(ctx)
	if rt.cfg.Quiet {
		return
	}
	styles := present.StderrStyles()
	for _, p := range providers {
		fmt.Fprintf(os.Stderr, "%s %s\n", styles.Provider.Render(p.ID), styles.Comment.Render(registry.Summary(p)))
	}
	for _, e := range unjoin(err) {
		fmt.Fprintf(os.Stderr, "%s %s\n", styles.ErrorHeader.String(), styles.ErrorDetails.Render(e.Error()))
	}
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func joinQuery(query, piped string) string {
	piped = strings.TrimSpace(piped)
	switch {
	case piped == "":
		return query
	case query == "":
		return piped
	default:
		return query + "\n\n" + piped
	}
}

func errNoInput() error {
	return errs.Error{
		Reason: "You haven't provided any prompt input.",
		Err: errs.UserErrorf(
			"You can give your query as arguments and/or pipe it from STDIN.\nExample: %s",
			present.StdoutStyles().InlineCode.Render("confab [query]"),
		),
	}
}

func prefixFromEditor(appName string) (string, error) {
	f, err := os.CreateTemp("", "query")
	if err != nil {
		return "", fmt.Errorf("could not create temporary file: %w", err)
	}
	_ = f.Close()
	defer func() { _ = os.Remove(f.Name()) }()

	c, err := editor.Cmd(
		appName,
		f.Name(),
	)
	if err != nil {
		return "", fmt.Errorf("could not open editor: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stderr = os.Stderr
	c.Stdout = os.Stdout
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("could not open editor: %w", err)
	}
	text, err := os.ReadFile(f.Name())
	if err != nil {
		return "", fmt.Errorf("could not read file: %w", err)
	}
	return string(text), nil
}

func removeWhitespace(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

func themeFrom(theme string) *huh.Theme {
	switch theme {
	case "dracula":
		return huh.ThemeDracula()
	case "catppuccin":
		return huh.ThemeCatppuccin()
	case "base16":
		return huh.ThemeBase16()
	default:
		return huh.ThemeCharm()
	}
}
