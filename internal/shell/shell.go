// Package shell implements the interactive command surface: plain queries,
// @resource lookups and slash commands.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	timeago "github.com/caarlos0/timea.go"
	"github.com/charmbracelet/lipgloss"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/chat"
	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/present"
	"github.com/dotcommander/confab/internal/prompt"
	"github.com/dotcommander/confab/internal/registry"
)

// Agent is the backend a shell drives. *agent.Service implements it.
type Agent interface {
	Ask(ctx context.Context, query string, out chat.Output) (chat.Result, error)
	Resource(ctx context.Context, name string) (string, error)
	RunPrompt(ctx context.Context, name string, args map[string]string, out chat.Output) (chat.Result, error)
	Registry() *registry.Registry
	Prompts() *prompt.Executor
}

// ArgumentAsker fills in the missing required arguments of a prompt,
// writing the answers into args.
type ArgumentAsker func(promptName string, missing []mcp.PromptArgument, args map[string]string) error

// Options tune how the shell prints.
type Options struct {
	// Raw prints answers and resources as-is instead of rendering markdown.
	Raw      bool
	WordWrap int
	// Quiet hides the tool call trace.
	Quiet bool
	// Ask is consulted for missing required prompt arguments. Without it a
	// missing argument is an error.
	Ask ArgumentAsker
	// Copy puts text on the clipboard.
	Copy func(string) error
}

// Shell reads lines and dispatches them to an Agent.
type Shell struct {
	agent    Agent
	out      io.Writer
	renderer *lipgloss.Renderer
	styles   present.Styles
	opts     Options
	log      zerolog.Logger

	last string
}

// New creates a shell writing to out with styles from r.
func New(agent Agent, out io.Writer, r *lipgloss.Renderer, opts Options, log zerolog.Logger) *Shell {
	if opts.Copy == nil {
		opts.Copy = CopyToClipboard
	}
	return &Shell{
		agent:    agent,
		out:      out,
		renderer: r,
		styles:   present.MakeStyles(r),
		opts:     opts,
		log:      log,
	}
}

// Run prints the banner and handles lines from in until quit, end of input or
// ctx cancellation. Errors of a single line are printed and the loop goes on.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	s.printf("%s", Banner(s.styles))

	reader := bufio.NewReader(in)
	for ctx.Err() == nil {
		s.printf("\n%s ", s.styles.Prompt.Render("Query:"))
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		quit, herr := s.Handle(ctx, line)
		if herr != nil {
			s.PrintError(herr)
		}
		if quit || eof {
			if eof {
				s.printf("\n")
			}
			return nil
		}
	}
	return nil
}

// Handle runs one line. It reports whether the line asked the shell to quit.
func (s *Shell) Handle(ctx context.Context, line string) (bool, error) {
	cmd, err := Parse(line)
	if err != nil {
		return false, err
	}
	s.log.Debug().Int("kind", int(cmd.Kind)).Str("line", strings.TrimSpace(line)).Msg("shell command")

	switch cmd.Kind {
	case KindEmpty:
		return false, nil
	case KindQuit:
		return true, nil
	case KindQuery:
		return false, s.ask(ctx, cmd.Text)
	case KindResource:
		return false, s.resource(ctx, cmd.Name)
	case KindPrompts:
		s.listPrompts()
	case KindPrompt:
		return false, s.runPrompt(ctx, cmd.Name, cmd.Args)
	case KindTools:
		s.listTools()
	case KindResources:
		s.listResources()
	case KindProviders:
		s.listProviders()
	case KindCopy:
		return false, s.copyLast()
	case KindHelp:
		s.printf("%s", Help(s.styles))
	}
	return false, nil
}

// Last returns the most recent answer.
func (s *Shell) Last() string { return s.last }

// PrintError writes err in the shell's error style.
func (s *Shell) PrintError(err error) {
	s.printf("\n%s %s\n", s.styles.ErrorHeader.String(), s.styles.ErrorDetails.Render(err.Error()))
}

func (s *Shell) ask(ctx context.Context, query string) error {
	res, err := s.agent.Ask(ctx, query, s.output())
	s.remember(res)
	return err
}

func (s *Shell) resource(ctx context.Context, name string) error {
	text, err := s.agent.Resource(ctx, name)
	if err != nil {
		return err
	}
	s.last = text
	s.markdown(text)
	return nil
}

func (s *Shell) runPrompt(ctx context.Context, name string, words []string) error {
	args, err := prompt.ParseArgs(words)
	if err != nil {
		return err
	}
	missing, err := s.agent.Prompts().Missing(name, args)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		if s.opts.Ask == nil {
			return missingArgs(name, missing)
		}
		if err := s.opts.Ask(name, missing, args); err != nil {
			return fmt.Errorf("prompt %s arguments: %w", name, err)
		}
	}

	res, err := s.agent.RunPrompt(ctx, name, args, s.output())
	s.remember(res)
	return err
}

func missingArgs(name string, missing []mcp.PromptArgument) error {
	names := make([]string, 0, len(missing))
	for _, arg := range missing {
		names = append(names, arg.Name)
	}
	return fmt.Errorf("prompt %q argument %s: %w", name, strings.Join(names, ", "), errs.ErrNotFound)
}

func (s *Shell) remember(res chat.Result) {
	if res.Answer != "" {
		s.last = res.Answer
	}
}

func (s *Shell) listPrompts() {
	prompts := s.agent.Prompts().List()
	if len(prompts) == 0 {
		s.printf("No prompts available.\n")
		return
	}
	s.printf("Available prompts:\n")
	for _, p := range prompts {
		s.printf("%s %s: %s\n", s.styles.Bullet, s.styles.Provider.Render(p.Name), p.Description)
		if len(p.Arguments) == 0 {
			continue
		}
		s.printf("  Arguments:\n")
		for _, arg := range p.Arguments {
			name := arg.Name
			if arg.Required {
				name += s.styles.Required.Render(" (required)")
			}
			s.printf("    %s %s: %s\n", s.styles.Bullet, name, arg.Description)
		}
	}
}

func (s *Shell) listTools() {
	reg := s.agent.Registry()
	tools := reg.Tools()
	if len(tools) == 0 {
		s.printf("No tools available.\n")
		return
	}
	s.printf("Available tools:\n")
	for _, t := range tools {
		owner, _ := reg.ToolOwner(t.Name)
		s.printf("%s %s %s: %s\n",
			s.styles.Bullet,
			s.styles.Provider.Render(t.Name),
			s.styles.Comment.Render("("+owner+")"),
			t.Description,
		)
	}
}

func (s *Shell) listResources() {
	resources := s.agent.Registry().Resources()
	if len(resources) == 0 {
		s.printf("No resources available.\n")
		return
	}
	s.printf("Available resources:\n")
	for _, r := range resources {
		s.printf("%s %s: %s\n", s.styles.Bullet, s.styles.Link.Render(r.URI), r.Name)
	}
}

func (s *Shell) listProviders() {
	providers := s.agent.Registry().Providers()
	if len(providers) == 0 {
		s.printf("No providers connected.\n")
		return
	}
	for _, p := range providers {
		s.printf("%s %s: %s %s\n",
			s.styles.Bullet,
			s.styles.Provider.Render(p.ID),
			registry.Summary(p),
			s.styles.Timeago.Render("(connected "+timeago.Of(p.ConnectedAt)+")"),
		)
	}
}

func (s *Shell) copyLast() error {
	if s.last == "" {
		return errs.UserErrorf("nothing to copy yet")
	}
	if err := s.opts.Copy(s.last); err != nil {
		return errs.Wrap(err, "Could not copy to the clipboard.")
	}
	present.PrintConfirmation(s.out, s.renderer, "copied", fmt.Sprintf("%d characters", len(s.last)))
	return nil
}

func (s *Shell) markdown(text string) {
	if s.opts.Raw {
		s.printf("%s\n", strings.TrimRight(text, "\n"))
		return
	}
	out, err := present.RenderMarkdownForTTY(text, s.opts.WordWrap)
	if err != nil {
		s.log.Debug().Err(err).Msg("markdown rendering failed")
		out = text + "\n"
	}
	s.printf("%s", out)
}

func (s *Shell) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(s.out, format, a...)
}
