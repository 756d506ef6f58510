package shell

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/huh"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/muesli/termenv"

	"github.com/dotcommander/confab/internal/chat"
	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/present"
	"github.com/dotcommander/confab/internal/proto"
)

type output struct{ s *Shell }

var _ chat.Output = output{}

func (s *Shell) output() chat.Output { return output{s: s} }

// Text prints a model text block as soon as it arrives.
func (o output) Text(text string) {
	o.s.markdown(text)
}

// ToolCall prints the trace line of an invocation before it runs.
func (o output) ToolCall(inv proto.ToolInvocation) {
	if o.s.opts.Quiet {
		return
	}
	line := fmt.Sprintf("Calling tool %s with args %s", inv.Name, inv.ArgumentsJSON())
	o.s.printf("%s\n", o.s.styles.ToolCall.Render(line))
}

type usage struct{ cmd, desc string }

var bannerCommands = []usage{
	{"@<resource>", "Access a resource (e.g., @folders, @ai_interpretability)"},
	{"/prompts", "List available prompts"},
	{"/prompt <name> <args>", "Execute a prompt"},
	{"/help", "Show every command"},
}

var helpCommands = []usage{
	{"<text>", "Ask the model, calling provider tools as needed"},
	{"@<resource>", "Print a resource; a bare name uses the configured scheme"},
	{"/prompts", "List available prompts and their arguments"},
	{"/prompt <name> k=v ...", "Render a prompt and run it as a query"},
	{"/tools", "List the tools the model can call"},
	{"/resources", "List resource URIs"},
	{"/providers", "List connected providers"},
	{"/copy", "Copy the last answer to the clipboard"},
	{"quit, exit", "Leave the shell"},
}

// Banner is printed when the shell starts.
func Banner(s present.Styles) string {
	var sb strings.Builder
	sb.WriteString(s.AppName.Render("confab chat started!") + "\n")
	sb.WriteString(`Type your queries or "quit" to exit.` + "\n")
	sb.WriteString("Special commands:\n")
	writeUsage(&sb, s, bannerCommands)
	return sb.String()
}

// Help describes every shell command.
func Help(s present.Styles) string {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	writeUsage(&sb, s, helpCommands)
	return sb.String()
}

func writeUsage(sb *strings.Builder, s present.Styles, cmds []usage) {
	width := 0
	for _, c := range cmds {
		width = max(width, len(c.cmd))
	}
	for _, c := range cmds {
		pad := strings.Repeat(" ", width-len(c.cmd))
		fmt.Fprintf(sb, "  %s%s  %s\n", s.Flag.Render(c.cmd), pad, s.FlagDesc.Render(c.desc))
	}
}

// CopyToClipboard copies text to the system clipboard and, through an OSC 52
// sequence, to the terminal's.
func CopyToClipboard(text string) error {
	termenv.Copy(text)
	if clipboard.Unsupported {
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

// FormAsker asks for missing prompt arguments with a huh form.
func FormAsker(theme *huh.Theme) ArgumentAsker {
	return func(promptName string, missing []mcp.PromptArgument, args map[string]string) error {
		values := make([]string, len(missing))
		fields := make([]huh.Field, 0, len(missing))
		for i, arg := range missing {
			fields = append(fields, huh.NewInput().
				Title(arg.Name).
				Description(arg.Description).
				Value(&values[i]).
				Validate(func(v string) error {
					if strings.TrimSpace(v) == "" {
						return errs.UserErrorf("%s is required", arg.Name)
					}
					return nil
				}))
		}

		if err := huh.NewForm(
			huh.NewGroup(fields...).Title("Arguments for " + promptName),
		).
			WithTheme(theme).
			Run(); err != nil {
			return fmt.Errorf("argument form: %w", err)
		}
		for i, arg := range missing {
			args[arg.Name] = values[i]
		}
		return nil
	}
}
