package shell

import (
	"fmt"
	"strings"

	"github.com/caarlos0/go-shellwords"

	"github.com/dotcommander/confab/internal/errs"
)

// Kind identifies what a shell line asks for.
type Kind int

// Line kinds.
const (
	KindEmpty Kind = iota
	KindQuery
	KindQuit
	KindResource
	KindPrompts
	KindPrompt
	KindTools
	KindResources
	KindProviders
	KindCopy
	KindHelp
)

// Command is a parsed shell line.
type Command struct {
	Kind Kind
	// Text is the query for KindQuery.
	Text string
	// Name is the resource name for KindResource and the prompt name for
	// KindPrompt.
	Name string
	// Args holds the raw k=v words of a /prompt line.
	Args []string
}

var slashCommands = map[string]Kind{
	"prompts":   KindPrompts,
	"prompt":    KindPrompt,
	"tools":     KindTools,
	"resources": KindResources,
	"providers": KindProviders,
	"copy":      KindCopy,
	"help":      KindHelp,
	"quit":      KindQuit,
	"exit":      KindQuit,
}

// Parse classifies one line of input.
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return Command{Kind: KindEmpty}, nil
	case strings.EqualFold(line, "quit"), strings.EqualFold(line, "exit"):
		return Command{Kind: KindQuit}, nil
	case strings.HasPrefix(line, "@"):
		name := strings.TrimSpace(line[1:])
		if name == "" || strings.ContainsAny(name, " \t") {
			return Command{}, errs.UserErrorf("usage: @<resource>, e.g. @folders")
		}
		return Command{Kind: KindResource, Name: name}, nil
	case strings.HasPrefix(line, "/"):
		return parseSlash(line)
	default:
		return Command{Kind: KindQuery, Text: line}, nil
	}
}

func parseSlash(line string) (Command, error) {
	words, err := shellwords.Parse(line[1:])
	if err != nil {
		return Command{}, fmt.Errorf("parse %q: %w", line, err)
	}
	if len(words) == 0 {
		return Command{}, errs.UserErrorf("missing command after /, try /help")
	}

	kind, ok := slashCommands[strings.ToLower(words[0])]
	if !ok {
		return Command{}, errs.UserErrorf("unknown command /%s, try /help", words[0])
	}
	if kind != KindPrompt {
		return Command{Kind: kind}, nil
	}
	if len(words) < 2 {
		return Command{}, errs.UserErrorf("usage: /prompt <name> <arg1=value1> <arg2=value2>")
	}
	return Command{Kind: KindPrompt, Name: words[1], Args: words[2:]}, nil
}
