// Package prompt renders provider prompt templates into query text.
package prompt

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dotcommander/confab/internal/errs"
	imcp "github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/registry"
)

// Catalog is the registry view the executor needs.
type Catalog interface {
	Prompt(name string) (mcp.Prompt, registry.Owner, bool)
	Prompts() []mcp.Prompt
}

// Executor renders prompts through their owning provider.
type Executor struct {
	catalog Catalog
}

// New creates an executor over catalog.
func New(catalog Catalog) *Executor {
	return &Executor{catalog: catalog}
}

// Execute renders prompt name with args and returns the text of the first
// message, ready to be sent as a query.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]string) (string, error) {
	_, owner, ok := e.catalog.Prompt(name)
	if !ok {
		return "", errs.NotFound("prompt", name)
	}

	result, err := owner.GetPrompt(ctx, name, args)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Messages) == 0 {
		return "", errs.Malformed("prompt %q returned no messages", name)
	}
	text, ok := imcp.ContentText(result.Messages[0].Content)
	if !ok {
		return "", errs.Malformed("prompt %q returned a non-text message", name)
	}
	return text, nil
}

// Missing returns the required arguments of prompt name absent from args.
func (e *Executor) Missing(name string, args map[string]string) ([]mcp.PromptArgument, error) {
	p, _, ok := e.catalog.Prompt(name)
	if !ok {
		return nil, errs.NotFound("prompt", name)
	}
	var missing []mcp.PromptArgument
	for _, arg := range p.Arguments {
		if arg.Required && strings.TrimSpace(args[arg.Name]) == "" {
			missing = append(missing, arg)
		}
	}
	return missing, nil
}

// List returns the registered prompts sorted by name.
func (e *Executor) List() []mcp.Prompt {
	return e.catalog.Prompts()
}

// ParseArgs turns k=v words into prompt arguments.
func ParseArgs(words []string) (map[string]string, error) {
	args := make(map[string]string, len(words))
	for _, w := range words {
		k, v, ok := strings.Cut(w, "=")
		if !ok || k == "" {
			return nil, errs.UserErrorf("invalid prompt argument %q, expected key=value", w)
		}
		args[k] = v
	}
	return args, nil
}

// Signature renders a prompt and its arguments for listings, for example
// "generate_search_prompt(topic (required), num_papers)".
func Signature(p mcp.Prompt) string {
	parts := make([]string, 0, len(p.Arguments))
	for _, arg := range p.Arguments {
		if arg.Required {
			parts = append(parts, arg.Name+" (required)")
			continue
		}
		parts = append(parts, arg.Name)
	}
	return fmt.Sprintf("%s(%s)", p.Name, strings.Join(parts, ", "))
}
