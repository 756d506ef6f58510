// Package registry maps tool names, resource URIs and prompt names to the
// provider that owns them.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	xstrings "github.com/charmbracelet/x/exp/strings"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/errs"
	imcp "github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/proto"
)

// Owner is what the registry routes to. *mcp.Provider implements it.
type Owner interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error)
	Close() error
}

var _ Owner = (*imcp.Provider)(nil)

type toolEntry struct {
	tool  mcp.Tool
	owner string
}

type resourceEntry struct {
	resource mcp.Resource
	owner    string
}

type promptEntry struct {
	prompt mcp.Prompt
	owner  string
}

// Registry aggregates the capabilities of every registered provider.
//
// On a name or URI collision the provider registered last wins.
type Registry struct {
	mu        sync.RWMutex
	log       zerolog.Logger
	order     []string
	owners    map[string]Owner
	providers map[string]*imcp.Provider
	tools     map[string]toolEntry
	resources map[string]resourceEntry
	prompts   map[string]promptEntry
}

// New creates an empty registry.
func New(log zerolog.Logger) *Registry {
	return &Registry{
		log:       log,
		owners:    map[string]Owner{},
		providers: map[string]*imcp.Provider{},
		tools:     map[string]toolEntry{},
		resources: map[string]resourceEntry{},
		prompts:   map[string]promptEntry{},
	}
}

// Register adds every capability of p, taking ownership of names and URIs
// already claimed by earlier providers.
func (r *Registry) Register(p *imcp.Provider) {
	r.Add(p.ID, p, p.Tools, p.Resources, p.Prompts)

	r.mu.Lock()
	r.providers[p.ID] = p
	r.mu.Unlock()
}

// Add registers capabilities for an arbitrary owner.
func (r *Registry) Add(id string, owner Owner, tools []mcp.Tool, resources []mcp.Resource, prompts []mcp.Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.owners[id]; !exists {
		r.order = append(r.order, id)
	}
	r.owners[id] = owner

	for _, t := range tools {
		if prev, ok := r.tools[t.Name]; ok && prev.owner != id {
			r.overwritten("tool", t.Name, prev.owner, id)
		}
		r.tools[t.Name] = toolEntry{tool: t, owner: id}
	}
	for _, res := range resources {
		if prev, ok := r.resources[res.URI]; ok && prev.owner != id {
			r.overwritten("resource", res.URI, prev.owner, id)
		}
		r.resources[res.URI] = resourceEntry{resource: res, owner: id}
	}
	for _, p := range prompts {
		if prev, ok := r.prompts[p.Name]; ok && prev.owner != id {
			r.overwritten("prompt", p.Name, prev.owner, id)
		}
		r.prompts[p.Name] = promptEntry{prompt: p, owner: id}
	}
}

func (r *Registry) overwritten(kind, name, from, to string) {
	r.log.Debug().
		Str("kind", kind).
		Str("name", name).
		Str("previous_owner", from).
		Str("owner", to).
		Msg("capability reassigned")
}

// ToolOwner returns the id of the provider that owns tool name.
func (r *Registry) ToolOwner(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.owner, ok
}

// ResourceOwner returns the id of the provider that owns resource uri.
func (r *Registry) ResourceOwner(uri string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.resources[uri]
	return e.owner, ok
}

// PromptOwner returns the id of the provider that owns prompt name.
func (r *Registry) PromptOwner(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.prompts[name]
	return e.owner, ok
}

// InvokeTool runs tool name on its owning provider and returns the text of
// the first content block.
func (r *Registry) InvokeTool(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	owner := r.owners[e.owner]
	r.mu.RUnlock()
	if !ok {
		return "", errs.NotFound("tool", name)
	}

	r.log.Debug().Str("tool", name).Str("provider", e.owner).Msg("invoking tool")
	result, err := owner.CallTool(ctx, name, args)
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Content) == 0 {
		return "", errs.Malformed("tool %q returned no content", name)
	}
	text, ok := imcp.ContentText(result.Content[0])
	if result.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errs.Invocation("tool "+name, errors.New(text))
	}
	if !ok {
		return "", errs.Malformed("tool %q returned non-text content", name)
	}
	return text, nil
}

// Resource looks up a resource by exact URI.
func (r *Registry) Resource(uri string) (mcp.Resource, Owner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.resources[uri]
	if !ok {
		return mcp.Resource{}, nil, false
	}
	return e.resource, r.owners[e.owner], true
}

// Prompt looks up a prompt by name.
func (r *Registry) Prompt(name string) (mcp.Prompt, Owner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.prompts[name]
	if !ok {
		return mcp.Prompt{}, nil, false
	}
	return e.prompt, r.owners[e.owner], true
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.tools))
	for _, name := range slices.Sorted(maps.Keys(r.tools)) {
		out = append(out, r.tools[name].tool)
	}
	return out
}

// Resources returns the registered resources sorted by URI.
func (r *Registry) Resources() []mcp.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Resource, 0, len(r.resources))
	for _, uri := range slices.Sorted(maps.Keys(r.resources)) {
		out = append(out, r.resources[uri].resource)
	}
	return out
}

// Prompts returns the registered prompts sorted by name.
func (r *Registry) Prompts() []mcp.Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Prompt, 0, len(r.prompts))
	for _, name := range slices.Sorted(maps.Keys(r.prompts)) {
		out = append(out, r.prompts[name].prompt)
	}
	return out
}

// Providers returns the connected providers in registration order.
func (r *Registry) Providers() []*imcp.Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*imcp.Provider, 0, len(r.providers))
	for _, id := range r.order {
		if p, ok := r.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// ToolSchemas describes the registered tools for a model request.
func (r *Registry) ToolSchemas() []proto.ToolSchema {
	tools := r.Tools()
	schemas := make([]proto.ToolSchema, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, proto.ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: inputSchema(t),
		})
	}
	return schemas
}

func inputSchema(t mcp.Tool) map[string]any {
	if len(t.RawInputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(t.RawInputSchema, &schema); err == nil {
			return schema
		}
	}
	props := t.InputSchema.Properties
	if props == nil {
		props = map[string]any{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(t.InputSchema.Required) > 0 {
		schema["required"] = t.InputSchema.Required
	}
	return schema
}

// CloseAll closes every owner. A failing close is logged and does not stop
// the others; all failures are joined into the returned error. The registry
// is empty afterwards.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	order, owners := r.order, r.owners
	r.order = nil
	r.owners = map[string]Owner{}
	r.providers = map[string]*imcp.Provider{}
	r.tools = map[string]toolEntry{}
	r.resources = map[string]resourceEntry{}
	r.prompts = map[string]promptEntry{}
	r.mu.Unlock()

	var failures []error
	for _, id := range order {
		if err := owners[id].Close(); err != nil {
			r.log.Error().Err(err).Str("provider", id).Msg("error closing provider")
			failures = append(failures, err)
		}
	}
	return errors.Join(failures...)
}

// Summary is a one-line description of what a provider contributed.
func Summary(p *imcp.Provider) string {
	var parts []string
	if n := len(p.Tools); n > 0 {
		parts = append(parts, plural(n, "tool"))
	}
	if n := len(p.Resources); n > 0 {
		parts = append(parts, plural(n, "resource"))
	}
	if n := len(p.Prompts); n > 0 {
		parts = append(parts, plural(n, "prompt"))
	}
	if len(parts) == 0 {
		return "no capabilities"
	}
	return xstrings.EnglishJoin(parts, true)
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
