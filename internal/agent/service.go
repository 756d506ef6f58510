package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/chat"
	"github.com/dotcommander/confab/internal/config"
	"github.com/dotcommander/confab/internal/mcp"
	"github.com/dotcommander/confab/internal/prompt"
	"github.com/dotcommander/confab/internal/registry"
	"github.com/dotcommander/confab/internal/resource"
)

// Service is the core orchestration layer. It is UI-agnostic and serves the
// interactive shell as well as one-shot commands.
type Service struct {
	cfg *config.Config
	log zerolog.Logger
	mcp *mcp.Service

	registry *registry.Registry
	resolver *resource.Resolver
	prompts  *prompt.Executor

	mu       sync.Mutex
	engine   *chat.Engine
	model    chat.Model
	resolved config.Model
}

// Option configures a Service.
type Option func(*Service)

// WithModel makes the service use m instead of building a model from the
// settings.
func WithModel(m chat.Model) Option {
	return func(s *Service) { s.model = m }
}

// WithMCP replaces the MCP service used to connect providers.
func WithMCP(svc *mcp.Service) Option {
	return func(s *Service) { s.mcp = svc }
}

// New creates an agent service.
func New(cfg *config.Config, log zerolog.Logger, opts ...Option) *Service {
	reg := registry.New(log)
	s := &Service{
		cfg:      cfg,
		log:      log,
		registry: reg,
		resolver: resource.New(reg, log),
		prompts:  prompt.New(reg),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.mcp == nil {
		s.mcp = mcp.New(cfg, log)
	}
	return s
}

// Start connects every enabled provider and registers the ones that
// answered, in stable name order. Providers that failed are skipped; their
// errors are joined into the returned error, which is not fatal.
func (s *Service) Start(ctx context.Context) ([]*mcp.Provider, error) {
	providers, err := s.mcp.ConnectAll(ctx)
	for _, p := range providers {
		s.Register(p)
	}
	return providers, err
}

// Register adds a connected provider to the registry.
func (s *Service) Register(p *mcp.Provider) {
	s.registry.Register(p)
	s.log.Info().
		Str("provider", p.ID).
		Str("summary", registry.Summary(p)).
		Msg("provider registered")
}

// Registry returns the capability registry.
func (s *Service) Registry() *registry.Registry { return s.registry }

// Prompts returns the prompt executor.
func (s *Service) Prompts() *prompt.Executor { return s.prompts }

// Model returns the resolved model configuration, once a query has run.
func (s *Service) Model() config.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

// Ask runs query through the chat engine.
func (s *Service) Ask(ctx context.Context, query string, out chat.Output) (chat.Result, error) {
	engine, err := s.ensureEngine(ctx)
	if err != nil {
		return chat.Result{}, err
	}
	res, err := engine.Run(ctx, query, out)
	if err != nil {
		return res, s.describeModelError(err)
	}
	return res, nil
}

// Resource returns the text of a resource. name may be a full URI or an
// @name shorthand expanded with the configured resource scheme.
func (s *Service) Resource(ctx context.Context, name string) (string, error) {
	uri := resource.Shorthand(name, s.cfg.ResourceScheme)
	text, err := s.resolver.Resolve(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("resource %s: %w", uri, err)
	}
	return text, nil
}

// RunPrompt renders prompt name with args and runs the result as a query.
func (s *Service) RunPrompt(ctx context.Context, name string, args map[string]string, out chat.Output) (chat.Result, error) {
	text, err := s.prompts.Execute(ctx, name, args)
	if err != nil {
		return chat.Result{}, fmt.Errorf("prompt %s: %w", name, err)
	}
	return s.Ask(ctx, text, out)
}

// Close disconnects every provider.
func (s *Service) Close() error {
	return s.registry.CloseAll()
}

// ensureEngine builds the engine on first use. A failed build leaves no
// engine behind, so the next query tries again.
func (s *Service) ensureEngine(ctx context.Context) (*chat.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		return s.engine, nil
	}

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	if s.model == nil {
		model, resolved, err := NewModel(ctx, s.cfg, s.log)
		if err != nil {
			return nil, err
		}
		s.model, s.resolved = model, resolved
	}
	s.engine = chat.New(s.model, s.registry, chat.Options{
		System:         system,
		MaxTokens:      s.cfg.MaxTokens,
		FeedToolErrors: s.cfg.FeedToolErrors,
		MaxRounds:      s.cfg.MaxRounds,
	}, s.log)
	return s.engine, nil
}

func (s *Service) systemPrompt(ctx context.Context) (string, error) {
	if strings.TrimSpace(s.cfg.System) == "" {
		return "", nil
	}
	text, err := config.LoadMsg(ctx, s.cfg.System)
	if err != nil {
		return "", fmt.Errorf("load system prompt: %w", err)
	}
	return text, nil
}
