// Package mcp connects to capability providers over the Model Context
// Protocol and discovers what they offer.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"

	"github.com/mark3labs/mcp-go/client"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dotcommander/confab/internal/config"
	"github.com/dotcommander/confab/internal/errs"
)

// Service launches the providers named in the configuration.
type Service struct {
	cfg *config.Config
	log zerolog.Logger
}

// New creates a new MCP service.
func New(cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// IsEnabled reports whether the named MCP server is enabled.
func (s *Service) IsEnabled(name string) bool {
	return !slices.Contains(s.cfg.MCPDisable, "*") &&
		!slices.Contains(s.cfg.MCPDisable, name)
}

// EnabledServers iterates enabled MCP servers in stable order.
func (s *Service) EnabledServers() iter.Seq2[string, config.MCPServerConfig] {
	return func(yield func(string, config.MCPServerConfig) bool) {
		names := slices.Collect(maps.Keys(s.cfg.MCPServers))
		slices.Sort(names)
		for _, name := range names {
			if !s.IsEnabled(name) {
				continue
			}
			if !yield(name, s.cfg.MCPServers[name]) {
				return
			}
		}
	}
}

// ConnectAll dials every enabled server and returns the providers that
// connected, in the same stable order as EnabledServers. Dialing happens
// concurrently; each dial and discovery is bounded by the mcp-timeout.
//
// A provider that fails is left out and its ConnectionError is joined into
// the returned error; the others are still returned.
func (s *Service) ConnectAll(ctx context.Context) ([]*Provider, error) {
	type slot struct {
		provider *Provider
		err      error
	}

	var names []string
	var servers []config.MCPServerConfig
	for name, server := range s.EnabledServers() {
		names = append(names, name)
		servers = append(servers, server)
	}

	slots := make([]slot, len(names))
	var wg errgroup.Group
	for i := range names {
		wg.Go(func() error {
			p, err := s.Connect(ctx, names[i], servers[i])
			slots[i] = slot{provider: p, err: err}
			return nil
		})
	}
	_ = wg.Wait()

	providers := make([]*Provider, 0, len(slots))
	var failures []error
	for i, sl := range slots {
		if sl.err != nil {
			s.log.Warn().Err(sl.err).Str("provider", names[i]).Msg("skipping provider")
			failures = append(failures, sl.err)
			continue
		}
		providers = append(providers, sl.provider)
	}
	return providers, errors.Join(failures...)
}

// Connect dials one server and runs discovery on it.
func (s *Service) Connect(ctx context.Context, name string, server config.MCPServerConfig) (*Provider, error) {
	timeout := s.cfg.MCPTimeout
	if timeout <= 0 {
		timeout = config.Default().MCPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cli, err := Dial(ctx, s.cfg, server)
	if err != nil {
		return nil, errs.Connection(name, err)
	}
	p, err := Connect(ctx, name, cli, s.log)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, errs.Wrapf(err,
			"Timed out connecting to %q. Make sure the configuration is correct and the server is running.", name,
		)
	}
	return p, err
}

// Dial creates and starts the transport described by server. The returned
// client has not been initialized yet.
//
// The transport is started on a context detached from ctx cancellation so
// long-lived streams (sse) survive the end of the discovery deadline.
func Dial(ctx context.Context, cfg *config.Config, server config.MCPServerConfig) (*client.Client, error) {
	var cli *client.Client
	var err error

	switch server.Type {
	case "", "stdio":
		env := []string(server.Env)
		if cfg != nil && !cfg.MCPNoInheritEnv {
			env = append(os.Environ(), server.Env...)
		}
		cli, err = client.NewStdioMCPClient(server.Command, env, server.Args...)
	case "sse":
		cli, err = client.NewSSEMCPClient(server.URL)
	case "http", "streamable-http":
		cli, err = client.NewStreamableHttpClient(server.URL)
	default:
		return nil, fmt.Errorf("unsupported MCP server type: %q, supported types are: stdio, sse, http", server.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client: %w", err)
	}

	if err := cli.Start(context.WithoutCancel(ctx)); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to start MCP client: %w", err)
	}
	return cli, nil
}
