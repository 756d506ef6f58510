package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/errs"
)

// ClientName and ClientVersion are announced during the handshake.
var (
	ClientName    = "confab"
	ClientVersion = "dev"
)

// Session is the subset of an MCP client a Provider needs. *client.Client
// satisfies it.
type Session interface {
	Initialize(ctx context.Context, request mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, request mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListResources(ctx context.Context, request mcp.ListResourcesRequest) (*mcp.ListResourcesResult, error)
	ListPrompts(ctx context.Context, request mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
	ReadResource(ctx context.Context, request mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)
	GetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
	Close() error
}

// Provider is one connected capability provider and what it offered at
// discovery time.
type Provider struct {
	ID          string
	Server      mcp.Implementation
	Tools       []mcp.Tool
	Resources   []mcp.Resource
	Prompts     []mcp.Prompt
	ConnectedAt time.Time

	session Session
	log     zerolog.Logger
}

// Connect performs the handshake on sess and discovers its capabilities.
//
// Tools are mandatory: a failure to list them is a connection error.
// Resources and prompts are optional and an error listing them yields an
// empty set. On failure sess is closed.
func Connect(ctx context.Context, id string, sess Session, log zerolog.Logger) (*Provider, error) {
	log = log.With().Str("provider", id).Logger()

	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: ClientName + "-" + id, Version: ClientVersion}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	hello, err := sess.Initialize(ctx, req)
	if err != nil {
		_ = sess.Close()
		return nil, errs.Connection(id, fmt.Errorf("initialize: %w", err))
	}

	tools, err := sess.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		_ = sess.Close()
		return nil, errs.Connection(id, fmt.Errorf("list tools: %w", err))
	}

	p := &Provider{
		ID:          id,
		Server:      hello.ServerInfo,
		Tools:       tools.Tools,
		ConnectedAt: time.Now(),
		session:     sess,
		log:         log,
	}

	advertised := hello.Capabilities
	if res, err := sess.ListResources(ctx, mcp.ListResourcesRequest{}); err != nil {
		discoveryFailed(log, "resources", advertised.Resources != nil, err)
	} else {
		p.Resources = res.Resources
	}
	if res, err := sess.ListPrompts(ctx, mcp.ListPromptsRequest{}); err != nil {
		discoveryFailed(log, "prompts", advertised.Prompts != nil, err)
	} else {
		p.Prompts = res.Prompts
	}

	log.Debug().
		Int("tools", len(p.Tools)).
		Int("resources", len(p.Resources)).
		Int("prompts", len(p.Prompts)).
		Msg("discovered capabilities")
	return p, nil
}

func discoveryFailed(log zerolog.Logger, capability string, advertised bool, err error) {
	ev := log.Debug()
	if advertised {
		ev = log.Warn()
	}
	ev.Err(err).Str("capability", capability).Msg("optional capability unavailable, treating as empty")
}

// CallTool runs a tool on this provider.
func (p *Provider) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := p.session.CallTool(ctx, request)
	if err != nil {
		return nil, errs.Invocation("call tool "+name, err)
	}
	return result, nil
}

// ReadResource reads a resource from this provider.
func (p *Provider) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	request := mcp.ReadResourceRequest{}
	request.Params.URI = uri

	result, err := p.session.ReadResource(ctx, request)
	if err != nil {
		return nil, errs.Invocation("read resource "+uri, err)
	}
	return result, nil
}

// GetPrompt renders a prompt template on this provider.
func (p *Provider) GetPrompt(ctx context.Context, name string, args map[string]string) (*mcp.GetPromptResult, error) {
	request := mcp.GetPromptRequest{}
	request.Params.Name = name
	request.Params.Arguments = args

	result, err := p.session.GetPrompt(ctx, request)
	if err != nil {
		return nil, errs.Invocation("get prompt "+name, err)
	}
	return result, nil
}

// Close terminates the connection.
func (p *Provider) Close() error {
	if err := p.session.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p.ID, err)
	}
	return nil
}

// ContentText extracts the text carried by a tool result or prompt message
// content block. Embedded text resources count as text.
func ContentText(content mcp.Content) (string, bool) {
	switch c := content.(type) {
	case mcp.TextContent:
		return c.Text, true
	case *mcp.TextContent:
		return c.Text, true
	case mcp.EmbeddedResource:
		return ResourceText(c.Resource)
	case *mcp.EmbeddedResource:
		return ResourceText(c.Resource)
	default:
		return "", false
	}
}

// ResourceText extracts the text of a resource content entry.
func ResourceText(contents mcp.ResourceContents) (string, bool) {
	switch c := contents.(type) {
	case mcp.TextResourceContents:
		return c.Text, true
	case *mcp.TextResourceContents:
		return c.Text, true
	default:
		return "", false
	}
}
