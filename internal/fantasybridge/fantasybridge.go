// Package fantasybridge answers completion requests with charm.land/fantasy
// language models.
package fantasybridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"charm.land/fantasy"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/proto"
)

const (
	apiAnthropic  = "anthropic"
	apiGoogle     = "google"
	apiOpenAI     = "openai"
	apiAzure      = "azure"
	apiAzureAD    = "azure-ad"
	apiOpenRouter = "openrouter"
	apiVercel     = "vercel"
	apiBedrock    = "bedrock"
)

// Config represents provider configuration used by the fantasy bridge.
type Config struct {
	API            string
	Model          string
	BaseURL        string
	APIKey         string
	HTTPClient     *http.Client
	ThinkingBudget int
	Logger         zerolog.Logger
}

// Client completes conversations on one provider model.
type Client struct {
	provider fantasy.Provider
	config   Config
}

// New creates a new fantasy-backed client.
func New(cfg Config) (*Client, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{provider: provider, config: cfg}, nil
}

// Complete sends one request and gathers the streamed reply into ordered
// text and tool invocation blocks.
func (c *Client) Complete(ctx context.Context, req proto.Request) (proto.Response, error) {
	model, err := c.provider.LanguageModel(ctx, c.config.Model)
	if err != nil {
		return proto.Response{}, fmt.Errorf("fantasy language model: %w", err)
	}

	seq, err := model.Stream(ctx, c.buildCall(req))
	if err != nil {
		return proto.Response{}, fmt.Errorf("fantasy stream: %w", err)
	}

	col := newCollector()
	for part := range seq {
		col.consumePart(part)
		if col.err != nil {
			break
		}
	}
	for _, w := range col.warnings {
		c.config.Logger.Warn().Str("api", c.config.API).Msg(w)
	}
	return col.response()
}

func (c *Client) buildCall(req proto.Request) fantasy.Call {
	call := fantasy.Call{
		Prompt:          toFantasyPrompt(req.System, req.Turns),
		Tools:           fromToolSchemas(req.Tools),
		ToolChoice:      toolChoiceForRequest(req),
		ProviderOptions: fantasy.ProviderOptions{},
	}
	if req.MaxTokens > 0 {
		call.MaxOutputTokens = fantasy.Opt(req.MaxTokens)
	}
	applyProviderOptions(&call, c.config)
	return call
}

// collector folds stream parts into response blocks, keeping the order in
// which text and tool calls arrived.
type collector struct {
	blocks   []proto.Block
	text     strings.Builder
	seen     map[string]struct{}
	warnSeen map[string]struct{}
	warnings []string
	err      error
}

func newCollector() *collector {
	return &collector{seen: map[string]struct{}{}, warnSeen: map[string]struct{}{}}
}

func (c *collector) flushText() {
	if c.text.Len() == 0 {
		return
	}
	c.blocks = append(c.blocks, proto.Text{Text: c.text.String()})
	c.text.Reset()
}

func (c *collector) consumePart(part fantasy.StreamPart) {
	switch part.Type {
	case fantasy.StreamPartTypeTextDelta:
		c.text.WriteString(part.Delta)
	case fantasy.StreamPartTypeTextEnd:
		c.flushText()
	case fantasy.StreamPartTypeToolCall:
		if part.ProviderExecuted {
			return
		}
		if _, exists := c.seen[part.ID]; exists {
			return
		}
		c.seen[part.ID] = struct{}{}
		c.flushText()

		args := map[string]any{}
		if input := strings.TrimSpace(part.ToolCallInput); input != "" {
			if err := json.Unmarshal([]byte(input), &args); err != nil {
				c.err = errs.Malformed("tool call %s arguments: %v", part.ToolCallName, err)
				return
			}
		}
		c.blocks = append(c.blocks, proto.ToolInvocation{
			ID:        part.ID,
			Name:      part.ToolCallName,
			Arguments: args,
		})
	case fantasy.StreamPartTypeError:
		c.err = part.Error
	case fantasy.StreamPartTypeWarnings:
		for _, warning := range part.Warnings {
			text := strings.TrimSpace(warning.Message)
			if text == "" {
				text = strings.TrimSpace(warning.Details)
			}
			if text == "" && warning.Setting != "" {
				text = "unsupported setting: " + warning.Setting
			}
			if text == "" {
				text = "provider warning"
			}
			key := string(warning.Type) + ":" + text
			if _, exists := c.warnSeen[key]; exists {
				continue
			}
			c.warnSeen[key] = struct{}{}
			c.warnings = append(c.warnings, text)
		}
	default:
	}
}

func (c *collector) response() (proto.Response, error) {
	if c.err != nil {
		return proto.Response{}, c.err
	}
	c.flushText()
	return proto.Response{Content: c.blocks}, nil
}
