// Package chat runs the turn loop between a language model and the tools of
// the connected providers.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/proto"
)

// Model completes a conversation.
type Model interface {
	Complete(ctx context.Context, req proto.Request) (proto.Response, error)
}

// Router exposes tools to the model and runs them.
type Router interface {
	ToolSchemas() []proto.ToolSchema
	InvokeTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// Output receives what the engine shows the user while it runs.
type Output interface {
	Text(text string)
	ToolCall(call proto.ToolInvocation)
}

// State of the turn loop.
type State int

// Turn loop states.
const (
	AwaitingModel State = iota
	DispatchingTools
	Done
)

func (s State) String() string {
	switch s {
	case AwaitingModel:
		return "awaiting-model"
	case DispatchingTools:
		return "dispatching-tools"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrTooManyRounds is returned when a query exceeds Options.MaxRounds.
var ErrTooManyRounds = errors.New("too many model round trips")

// Options tune the engine.
type Options struct {
	System    string
	MaxTokens int64
	// FeedToolErrors records a failed tool call as an error result and
	// keeps going instead of ending the query.
	FeedToolErrors bool
	// MaxRounds caps completions per query. Zero means unlimited.
	MaxRounds int
}

// Engine drives one query at a time.
type Engine struct {
	model  Model
	router Router
	opts   Options
	log    zerolog.Logger
}

// New creates an engine.
func New(model Model, router Router, opts Options, log zerolog.Logger) *Engine {
	return &Engine{model: model, router: router, opts: opts, log: log}
}

// Result is the outcome of a query. Conversation holds every turn appended
// before the loop ended, including on failure.
type Result struct {
	ID           string
	Conversation proto.Conversation
	State        State
	Rounds       int
	// Answer is the text of the final model response.
	Answer string
	Err    error
}

// Run answers query, calling tools as the model asks for them.
func (e *Engine) Run(ctx context.Context, query string, out Output) (Result, error) {
	if out == nil {
		out = Discard
	}
	res := Result{ID: uuid.NewString(), State: AwaitingModel}
	log := e.log.With().Str("query_id", res.ID).Logger()
	res.Conversation.Append(proto.RoleUser, proto.Text{Text: query})

	var resp proto.Response
	for res.State != Done {
		log.Debug().Stringer("state", res.State).Int("round", res.Rounds).Msg("turn loop")

		switch res.State {
		case AwaitingModel:
			if e.opts.MaxRounds > 0 && res.Rounds >= e.opts.MaxRounds {
				return res.fail(fmt.Errorf("%w: limit is %d", ErrTooManyRounds, e.opts.MaxRounds))
			}
			var err error
			resp, err = e.model.Complete(ctx, proto.Request{
				System:    e.opts.System,
				Turns:     res.Conversation,
				Tools:     e.router.ToolSchemas(),
				MaxTokens: e.opts.MaxTokens,
			})
			res.Rounds++
			if err != nil {
				return res.fail(err)
			}
			if len(resp.Content) == 0 {
				return res.fail(errs.Malformed("model returned no content"))
			}
			res.State = DispatchingTools

		case DispatchingTools:
			invoked, err := e.dispatch(ctx, log, &res.Conversation, resp.Content, out)
			if err != nil {
				return res.fail(err)
			}
			if invoked {
				res.State = AwaitingModel
				continue
			}
			res.Answer = answer(resp.Content)
			res.State = Done
		}
	}
	return res, nil
}

// dispatch walks the blocks of one response in order. Each invocation cuts
// an assistant turn holding the blocks seen since the previous cut, runs the
// tool and records its result in a user turn.
func (e *Engine) dispatch(
	ctx context.Context,
	log zerolog.Logger,
	conv *proto.Conversation,
	blocks []proto.Block,
	out Output,
) (bool, error) {
	var pending []proto.Block
	invoked := false

	for _, block := range blocks {
		switch b := block.(type) {
		case proto.Text:
			out.Text(b.Text)
			pending = append(pending, b)

		case proto.ToolInvocation:
			pending = append(pending, b)
			conv.Append(proto.RoleAssistant, pending...)
			pending = nil
			invoked = true

			out.ToolCall(b)
			log.Debug().Str("tool", b.Name).Str("call_id", b.ID).Msg("invoking tool")
			text, err := e.router.InvokeTool(ctx, b.Name, b.Arguments)
			if err != nil {
				if !e.opts.FeedToolErrors {
					return invoked, fmt.Errorf("tool %s: %w", b.Name, err)
				}
				log.Warn().Err(err).Str("tool", b.Name).Msg("tool failed, reporting to model")
				conv.Append(proto.RoleUser, proto.ToolResult{ID: b.ID, Content: err.Error(), IsError: true})
				continue
			}
			conv.Append(proto.RoleUser, proto.ToolResult{ID: b.ID, Content: text})

		default:
			return invoked, errs.Malformed("model returned a %s block", block.Kind())
		}
	}

	if invoked && len(pending) > 0 {
		log.Debug().Int("blocks", len(pending)).Msg("dropping trailing text after last tool call")
	}
	return invoked, nil
}

func (r Result) fail(err error) (Result, error) {
	r.State = Done
	r.Err = err
	return r, err
}

func answer(blocks []proto.Block) string {
	var parts []string
	for _, b := range blocks {
		if t, ok := b.(proto.Text); ok {
			parts = append(parts, t.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Discard is an Output that shows nothing.
var Discard Output = discard{}

type discard struct{}

func (discard) Text(string)                   {}
func (discard) ToolCall(proto.ToolInvocation) {}
