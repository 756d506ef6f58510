// Package mcptest builds in-process MCP servers for tests.
package mcptest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Paper is a fixture arXiv entry.
type Paper struct {
	ID      string
	Title   string
	Summary string
}

// Library maps a topic to its stored papers.
type Library map[string][]Paper

// DefaultLibrary is a small fixture corpus.
func DefaultLibrary() Library {
	return Library{
		"physics": {
			{ID: "2401.00001", Title: "Quantum Widgets", Summary: "Widgets, but quantum."},
		},
		"ai_interpretability": {
			{ID: "2402.00002", Title: "Reading Neurons", Summary: "What a neuron means."},
			{ID: "2402.00003", Title: "Circuits", Summary: "Tracing circuits in transformers."},
		},
	}
}

// NewResearchServer returns a server shaped like a literature-research
// provider: search_papers and extract_info tools, papers:// resources and the
// generate_search_prompt prompt.
func NewResearchServer(name string, lib Library) *server.MCPServer {
	s := server.NewMCPServer(
		name, "1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithPromptCapabilities(false),
	)

	s.AddTool(mcp.NewTool("search_papers",
		mcp.WithDescription("Search for papers on arXiv based on a topic and store their information."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("The topic to search for")),
		mcp.WithNumber("max_results", mcp.Description("Maximum number of results to retrieve")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic := normalizeTopic(req.GetString("topic", ""))
		papers, ok := lib[topic]
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("No papers found for %s.", topic)), nil
		}
		ids := make([]string, 0, len(papers))
		for _, p := range papers {
			ids = append(ids, p.ID)
		}
		return mcp.NewToolResultText(strings.Join(ids, ", ")), nil
	})

	s.AddTool(mcp.NewTool("extract_info",
		mcp.WithDescription("Search for information about a specific paper across all topic directories."),
		mcp.WithString("paper_id", mcp.Required(), mcp.Description("The ID of the paper to look for")),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("paper_id", "")
		for _, topic := range lib.Topics() {
			for _, p := range lib[topic] {
				if p.ID == id {
					return mcp.NewToolResultText(fmt.Sprintf("%s: %s", p.Title, p.Summary)), nil
				}
			}
		}
		return mcp.NewToolResultError(fmt.Sprintf("There's no saved information related to paper %s.", id)), nil
	})

	s.AddResource(mcp.NewResource("papers://folders", "Available Topics",
		mcp.WithResourceDescription("List all available topic folders in the papers directory"),
		mcp.WithMIMEType("text/markdown"),
	), func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var sb strings.Builder
		sb.WriteString("# Available Topics\n\n")
		for _, topic := range lib.Topics() {
			fmt.Fprintf(&sb, "- %s\n", topic)
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI: req.Params.URI, MIMEType: "text/markdown", Text: sb.String(),
		}}, nil
	})

	for _, topic := range lib.Topics() {
		uri := "papers://" + topic
		s.AddResource(mcp.NewResource(uri, "Papers on "+strings.ReplaceAll(topic, "_", " "),
			mcp.WithResourceDescription("Detailed information about papers on "+topic),
			mcp.WithMIMEType("text/markdown"),
		), func(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{mcp.TextResourceContents{
				URI: req.Params.URI, MIMEType: "text/markdown", Text: lib.Markdown(topic),
			}}, nil
		})
	}

	s.AddPrompt(mcp.NewPrompt("generate_search_prompt",
		mcp.WithPromptDescription("Generate a prompt for Claude to find and discuss academic papers on a specific topic"),
		mcp.WithArgument("topic", mcp.RequiredArgument(), mcp.ArgumentDescription("The research topic to search for")),
		mcp.WithArgument("num_papers", mcp.ArgumentDescription("Number of papers to search for")),
	), func(_ context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		topic := req.Params.Arguments["topic"]
		if topic == "" {
			return nil, errors.New("topic is required")
		}
		num := req.Params.Arguments["num_papers"]
		if num == "" {
			num = "5"
		}
		text := fmt.Sprintf("Search for %s academic papers about '%s' using the search_papers tool.", num, topic)
		return mcp.NewGetPromptResult("Research paper search and analysis prompt", []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		}), nil
	})

	return s
}

// Topics returns the library topics in sorted order.
func (l Library) Topics() []string {
	topics := make([]string, 0, len(l))
	for t := range l {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

// Markdown renders the papers of a topic the way the research provider does.
func (l Library) Markdown(topic string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Papers on %s\n\n", strings.ReplaceAll(topic, "_", " "))
	for _, p := range l[topic] {
		fmt.Fprintf(&sb, "## %s\n- **Paper ID**: %s\n\n%s\n\n", p.Title, p.ID, p.Summary)
	}
	return sb.String()
}

func normalizeTopic(topic string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(topic)), " ", "_")
}

// NewToolServer returns a tools-only server. Each tool answers with the
// fixed text in tools, which makes routing observable.
func NewToolServer(name string, tools map[string]string) *server.MCPServer {
	s := server.NewMCPServer(name, "1.0.0", server.WithToolCapabilities(true))
	for toolName, reply := range tools {
		s.AddTool(mcp.NewTool(toolName, mcp.WithDescription(toolName+" from "+name)),
			func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return mcp.NewToolResultText(reply), nil
			})
	}
	return s
}

// NewResourceServer returns a resources-only server serving the fixed text
// of each URI in docs.
func NewResourceServer(name string, docs map[string]string) *server.MCPServer {
	s := server.NewMCPServer(name, "1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
	)
	for uri, text := range docs {
		s.AddResource(mcp.NewResource(uri, uri, mcp.WithMIMEType("text/plain")),
			func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
				return []mcp.ResourceContents{mcp.TextResourceContents{URI: uri, MIMEType: "text/plain", Text: text}}, nil
			})
	}
	return s
}

// AddEmptyResultTool registers a tool that violates the content contract by
// returning no blocks.
func AddEmptyResultTool(s *server.MCPServer, name string) {
	s.AddTool(mcp.NewTool(name), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{Content: []mcp.Content{}}, nil
	})
}

// Dial returns a started in-process client for s.
func Dial(ctx context.Context, s *server.MCPServer) (*client.Client, error) {
	cli, err := client.NewInProcessClient(s)
	if err != nil {
		return nil, fmt.Errorf("in-process client: %w", err)
	}
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("start in-process client: %w", err)
	}
	return cli, nil
}
