package cmd

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/duration"
)

var helpText = map[string]string{
	"api":                "OpenAI compatible REST API (openai, anthropic, google, ollama, etc.)",
	"model":              "Default model (gpt-4o, claude-3-7-sonnet, etc.)",
	"http-proxy":         "HTTP proxy to use for model API requests",
	"system":             "System prompt: raw text, a file:// path or an http(s) URL",
	"max-tokens":         "Maximum number of tokens in a model response",
	"max-rounds":         "Maximum model round trips per query (0 for no limit)",
	"feed-tool-errors":   "Send failed tool calls back to the model instead of aborting the query",
	"resource-scheme":    "Scheme used to expand @name into <scheme>://name",
	"raw":                "Print answers without markdown rendering",
	"quiet":              "Hide connection summaries and tool call traces",
	"word-wrap":          "Wrap formatted output at a specific width",
	"theme":              "Theme to use in the forms (charm, catppuccin, dracula, base16)",
	"tui":                "Run the interactive shell full screen",
	"editor":             "Write the query in your $EDITOR",
	"debug":              "Log debug information to stderr",
	"pretty-logs":        "Write human readable logs instead of JSON",
	"log-level":          "Log level (debug, info, warn, error)",
	"mcp-servers-file":   "Load extra providers from a {\"mcpServers\": {...}} file",
	"mcp-disable":        "Disable specific MCP servers (\"*\" for all)",
	"mcp-timeout":        "Timeout for connecting to an MCP server (e.g. 15s, 1m)",
	"mcp-no-inherit-env": "Do not pass the parent environment to stdio MCP servers",
	"help":               "Show help and exit",
	"version":            "Show version and exit",
}

type flagParseError struct {
	err    error
	reason string
	flag   string
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}

var (
	shorthandFlagRe  = regexp.MustCompile(`unknown shorthand flag: '.*' in (-\w)`)
	invalidArgFlagRe = regexp.MustCompile(`invalid argument ".*" for "(.*)" flag: .*`)
)

func newFlagParseError(err error) flagParseError {
	var reason, flag string
	msg := err.Error()
	parts := strings.Split(msg, " ")
	switch {
	case strings.HasPrefix(msg, "flag needs an argument:"):
		reason = "Flag %s needs an argument."
		flag = parts[len(parts)-1]
	case strings.HasPrefix(msg, "unknown flag:"):
		reason = "Flag %s is missing."
		flag = parts[len(parts)-1]
	case strings.HasPrefix(msg, "unknown shorthand flag:"):
		reason = "Short flag %s is missing."
		if m := shorthandFlagRe.FindStringSubmatch(msg); len(m) > 1 {
			flag = m[1]
		}
	case strings.HasPrefix(msg, "invalid argument"):
		reason = "Flag %s have an invalid argument."
		if m := invalidArgFlagRe.FindStringSubmatch(msg); len(m) > 1 {
			flag = m[1]
		}
	default:
		reason = "Flag parsing failed: %s"
		flag = msg
	}
	return flagParseError{err: err, reason: reason, flag: flag}
}

// durationFlag is a pflag.Value that also accepts day and week units.
type durationFlag time.Duration

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}
	*d = durationFlag(v)
	return nil
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}
