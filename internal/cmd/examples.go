package cmd

import (
	"math/rand"
	"regexp"

	"github.com/dotcommander/confab/internal/present"
)

var examples = map[string]string{
	"Ask a question the research tools can answer": `confab "find 3 recent papers about dark matter and summarize them"`,
	"Summarize piped text with the model":          `cat notes.md | confab "turn these notes into a reading list"`,
	"Open the chat in full screen":                 `confab --tui --mcp-servers-file ~/.config/claude/servers.json`,
	"Skip one of your MCP servers":                 `confab --mcp-disable=filesystem "list my research topics" | glow`,
}

func randomExample() string {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.Intn(len(keys))] //nolint:gosec
	return desc
}

func cheapHighlighting(s present.Styles, code string) string {
	code = regexp.
		MustCompile(`"([^"\\]|\\.)*"`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Quote.Render(x)
		})
	code = regexp.
		MustCompile(`\|`).
		ReplaceAllStringFunc(code, func(x string) string {
			return s.Pipe.Render(x)
		})
	return code
}
