package config

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const maxRemoteMsgBytes = 2 * 1024 * 1024

// LoadMsg resolves the configured system prompt.
//
// msg may be raw text, an http(s) URL or a file:// path. Markdown files have
// their YAML frontmatter stripped.
func LoadMsg(ctx context.Context, msg string) (string, error) {
	switch {
	case strings.HasPrefix(msg, "https://"), strings.HasPrefix(msg, "http://"):
		return loadRemoteMsg(ctx, msg)
	case strings.HasPrefix(msg, "file://"):
		return loadFileMsg(strings.TrimPrefix(msg, "file://"))
	default:
		return msg, nil
	}
}

func loadRemoteMsg(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("fetch system message: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch system message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bts, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return "", fmt.Errorf("fetch system message: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bts)))
	}
	bts, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteMsgBytes))
	if err != nil {
		return "", fmt.Errorf("read system message: %w", err)
	}
	if len(bts) >= maxRemoteMsgBytes {
		return "", fmt.Errorf("read system message: response too large (>%d bytes)", maxRemoteMsgBytes)
	}
	return string(bts), nil
}

func loadFileMsg(path string) (string, error) {
	bts, err := os.ReadFile(expandHome(path))
	if err != nil {
		return "", fmt.Errorf("read system message file: %w", err)
	}
	if !strings.EqualFold(filepath.Ext(path), ".md") {
		return string(bts), nil
	}
	return StripYAMLFrontmatter(string(bts))
}

// StripYAMLFrontmatter removes YAML frontmatter from markdown content.
func StripYAMLFrontmatter(content string) (string, error) {
	lines := strings.Split(content, "\n")
	if strings.TrimSpace(lines[0]) != "---" {
		return content, nil
	}

	end := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end == -1 {
		return "", fmt.Errorf("invalid markdown frontmatter: missing closing delimiter")
	}

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &parsed); err != nil {
		return "", fmt.Errorf("invalid markdown frontmatter: %w", err)
	}
	return strings.TrimLeft(strings.Join(lines[end+1:], "\n"), "\r\n"), nil
}
