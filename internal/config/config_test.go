package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnvList(t *testing.T) {
	t.Run("list form", func(t *testing.T) {
		var s MCPServerConfig
		require.NoError(t, yaml.Unmarshal([]byte("env: [A=1, B=2]"), &s))
		require.Equal(t, EnvList{"A=1", "B=2"}, s.Env)
	})

	t.Run("map form is sorted", func(t *testing.T) {
		var s MCPServerConfig
		require.NoError(t, yaml.Unmarshal([]byte("env:\n  ZED: z\n  PAPER_DIR: papers"), &s))
		require.Equal(t, EnvList{"PAPER_DIR=papers", "ZED=z"}, s.Env)
	})
}

func TestAPIsKeepOrder(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(`
apis:
  zeta:
    base-url: https://z.example
  alpha:
    models:
      m1:
        aliases: [one]
`), &cfg))
	require.Len(t, cfg.APIs, 2)
	require.Equal(t, "zeta", cfg.APIs[0].Name)
	require.Equal(t, "alpha", cfg.APIs[1].Name)
	require.Equal(t, []string{"one"}, cfg.APIs[1].Models["m1"].Aliases)
}

func TestLoad(t *testing.T) {
	t.Run("creates settings from template", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "confab", "confab.yml")
		cfg, err := Load(path)
		require.NoError(t, err)
		require.FileExists(t, path)
		require.Equal(t, path, cfg.SettingsPath)
		require.EqualValues(t, 2024, cfg.MaxTokens)
		require.Equal(t, 15*time.Second, cfg.MCPTimeout)
		require.Equal(t, "papers", cfg.ResourceScheme)
		require.Equal(t, "openai", cfg.API)
		require.NotEmpty(t, cfg.APIs)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "confab.yml")
		require.NoError(t, os.WriteFile(path, []byte("default-model: gpt-4o\nmax-tokens: 100\n"), 0o600))
		t.Setenv("CONFAB_MODEL", "haiku")
		t.Setenv("CONFAB_MCP_TIMEOUT", "3s")

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "haiku", cfg.Model)
		require.EqualValues(t, 100, cfg.MaxTokens)
		require.Equal(t, 3*time.Second, cfg.MCPTimeout)
	})

	t.Run("merges servers file without overriding settings", func(t *testing.T) {
		dir := t.TempDir()
		serversPath := filepath.Join(dir, "server_config.json")
		require.NoError(t, os.WriteFile(serversPath, []byte(`{
  "mcpServers": {
    "research": {"command": "uv", "args": ["run", "research_server.py"]},
    "fetch": {"command": "uvx", "args": ["mcp-server-fetch"], "env": {"TOKEN": "x"}}
  }
}`), 0o600))
		settings := "mcp-servers-file: " + serversPath + "\nmcp-servers:\n  research:\n    command: python\n"
		path := filepath.Join(dir, "confab.yml")
		require.NoError(t, os.WriteFile(path, []byte(settings), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "python", cfg.MCPServers["research"].Command)
		require.Equal(t, "uvx", cfg.MCPServers["fetch"].Command)
		require.Equal(t, EnvList{"TOKEN=x"}, cfg.MCPServers["fetch"].Env)
	})

	t.Run("bad servers file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "confab.yml")
		require.NoError(t, os.WriteFile(path, []byte("mcp-servers-file: /does/not/exist.json\n"), 0o600))
		_, err := Load(path)
		require.ErrorContains(t, err, "read servers file")
	})

	t.Run("scheme separator is trimmed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "confab.yml")
		require.NoError(t, os.WriteFile(path, []byte("resource-scheme: notes://\n"), 0o600))
		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, "notes", cfg.ResourceScheme)
	})
}
