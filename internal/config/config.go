package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"
	"time"

	_ "embed"

	"github.com/caarlos0/env/v9"
	"github.com/charmbracelet/x/exp/ordered"
	"gopkg.in/yaml.v3"

	"github.com/dotcommander/confab/internal/errs"
)

//go:embed config_template.yml
var configTemplate string

// EnvPrefix is the prefix for environment overrides, e.g. CONFAB_MODEL.
const EnvPrefix = "CONFAB_"

// Model represents the LLM model used in the API call.
type Model struct {
	Name           string
	API            string
	Aliases        []string `yaml:"aliases"`
	ThinkingBudget int      `yaml:"thinking-budget,omitempty"`
}

// API represents an API endpoint and its models.
type API struct {
	Name      string
	APIKey    string           `yaml:"api-key"`
	APIKeyEnv string           `yaml:"api-key-env"`
	APIKeyCmd string           `yaml:"api-key-cmd"`
	BaseURL   string           `yaml:"base-url"`
	Models    map[string]Model `yaml:"models"`
}

// APIs keeps the order in which endpoints appear in the settings file.
type APIs []API

// UnmarshalYAML implements ordered API YAML decoding.
func (apis *APIs) UnmarshalYAML(node *yaml.Node) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		var api API
		if err := node.Content[i+1].Decode(&api); err != nil {
			return fmt.Errorf("error decoding YAML file: %w", err)
		}
		api.Name = node.Content[i].Value
		*apis = append(*apis, api)
	}
	return nil
}

// EnvList is a list of KEY=VALUE pairs. It decodes from either a YAML list or
// a map, the latter being the form used by mcpServers JSON files.
type EnvList []string

// UnmarshalYAML conforms with yaml.Unmarshaler.
func (e *EnvList) UnmarshalYAML(unmarshal func(any) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*e = list
		return nil
	}

	var vars map[string]string
	if err := unmarshal(&vars); err != nil {
		return err
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := make(EnvList, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+vars[k])
	}
	*e = out
	return nil
}

// MCPServerConfig is the launch specification of one capability provider.
type MCPServerConfig struct {
	Type    string   `yaml:"type"`
	Command string   `yaml:"command"`
	Env     EnvList  `yaml:"env"`
	Args    []string `yaml:"args"`
	URL     string   `yaml:"url"`
}

// Settings holds persisted configuration loaded from the YAML settings file
// and environment variables.
type Settings struct {
	API            string   `yaml:"default-api" env:"API"`
	Model          string   `yaml:"default-model" env:"MODEL"`
	APIs           APIs     `yaml:"apis"`
	System         string   `yaml:"system" env:"SYSTEM"`
	MaxTokens      int64    `yaml:"max-tokens" env:"MAX_TOKENS"`
	HTTPProxy      string   `yaml:"http-proxy" env:"HTTP_PROXY"`
	WordWrap       int      `yaml:"word-wrap" env:"WORD_WRAP"`
	Theme          string   `yaml:"theme" env:"THEME"`
	Raw            bool     `yaml:"raw" env:"RAW"`
	Quiet          bool     `yaml:"quiet" env:"QUIET"`
	LogLevel       string   `yaml:"log-level" env:"LOG_LEVEL"`
	FeedToolErrors bool     `yaml:"feed-tool-errors" env:"FEED_TOOL_ERRORS"`
	MaxRounds      int      `yaml:"max-rounds" env:"MAX_ROUNDS"`
	ResourceScheme string   `yaml:"resource-scheme" env:"RESOURCE_SCHEME"`
	MCPDisable     []string `yaml:"mcp-disable" env:"MCP_DISABLE"`

	MCPServers      map[string]MCPServerConfig `yaml:"mcp-servers"`
	MCPServersFile  string                     `yaml:"mcp-servers-file" env:"MCP_SERVERS_FILE"`
	MCPTimeout      time.Duration              `yaml:"mcp-timeout" env:"MCP_TIMEOUT"`
	MCPNoInheritEnv bool                       `yaml:"mcp-no-inherit-env" env:"MCP_NO_INHERIT_ENV"`
}

// Runtime holds CLI-only options that are never read from the settings file.
type Runtime struct {
	SettingsPath string
	Debug        bool
	PrettyLogs   bool
	TUI          bool
	OpenEditor   bool
	ShowHelp     bool
	ShowVersion  bool
}

// Config is the application configuration (settings + runtime-only options).
type Config struct {
	Settings `yaml:",inline"`
	Runtime  `yaml:"-" env:"-"`
}

// Ensure loads settings from ~/.config/confab/confab.yml, creating the file
// from the default template when it does not exist yet.
func Ensure() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errs.Error{Err: err, Reason: "Could not determine home directory."}
	}
	return Load(filepath.Join(home, ".config", "confab", "confab.yml"))
}

// Load reads the settings file at path, overlays CONFAB_* environment
// variables, merges any mcp-servers-file and applies defaults.
func Load(path string) (Config, error) {
	var c Config
	c.SettingsPath = path

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not create config directory."}
	}
	if err := WriteConfigFile(path); err != nil {
		return c, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return c, errs.Error{Err: err, Reason: "Could not read settings file."}
	}
	if err := yaml.Unmarshal(content, &c); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse settings file."}
	}
	if err := env.ParseWithOptions(&c, env.Options{Prefix: EnvPrefix}); err != nil {
		return c, errs.Error{Err: err, Reason: "Could not parse environment into settings."}
	}

	if c.MCPServersFile != "" {
		servers, err := LoadServersFile(expandHome(c.MCPServersFile))
		if err != nil {
			return c, errs.Error{Err: err, Reason: "Could not load the MCP servers file."}
		}
		c.MergeServers(servers)
	}

	c.applyDefaults()
	return c, nil
}

// serversFile mirrors the {"mcpServers": {...}} document used by most MCP
// hosts. YAML is a superset of JSON, so one decoder handles both.
type serversFile struct {
	MCPServers map[string]MCPServerConfig `yaml:"mcpServers"`
}

// LoadServersFile reads provider launch specs from a JSON or YAML file.
func LoadServersFile(path string) (map[string]MCPServerConfig, error) {
	bts, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read servers file: %w", err)
	}
	var f serversFile
	if err := yaml.Unmarshal(bts, &f); err != nil {
		return nil, fmt.Errorf("parse servers file %q: %w", path, err)
	}
	return f.MCPServers, nil
}

// MergeServers adds servers that are not already defined in the settings.
func (c *Config) MergeServers(servers map[string]MCPServerConfig) {
	if len(servers) == 0 {
		return
	}
	if c.MCPServers == nil {
		c.MCPServers = map[string]MCPServerConfig{}
	}
	for name, server := range servers {
		if _, exists := c.MCPServers[name]; exists {
			continue
		}
		c.MCPServers[name] = server
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	c.MaxTokens = ordered.First(c.MaxTokens, d.MaxTokens)
	c.WordWrap = ordered.First(c.WordWrap, d.WordWrap)
	c.MCPTimeout = ordered.First(c.MCPTimeout, d.MCPTimeout)
	c.ResourceScheme = ordered.First(strings.TrimSuffix(c.ResourceScheme, "://"), d.ResourceScheme)
	c.LogLevel = ordered.First(c.LogLevel, d.LogLevel)
	c.Theme = ordered.First(c.Theme, d.Theme)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}

// WriteConfigFile creates the config file at path if it does not exist.
func WriteConfigFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return createConfigFile(path)
	} else if err != nil {
		return errs.Error{Err: err, Reason: "Could not stat path."}
	}
	return nil
}

func createConfigFile(path string) error {
	tmpl := template.Must(template.New("config").Parse(configTemplate))

	f, err := os.Create(path)
	if err != nil {
		return errs.Error{Err: err, Reason: "Could not create configuration file."}
	}
	defer func() { _ = f.Close() }()

	m := struct{ Config Config }{Config: Default()}
	if err := tmpl.Execute(f, m); err != nil {
		return errs.Error{Err: err, Reason: "Could not render template."}
	}
	return nil
}

// Default returns the default configuration values.
func Default() Config {
	return Config{
		Settings: Settings{
			MaxTokens:      2024,
			WordWrap:       80,
			Theme:          "charm",
			LogLevel:       "warn",
			ResourceScheme: "papers",
			MCPTimeout:     15 * time.Second,
		},
	}
}
