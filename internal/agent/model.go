package agent

import (
	"context"
	"fmt"
	"maps"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/go-shellwords"
	"github.com/rs/zerolog"

	"github.com/dotcommander/confab/internal/chat"
	"github.com/dotcommander/confab/internal/config"
	"github.com/dotcommander/confab/internal/errs"
	"github.com/dotcommander/confab/internal/fantasybridge"
)

// NewModel resolves the configured model and builds a client for it.
func NewModel(ctx context.Context, cfg *config.Config, log zerolog.Logger) (chat.Model, config.Model, error) {
	api, mod, err := resolveModel(cfg)
	if err != nil {
		return nil, config.Model{}, err
	}
	cfg.API = mod.API
	cfg.Model = mod.Name

	providerCfg, err := prepareProviderConfig(ctx, mod, api)
	if err != nil {
		return nil, mod, err
	}
	providerCfg.Logger = log
	if err := ApplyProxyConfig(cfg.HTTPProxy, &providerCfg); err != nil {
		return nil, mod, err
	}

	client, err := NewFantasyClient(providerCfg)
	if err != nil {
		return nil, mod, err
	}
	log.Debug().Str("api", mod.API).Str("model", mod.Name).Msg("model ready")
	return client, mod, nil
}

func resolveModel(cfg *config.Config) (config.API, config.Model, error) {
	for _, api := range cfg.APIs {
		if api.Name != cfg.API && cfg.API != "" {
			continue
		}
		for name, mod := range api.Models {
			if name == cfg.Model || slices.Contains(mod.Aliases, cfg.Model) {
				cfg.Model = name
				break
			}
		}
		mod, ok := api.Models[cfg.Model]
		if ok {
			mod.Name = cfg.Model
			mod.API = api.Name
			return api, mod, nil
		}
		if cfg.API != "" {
			available := slices.Sorted(maps.Keys(api.Models))
			return config.API{}, config.Model{}, errs.Error{
				Err:    errs.UserErrorf("Available models are: %s", strings.Join(available, ", ")),
				Reason: fmt.Sprintf("The API endpoint %s does not contain the model %s", cfg.API, cfg.Model),
			}
		}
	}

	return config.API{}, config.Model{}, errs.Error{
		Reason: fmt.Sprintf("Model %s is not in the settings file.", cfg.Model),
		Err:    errs.UserErrorf("Please specify an API endpoint with --api or configure the model in the settings: confab config edit"),
	}
}

// keySource says where an API's key comes from when the settings do not
// name one.
type keySource struct {
	env  string
	docs string
	name string
}

var keySources = map[string]keySource{
	"openai":     {"OPENAI_API_KEY", "https://platform.openai.com/account/api-keys", "OpenAI"},
	"anthropic":  {"ANTHROPIC_API_KEY", "https://console.anthropic.com/settings/keys", "Anthropic"},
	"google":     {"GOOGLE_API_KEY", "https://aistudio.google.com/app/apikey", "Google"},
	"azure":      {"AZURE_OPENAI_KEY", "https://aka.ms/oai/access", "Azure"},
	"azure-ad":   {"AZURE_OPENAI_KEY", "https://aka.ms/oai/access", "Azure"},
	"openrouter": {"OPENROUTER_API_KEY", "https://openrouter.ai/keys", "OpenRouter"},
	"vercel":     {"VERCEL_API_KEY", "https://vercel.com/dashboard/tokens", "Vercel AI Gateway"},
}

func prepareProviderConfig(ctx context.Context, mod config.Model, api config.API) (fantasybridge.Config, error) {
	pc := fantasybridge.Config{
		API:            mod.API,
		Model:          mod.Name,
		BaseURL:        api.BaseURL,
		ThinkingBudget: mod.ThinkingBudget,
	}

	switch mod.API {
	case "ollama":
		if pc.BaseURL == "" {
			pc.BaseURL = "http://localhost:11434/v1"
		}
		return pc, nil
	case "bedrock":
		key, err := optionalKey(ctx, api)
		if err != nil {
			return pc, errs.Error{Err: err, Reason: "Bedrock authentication failed"}
		}
		pc.APIKey = key
		return pc, nil
	}

	src, ok := keySources[mod.API]
	if !ok {
		src = keySources["openai"]
	}
	key, err := ensureKey(ctx, api, src.env, src.docs)
	if err != nil {
		return pc, errs.Error{Err: err, Reason: src.name + " authentication failed"}
	}
	pc.APIKey = key
	return pc, nil
}

// ApplyProxyConfig configures the provider HTTP client to use an HTTP proxy.
func ApplyProxyConfig(httpProxy string, providerCfg *fantasybridge.Config) error {
	if httpProxy == "" {
		return nil
	}
	proxyURL, err := url.Parse(httpProxy)
	if err != nil {
		return errs.Error{Err: err, Reason: "There was an error parsing your proxy URL."}
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errs.Error{Err: fmt.Errorf("default transport is not *http.Transport"), Reason: "Could not configure proxy."}
	}
	tr := base.Clone()
	tr.Proxy = http.ProxyURL(proxyURL)
	tr.DialContext = (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = 10 * time.Second
	tr.ResponseHeaderTimeout = 30 * time.Second
	tr.IdleConnTimeout = 90 * time.Second
	providerCfg.HTTPClient = &http.Client{Transport: tr}
	return nil
}

// NewFantasyClient creates the fantasy bridge client.
func NewFantasyClient(cfg fantasybridge.Config) (*fantasybridge.Client, error) {
	if cfg.API == "" {
		return nil, errs.Error{Reason: "missing fantasy provider configuration"}
	}
	client, err := fantasybridge.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("new fantasy bridge client: %w", err)
	}
	return client, nil
}

func ensureKey(ctx context.Context, api config.API, defaultEnv, docsURL string) (string, error) {
	key, err := optionalKey(ctx, api)
	if err != nil {
		return "", err
	}
	if key == "" {
		key = os.Getenv(defaultEnv)
	}
	if key != "" {
		return key, nil
	}
	return "", errs.Error{
		Reason: fmt.Sprintf("%s required; set %s or update confab.yml through confab config edit.", defaultEnv, defaultEnv),
		Err:    errs.UserErrorf("You can grab one at %s", docsURL),
	}
}

// optionalKey reads the key from the settings, api-key-env or api-key-cmd,
// in that order.
func optionalKey(ctx context.Context, api config.API) (string, error) {
	key := api.APIKey
	if key == "" && api.APIKeyEnv != "" && api.APIKeyCmd == "" {
		key = os.Getenv(api.APIKeyEnv)
	}
	if key == "" && api.APIKeyCmd != "" {
		args, err := shellwords.Parse(api.APIKeyCmd)
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Failed to parse api-key-cmd"}
		}
		if len(args) == 0 {
			return "", errs.Error{Reason: "api-key-cmd is empty"}
		}
		// #nosec G204 -- api-key-cmd is explicitly configured by the local user.
		out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
		if err != nil {
			return "", errs.Error{Err: err, Reason: "Cannot exec api-key-cmd"}
		}
		key = strings.TrimSpace(string(out))
	}
	return key, nil
}
