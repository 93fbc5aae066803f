package search

import (
	"os"
	"strings"

	"github.com/mojoassistant/mojoassistant/pkg/shared/stringutil"
)

// ConfigFromEnv builds a search config using environment variables.
func ConfigFromEnv() *Config {
	cfg := &Config{}

	if provider := strings.TrimSpace(os.Getenv("SEARCH_PROVIDER")); provider != "" {
		cfg.Provider = provider
	}
	if fallbacks := strings.TrimSpace(os.Getenv("SEARCH_FALLBACKS")); fallbacks != "" {
		cfg.Fallbacks = stringutil.SplitCSV(fallbacks)
	}
	cfg.Exa.APIKey = envOr(cfg.Exa.APIKey, os.Getenv("EXA_API_KEY"))
	cfg.Exa.BaseURL = envOr(cfg.Exa.BaseURL, os.Getenv("EXA_BASE_URL"))

	// The Google Custom Search API key rides on the same GOOGLE_API_KEY used
	// for the Gemini embedding/LLM provider; only the search engine ID is
	// search-specific.
	cfg.Google.APIKey = envOr(cfg.Google.APIKey, os.Getenv("GOOGLE_API_KEY"))
	cfg.Google.SearchEngineID = envOr(cfg.Google.SearchEngineID, os.Getenv("GOOGLE_SEARCH_ENGINE_ID"))
	cfg.Google.BaseURL = envOr(cfg.Google.BaseURL, os.Getenv("GOOGLE_SEARCH_BASE_URL"))

	return cfg.WithDefaults()
}

// ApplyEnvDefaults fills empty config fields from environment variables.
func ApplyEnvDefaults(cfg *Config) *Config {
	if cfg == nil {
		return ConfigFromEnv()
	}
	providerSet := strings.TrimSpace(cfg.Provider) != ""
	current := cfg.WithDefaults()
	envCfg := ConfigFromEnv()

	if strings.TrimSpace(current.Provider) == "" {
		current.Provider = envCfg.Provider
	}
	if len(current.Fallbacks) == 0 {
		current.Fallbacks = envCfg.Fallbacks
	}

	if current.Exa.APIKey == "" {
		current.Exa.APIKey = envCfg.Exa.APIKey
	}
	if current.Exa.BaseURL == "" {
		current.Exa.BaseURL = envCfg.Exa.BaseURL
	}

	if current.Google.APIKey == "" {
		current.Google.APIKey = envCfg.Google.APIKey
	}
	if current.Google.SearchEngineID == "" {
		current.Google.SearchEngineID = envCfg.Google.SearchEngineID
	}
	if current.Google.BaseURL == "" {
		current.Google.BaseURL = envCfg.Google.BaseURL
	}

	if !providerSet {
		if strings.TrimSpace(current.Google.SearchEngineID) != "" && strings.TrimSpace(current.Google.APIKey) != "" {
			current.Provider = ProviderGoogle
		} else if strings.TrimSpace(current.Exa.APIKey) != "" {
			current.Provider = ProviderExa
		}
	}

	return current
}

func envOr(existing, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return existing
	}
	return value
}
