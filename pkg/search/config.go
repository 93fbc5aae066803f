package search

import "strings"

const (
	ProviderExa         = "exa"
	ProviderGoogle      = "google"
	ProviderDuckDuckGo  = "duckduckgo"
	DefaultSearchCount  = 5
	MaxSearchCount      = 10
	DefaultTimeoutSecs  = 30
	DefaultCacheTtlSecs = 900
)

var DefaultFallbackOrder = []string{
	ProviderGoogle,
	ProviderExa,
	ProviderDuckDuckGo,
}

// Config controls search provider selection and credentials.
type Config struct {
	Provider  string
	Fallbacks []string

	Exa    ExaConfig
	Google GoogleConfig
	DDG    DDGConfig
}

type ExaConfig struct {
	Enabled           *bool
	BaseURL           string
	APIKey            string
	Type              string
	Category          string
	NumResults        int
	IncludeText       bool
	TextMaxCharacters int
	Highlights        bool
}

// GoogleConfig configures the Google Custom Search JSON API provider used
// by the web_search tool. The API key is shared with the Gemini LLM/embedding
// provider (GOOGLE_API_KEY) rather than duplicated under a search-specific
// name.
type GoogleConfig struct {
	Enabled        *bool
	APIKey         string
	SearchEngineID string
	BaseURL        string
	TimeoutSecs    int
	CacheTtlSecs   int
}

// DDGConfig configures the no-API-key DuckDuckGo instant-answer fallback.
type DDGConfig struct {
	Enabled *bool
}

func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if strings.TrimSpace(c.Provider) == "" {
		if strings.TrimSpace(c.Google.SearchEngineID) != "" && strings.TrimSpace(c.Google.APIKey) != "" {
			c.Provider = ProviderGoogle
		} else if strings.TrimSpace(c.Exa.APIKey) != "" {
			c.Provider = ProviderExa
		} else {
			c.Provider = ProviderDuckDuckGo
		}
	}
	if len(c.Fallbacks) == 0 {
		c.Fallbacks = append([]string{}, DefaultFallbackOrder...)
	}
	c.Exa = c.Exa.withDefaults()
	c.Google = c.Google.withDefaults()
	return c
}

func (c ExaConfig) withDefaults() ExaConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.exa.ai"
	}
	if c.Type == "" {
		c.Type = "auto"
	}
	if c.NumResults <= 0 {
		c.NumResults = DefaultSearchCount
	}
	if c.TextMaxCharacters <= 0 {
		c.TextMaxCharacters = 500
	}
	return c
}

func (c GoogleConfig) withDefaults() GoogleConfig {
	if c.BaseURL == "" {
		c.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if c.TimeoutSecs <= 0 {
		c.TimeoutSecs = DefaultTimeoutSecs
	}
	if c.CacheTtlSecs <= 0 {
		c.CacheTtlSecs = DefaultCacheTtlSecs
	}
	return c
}

func isEnabled(flag *bool, fallback bool) bool {
	if flag == nil {
		return fallback
	}
	return *flag
}
