// Package config loads the single typed view over environment variables and
// the optional .env file that every other component is constructed from.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mojoassistant/mojoassistant/internal/apperr"
)

// Config is the immutable, process-wide view over environment configuration.
// Mirrors the grouped-struct shape the rest of the pack uses for its
// connector config, env- instead of YAML-sourced.
type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	LLM      LLMConfig
	Memory   MemoryConfig
	Dreaming DreamingConfig
	Search   SearchConfig
	OpenCode OpenCodeConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	Environment string // "production" | "development"
}

func (s ServerConfig) IsDevelopment() bool {
	return strings.EqualFold(s.Environment, "development")
}

type AuthConfig struct {
	RequireAuth bool
	APIKey      string

	OAuthEnabled        bool
	OAuthIssuer         string
	OAuthAudience       string
	OAuthJWKSURI        string
	OAuthRequiredScopes []string
}

type LLMConfig struct {
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GoogleAPIKey    string
	LMStudioBaseURL string
	LMStudioAPIKey  string

	// TaskRouting maps a task tag ("chat", "dreaming_chunk", "dreaming_cluster",
	// "repair_json", ...) to a provider+model, loaded from llm_config.json.
	TaskRouting map[string]TaskRoute
}

type TaskRoute struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type MemoryConfig struct {
	EmbeddingModel    string
	EmbeddingBackend  string
	EmbeddingDevice   string
	MultiModelEnabled bool
	WorkingMaxTokens  int
	ActiveMaxPages    int
	DataDirectory     string
}

type DreamingConfig struct {
	Enabled        bool
	Schedule       string // cron expression
	OffPeakStart   string // "HH:MM"
	OffPeakEnd     string // "HH:MM"
	OffPeakTZ      string
}

type SearchConfig struct {
	GoogleSearchEngineID string
	GoogleAPIKey         string
}

type OpenCodeConfig struct {
	MCPToolPath       string
	Bin               string
	ServerPassword    string
	GlobalMCPBearer   string
	GlobalMCPToolPort int
}

// Load reads an optional .env file (never overriding variables already set in
// the real environment) and then builds a Config from the process
// environment, applying defaults where the spec requires one. Returns a
// ConfigError wrapping any fatal startup problem.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, apperr.Wrap(apperr.KindConfig, "failed to load .env file", err, nil)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getenv("SERVER_HOST", "127.0.0.1"),
			Port:        getenvInt("SERVER_PORT", 8765),
			Environment: getenv("ENVIRONMENT", "production"),
		},
		Auth: AuthConfig{
			RequireAuth:         getenvBool("MCP_REQUIRE_AUTH", false),
			APIKey:              os.Getenv("MCP_API_KEY"),
			OAuthEnabled:        getenvBool("OAUTH_ENABLED", false),
			OAuthIssuer:         os.Getenv("OAUTH_ISSUER"),
			OAuthAudience:       os.Getenv("OAUTH_AUDIENCE"),
			OAuthJWKSURI:        os.Getenv("OAUTH_JWKS_URI"),
			OAuthRequiredScopes: splitCSV(os.Getenv("OAUTH_REQUIRED_SCOPES")),
		},
		LLM: LLMConfig{
			OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			GoogleAPIKey:    os.Getenv("GOOGLE_API_KEY"),
			LMStudioBaseURL: os.Getenv("LMSTUDIO_BASE_URL"),
			LMStudioAPIKey:  os.Getenv("LMSTUDIO_API_KEY"),
		},
		Memory: MemoryConfig{
			EmbeddingModel:    getenv("EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingBackend:  getenv("EMBEDDING_BACKEND", "openai"),
			EmbeddingDevice:   getenv("EMBEDDING_DEVICE", "cpu"),
			MultiModelEnabled: getenvBool("MULTI_MODEL_ENABLED", false),
			WorkingMaxTokens:  getenvInt("WORKING_MAX_TOKENS", 4000),
			ActiveMaxPages:    getenvInt("ACTIVE_MAX_PAGES", 200),
			DataDirectory:     getenv("DATA_DIRECTORY", defaultDataDirectory()),
		},
		Dreaming: DreamingConfig{
			Enabled:      getenvBool("DREAMING_ENABLED", true),
			Schedule:     getenv("DREAMING_SCHEDULE", "0 3 * * *"),
			OffPeakStart: getenv("DREAMING_OFFPEAK_START", "01:00"),
			OffPeakEnd:   getenv("DREAMING_OFFPEAK_END", "05:00"),
			OffPeakTZ:    getenv("DREAMING_OFFPEAK_TZ", "local"),
		},
		Search: SearchConfig{
			GoogleSearchEngineID: os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
			GoogleAPIKey:         os.Getenv("GOOGLE_SEARCH_API_KEY"),
		},
		OpenCode: OpenCodeConfig{
			MCPToolPath:       os.Getenv("OPENCODE_MCP_TOOL_PATH"),
			Bin:               getenv("OPENCODE_BIN", "opencode"),
			ServerPassword:    os.Getenv("OPENCODE_SERVER_PASSWORD"),
			GlobalMCPBearer:   os.Getenv("GLOBAL_MCP_BEARER_TOKEN"),
			GlobalMCPToolPort: getenvInt("GLOBAL_MCP_TOOL_PORT", 4199),
		},
	}

	taskRouting, err := loadLLMTaskRouting(getenv("LLM_CONFIG_PATH", "llm_config.json"))
	if err != nil {
		return nil, err
	}
	cfg.LLM.TaskRouting = taskRouting

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperr.New(apperr.KindConfig, fmt.Sprintf("invalid SERVER_PORT %d", c.Server.Port), nil)
	}
	if !c.Server.IsDevelopment() && !strings.EqualFold(c.Server.Environment, "production") {
		return apperr.New(apperr.KindConfig, fmt.Sprintf("invalid ENVIRONMENT %q", c.Server.Environment), nil)
	}
	if c.Auth.RequireAuth && c.Auth.APIKey == "" && !c.Auth.OAuthEnabled {
		return apperr.New(apperr.KindConfig, "MCP_REQUIRE_AUTH is set but no MCP_API_KEY or OAuth is configured", nil)
	}
	return nil
}

func loadLLMTaskRouting(path string) (map[string]TaskRoute, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultTaskRouting(), nil
		}
		return nil, apperr.Wrap(apperr.KindConfig, "failed to read llm_config.json", err, map[string]any{"path": path})
	}
	var routes map[string]TaskRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, apperr.Wrap(apperr.KindConfig, "failed to parse llm_config.json", err, map[string]any{"path": path})
	}
	merged := defaultTaskRouting()
	for tag, route := range routes {
		merged[tag] = route
	}
	return merged, nil
}

func defaultTaskRouting() map[string]TaskRoute {
	return map[string]TaskRoute{
		"chat":             {Provider: "openai", Model: "gpt-4o-mini"},
		"dreaming_chunk":   {Provider: "openai", Model: "gpt-4o-mini"},
		"dreaming_cluster": {Provider: "openai", Model: "gpt-4o-mini"},
		"repair_json":      {Provider: "openai", Model: "gpt-4o-mini"},
	}
}

func defaultDataDirectory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memory"
	}
	return filepath.Join(home, ".memory")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
