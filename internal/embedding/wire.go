package embedding

import (
	"fmt"

	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/pkg/memory/embedding"
)

// FromConfig builds a Service with whichever backends have credentials
// configured. At least one of OpenAI/Gemini/local must be usable or the
// returned error is a ConfigError-worthy startup fault for the caller to
// surface.
func FromConfig(cfg *config.Config) (*Service, error) {
	svc := NewService(4096)
	registered := 0

	if cfg.LLM.OpenAIAPIKey != "" {
		backend, err := embedding.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey, "", cfg.Memory.EmbeddingModel, nil)
		if err != nil {
			return nil, err
		}
		svc.Register("openai", backend)
		registered++
	}
	if cfg.LLM.GoogleAPIKey != "" {
		backend, err := embedding.NewGeminiProvider(cfg.LLM.GoogleAPIKey, "", "text-embedding-004", nil)
		if err != nil {
			return nil, err
		}
		svc.Register("gemini", backend)
		registered++
	}
	if cfg.LLM.LMStudioBaseURL != "" {
		backend, err := embedding.NewLocalProvider(cfg.LLM.LMStudioBaseURL, cfg.LLM.LMStudioAPIKey, cfg.Memory.EmbeddingModel, nil)
		if err != nil {
			return nil, err
		}
		svc.Register("local", backend)
		registered++
	}
	if registered == 0 {
		return nil, fmt.Errorf("no embedding backend configured: set OPENAI_API_KEY, GOOGLE_API_KEY, or LMSTUDIO_BASE_URL")
	}
	return svc, nil
}
