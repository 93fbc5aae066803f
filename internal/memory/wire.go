package memory

import (
	"github.com/mojoassistant/mojoassistant/internal/config"
	"github.com/mojoassistant/mojoassistant/internal/embedding"
)

// FromConfig builds a Service wired to the given embedding backends and
// loads any state persisted under cfg.Memory.DataDirectory.
func FromConfig(cfg *config.Config, embed *embedding.Service) (*Service, error) {
	return NewService(cfg.Memory, embed)
}
