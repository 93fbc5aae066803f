package opencode

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mojoassistant/mojoassistant/internal/config"
)

// FromConfig builds a Manager from application config. Load must still be
// called once by the caller before the manager is used.
func FromConfig(cfg *config.Config, logger zerolog.Logger) *Manager {
	dataDir := cfg.Memory.DataDirectory
	opts := Options{
		DataDir:        dataDir,
		KeysDir:        filepath.Join(dataDir, "opencode-keys"),
		ProjectsDir:    filepath.Join(dataDir, "opencode-projects"),
		OpenCodeBin:    cfg.OpenCode.Bin,
		GatewayBin:     cfg.OpenCode.MCPToolPath,
		ServerPassword: cfg.OpenCode.ServerPassword,
		GatewayBearer:  cfg.OpenCode.GlobalMCPBearer,
		GatewayPort:    cfg.OpenCode.GlobalMCPToolPort,
	}
	return NewWithLogger(opts, NewProcessRunner(), logger)
}
