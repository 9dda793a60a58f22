package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds all CLI configuration options.
type Config struct {
	BackendURL    string `koanf:"backend-url"`
	WorkspaceDir  string `koanf:"workspace-dir"`
	StatePath     string `koanf:"state-path"`
	Port          int    `koanf:"port"`
	SessionSecret string `koanf:"session-secret"`
	Watch         bool   `koanf:"watch"`
	Verbose       bool   `koanf:"verbose"`
}

// Default configuration values.
const (
	DefaultBackendURL   = "http://localhost:8000"
	DefaultWorkspaceDir = "workflows"
	DefaultStatePath    = ".lumagraph/state.db"
	DefaultPort         = 4400
)

// Config file candidates, checked in order.
var configFileNames = []string{
	"lumagraph.yaml",
	"lumagraph.yml",
	".lumagraph.yaml",
	".lumagraph.yml",
}

// LoadConfig loads configuration in layers.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]any{
		"backend-url":    DefaultBackendURL,
		"workspace-dir":  DefaultWorkspaceDir,
		"state-path":     DefaultStatePath,
		"port":           DefaultPort,
		"session-secret": "lumagraph-dev-secret",
		"watch":          true,
		"verbose":        false,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	} else {
		for _, candidate := range configFileNames {
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if err := k.Load(file.Provider(candidate), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", candidate, err)
			}
			break
		}
	}

	// LUMAGRAPH_BACKEND_URL -> backend-url
	err := k.Load(env.Provider("LUMAGRAPH_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "LUMAGRAPH_")), "_", "-")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend-url is required")
	}
	if c.WorkspaceDir == "" {
		return fmt.Errorf("workspace-dir is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}
