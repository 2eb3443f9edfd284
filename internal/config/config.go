// Package config loads service configuration from config files and the
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/appforge-ai/appforge/pkg/types"
)

// Default values applied before any file or environment override.
const (
	DefaultPort            = 8080
	DefaultPreviewDomain   = "appforge.local"
	DefaultDataDirName     = "appforge"
	DefaultSessionsPerHour = 20
)

// Load loads configuration from multiple sources (priority order, lowest
// first):
//  1. Global config (~/.config/appforge/appforge.{json,jsonc,yaml})
//  2. Project config (<dir>/appforge.{json,jsonc,yaml})
//  3. Environment variables (APPFORGE_*)
func Load(directory string) (*types.Config, error) {
	cfg := &types.Config{
		Host:          "127.0.0.1",
		Port:          DefaultPort,
		PreviewDomain: DefaultPreviewDomain,
		DataDir:       defaultDataDir(),
		LogLevel:      "INFO",
		EnableCORS:    true,
		Provider:      make(map[string]types.ProviderConfig),
		Quota:         types.QuotaConfig{SessionsPerHour: DefaultSessionsPerHour},
	}

	if home, err := os.UserConfigDir(); err == nil {
		loadDir(filepath.Join(home, "appforge"), cfg)
	}
	if directory != "" {
		loadDir(directory, cfg)
	}

	applyEnv(cfg)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}
	return cfg, nil
}

// loadDir merges any recognized config file found in dir into cfg.
// Missing or unreadable files are skipped.
func loadDir(dir string, cfg *types.Config) {
	for _, name := range []string{"appforge.json", "appforge.jsonc", "appforge.yaml", "appforge.yml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		switch filepath.Ext(name) {
		case ".yaml", ".yml":
			_ = yaml.Unmarshal(data, cfg)
		default:
			_ = yamlFromJSONC(data, cfg)
		}
	}
}

// yamlFromJSONC strips jsonc comments then decodes. YAML is a superset
// of JSON, so one decoder handles both file families.
func yamlFromJSONC(data []byte, cfg *types.Config) error {
	return yaml.Unmarshal(jsonc.ToJSON(data), cfg)
}

// applyEnv overlays APPFORGE_* environment variables.
func applyEnv(cfg *types.Config) {
	if v := os.Getenv("APPFORGE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("APPFORGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("APPFORGE_PREVIEW_DOMAIN"); v != "" {
		cfg.PreviewDomain = v
	}
	if v := os.Getenv("APPFORGE_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("APPFORGE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("APPFORGE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("APPFORGE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("APPFORGE_SESSIONS_PER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quota.SessionsPerHour = n
		}
	}

	// Provider API keys come from the conventional env vars when a file
	// did not set them.
	envKeys := map[string]string{
		"claude": "ANTHROPIC_API_KEY",
		"openai": "OPENAI_API_KEY",
		"ark":    "ARK_API_KEY",
	}
	for id, envVar := range envKeys {
		key := os.Getenv(envVar)
		if key == "" {
			continue
		}
		pc := cfg.Provider[id]
		if pc.APIKey == "" {
			pc.APIKey = key
			cfg.Provider[id] = pc
		}
	}
}

// DefaultModel splits cfg.Model into provider and model ids. Both are
// empty when no default is configured.
func DefaultModel(cfg *types.Config) (providerID, modelID string) {
	if cfg == nil || cfg.Model == "" {
		return "", ""
	}
	parts := strings.SplitN(cfg.Model, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func defaultDataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}
	return filepath.Join(base, DefaultDataDirName)
}
