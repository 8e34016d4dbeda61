package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultBaseURL points at a local dev backend. Release builds and real
// deployments override it via config.toml or RULEREF_API_URL.
const DefaultBaseURL = "http://127.0.0.1:8000"

// Request timeouts. Chat queries run retrieval plus inference on the
// backend, so they get a much longer budget than simple calls.
const (
	RequestTimeout = 10 * time.Second
	QueryTimeout   = 30 * time.Second
)

// DefaultExportTemplate renders a conversation to markdown. Users can
// replace it by dropping export_template.md in the config directory.
const DefaultExportTemplate = `# {{title}}

Game: {{game_name}} ({{game_id}})
Started: {{created_at}}
Messages: {{message_count}}

{{#messages}}
## {{role}} — {{timestamp}}

{{content}}

{{/messages}}
`

type Config struct {
	BaseURL        string
	ExportTemplate string
}

type tomlConfig struct {
	APIURL string `toml:"api_url"`
}

// Dir returns the ruleref config directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "ruleref")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// DefaultDBPath is where conversation history lives unless --db overrides it.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "~"
	}
	return filepath.Join(home, ".config", "ruleref", "ruleref.db")
}

// Load reads config from ~/.config/ruleref/, then applies environment
// overrides. Missing files fall back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		BaseURL:        DefaultBaseURL,
		ExportTemplate: DefaultExportTemplate,
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil // Use defaults
	}

	configDir := filepath.Join(home, ".config", "ruleref")
	tomlPath := filepath.Join(configDir, "config.toml")
	templatePath := filepath.Join(configDir, "export_template.md")

	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err == nil && tc.APIURL != "" {
			cfg.BaseURL = tc.APIURL
		}
	}

	if data, err := os.ReadFile(templatePath); err == nil {
		cfg.ExportTemplate = string(data)
	}

	// Environment wins over file config
	if url := strings.TrimSpace(os.Getenv("RULEREF_API_URL")); url != "" {
		cfg.BaseURL = url
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return cfg, nil
}
