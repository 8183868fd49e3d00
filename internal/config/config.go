// Package config loads the server's YAML configuration. Grounded verbatim
// on the teacher's internal/config/config.go (expandEnvVars, setDefaults,
// the ${VAR} expansion regex), trimmed of the Database/JWT/Encryption/
// Stdio/Kubernetes sections a single-process MCP server doesn't have and
// expanded with the provider/referral/plugin/session/audit sections this
// server does need.
package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcpi-go/mcpi/internal/mcp"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Provider  ProviderConfig   `yaml:"provider"`
	Referrals []ReferralConfig `yaml:"referrals"`
	Plugins   []PluginConfig   `yaml:"plugins"`
	Session   SessionConfig    `yaml:"session"`
	CORS      CORSConfig       `yaml:"cors"`
	Logging   LoggingConfig    `yaml:"logging"`
	Telemetry TelemetryConfig  `yaml:"telemetry"`
	Audit     AuditConfig      `yaml:"audit"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// ProviderConfig identifies this server on the discovery responder (C7).
type ProviderConfig struct {
	Name        string `yaml:"name"`
	Domain      string `yaml:"domain"`
	Description string `yaml:"description"`
}

// ReferralConfig is one statically-configured referral surfaced by C7.
type ReferralConfig struct {
	Name         string `yaml:"name"`
	Domain       string `yaml:"domain"`
	Relationship string `yaml:"relationship"`
}

// PluginConfig describes one JSON-backed plugin to register at startup.
type PluginConfig struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Category    string   `yaml:"category"`
	Operations  []string `yaml:"operations"`
	DataFile    string   `yaml:"data_file"`
}

type SessionConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	SSEKeepAlive    time.Duration `yaml:"sse_keep_alive"`
	SSEBufferSize   int           `yaml:"sse_buffer_size"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	ExposeHeaders  []string `yaml:"expose_headers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
	Insecure    bool   `yaml:"insecure"`
}

// AuditConfig gates the optional Postgres-backed audit log (internal/audit).
// An empty DSN disables it entirely. Recording JSON-RPC calls is not session
// state, so it falls outside the session-persistence Non-goal.
type AuditConfig struct {
	DSN string `yaml:"dsn"`
}

// Load reads the config file at path and expands ${VAR} environment
// references before applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the value of the environment
// variable of the same name, leaving the placeholder untouched if unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "MCPI Server"
	}
	if cfg.Provider.Domain == "" {
		cfg.Provider.Domain = "localhost"
	}
	if cfg.Session.Timeout == 0 {
		cfg.Session.Timeout = 30 * time.Minute
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 5 * time.Minute
	}
	if cfg.Session.SSEKeepAlive == 0 {
		cfg.Session.SSEKeepAlive = 15 * time.Second
	}
	if cfg.Session.SSEBufferSize == 0 {
		cfg.Session.SSEBufferSize = 32
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "mcpi-server"
	}
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
}

// ReferralsAsWire converts the configured static referrals into wire
// Referral values for the discovery responder.
func (c *Config) ReferralsAsWire() []mcp.Referral {
	out := make([]mcp.Referral, 0, len(c.Referrals))
	for _, r := range c.Referrals {
		out = append(out, mcp.Referral{Name: r.Name, Domain: r.Domain, Relationship: r.Relationship})
	}
	return out
}
