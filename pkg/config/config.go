// CLAUDE:SUMMARY Server configuration: YAML file plus VOXSEARCH_* environment overrides with defaults, loaded through cleanenv.
package config

import "time"

// Config is the root configuration of the voxsearch server.
type Config struct {
	Addr           string        `yaml:"addr"            env:"VOXSEARCH_ADDR"            env-default:":8420"`
	DatasetsDir    string        `yaml:"datasets_dir"    env:"VOXSEARCH_DATASETS_DIR"    env-default:"datasets"`
	DefaultDataset string        `yaml:"default_dataset" env:"VOXSEARCH_DEFAULT_DATASET" env-default:"materials"`
	TLS            TLSConfig     `yaml:"tls"`
	MCP            MCPConfig     `yaml:"mcp"`
	Log            LogConfig     `yaml:"log"`
	Sources        SourcesConfig `yaml:"sources"`
	Session        SessionConfig `yaml:"session"`
}

// TLSConfig enables the chassis (TLS over TCP plus QUIC on the same port).
// Without cert files a self-signed development certificate is generated.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"   env:"VOXSEARCH_TLS_ENABLED"   env-default:"false"`
	CertFile string `yaml:"cert_file" env:"VOXSEARCH_TLS_CERT_FILE"`
	KeyFile  string `yaml:"key_file"  env:"VOXSEARCH_TLS_KEY_FILE"`
}

// MCPConfig controls the MCP-over-QUIC endpoint. It needs TLS.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"VOXSEARCH_MCP_ENABLED" env-default:"true"`
}

// LogConfig holds slog settings.
type LogConfig struct {
	Level     string `yaml:"level"      env:"VOXSEARCH_LOG_LEVEL"      env-default:"info"`
	Format    string `yaml:"format"     env:"VOXSEARCH_LOG_FORMAT"     env-default:"text"`
	AddSource bool   `yaml:"add_source" env:"VOXSEARCH_LOG_ADD_SOURCE" env-default:"false"`
}

// SourcesConfig points at the import source database. An empty DBPath
// disables the periodic source checker.
type SourcesConfig struct {
	DBPath        string        `yaml:"db_path"        env:"VOXSEARCH_SOURCES_DB"             env-default:"sources.db"`
	CheckInterval time.Duration `yaml:"check_interval" env:"VOXSEARCH_SOURCES_CHECK_INTERVAL" env-default:"24h"`
}

// SessionConfig controls voice sessions created over the API.
type SessionConfig struct {
	IdleTTL time.Duration `yaml:"idle_ttl" env:"VOXSEARCH_SESSION_IDLE_TTL" env-default:"30m"`
}
