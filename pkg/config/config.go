// Package config provides unified configuration for the warden identity service.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WARDEN_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the warden identity service.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Authn         AuthnConfig         `yaml:"authn"`
	Policy        PolicyConfig        `yaml:"policy"`
	Throttle      ThrottleConfig      `yaml:"throttle"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`          // default: 8080
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"` // default: 30s
}

// StorageConfig holds identity store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory" or "postgres", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 25
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthnConfig selects and configures the authentication provider.
type AuthnConfig struct {
	Provider  string          `yaml:"provider"` // "disabled", "store", "directory", or "federated", default: "disabled"
	Directory DirectoryConfig `yaml:"directory"`
	Federated FederatedConfig `yaml:"federated"`
}

// DirectoryConfig holds LDAP directory bind settings.
type DirectoryConfig struct {
	URL             string                 `yaml:"url"`     // required for provider=directory
	BaseDN          string                 `yaml:"base_dn"` // required for provider=directory
	Timeout         time.Duration          `yaml:"timeout"` // default: 10s
	Space           string                 `yaml:"space"`   // deployment space, e.g. "int", "stage", "prod"
	TestCredentials []TestCredentialConfig `yaml:"test_credentials"`
}

// TestCredentialConfig describes a single bypass credential honored only in
// non-production spaces.
type TestCredentialConfig struct {
	Username       string `yaml:"username"`
	Credential     string `yaml:"credential"`
	CredentialFile string `yaml:"credential_file"` // _file variant for credential
}

// FederatedConfig holds settings for delegating decisions to a remote
// identity provider over mutual TLS.
type FederatedConfig struct {
	URL            string        `yaml:"url"`     // required for provider=federated
	Timeout        time.Duration `yaml:"timeout"` // default: 30s
	ClientCertFile string        `yaml:"client_cert_file"`
	ClientKeyFile  string        `yaml:"client_key_file"`
	RootCAFile     string        `yaml:"root_ca_file"`
}

// PolicyConfig holds the role-based endpoint policy table.
type PolicyConfig struct {
	// Endpoints maps an action name to the roles allowed to perform it.
	// Actions absent from the table are denied for everyone.
	Endpoints map[string][]string `yaml:"endpoints"`
}

// ThrottleConfig holds quota settings for the throttle authorizer.
type ThrottleConfig struct {
	// Limits is the per-category invocation quota. Categories without an
	// entry are unlimited.
	Limits map[string]int `yaml:"limits"`

	// Categories maps an action name to its quota category. Unmapped
	// actions use the action name itself.
	Categories map[string]string `yaml:"categories"`

	// ResetInterval is how often all counters are cleared. Zero disables
	// the reset loop. Default: 24h.
	ResetInterval time.Duration `yaml:"reset_interval"`
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Type: "memory",
			Postgres: PostgresConfig{
				MaxConns: 25,
			},
		},
		Authn: AuthnConfig{
			Provider: "disabled",
			Directory: DirectoryConfig{
				Timeout: 10 * time.Second,
			},
			Federated: FederatedConfig{
				Timeout: 30 * time.Second,
			},
		},
		Throttle: ThrottleConfig{
			ResetInterval: 24 * time.Hour,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
