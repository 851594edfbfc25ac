package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WARDEN_CONFIG env, ./config.yaml, /etc/warden/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	// Apply environment variable overrides.
	applyEnvOverrides(&cfg)

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. WARDEN_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/warden/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	// Check WARDEN_CONFIG env var.
	if envPath := os.Getenv("WARDEN_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/warden/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps WARDEN_* environment variables to config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("WARDEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("WARDEN_STORAGE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("WARDEN_POSTGRES_DSN"); v != "" {
		cfg.Storage.Postgres.DSN = v
	}
	if v := os.Getenv("WARDEN_AUTHN_PROVIDER"); v != "" {
		cfg.Authn.Provider = v
	}
	if v := os.Getenv("WARDEN_DIRECTORY_URL"); v != "" {
		cfg.Authn.Directory.URL = v
	}
	if v := os.Getenv("WARDEN_DIRECTORY_BASE_DN"); v != "" {
		cfg.Authn.Directory.BaseDN = v
	}
	if v := os.Getenv("WARDEN_SPACE"); v != "" {
		cfg.Authn.Directory.Space = v
	}
	if v := os.Getenv("WARDEN_FEDERATED_URL"); v != "" {
		cfg.Authn.Federated.URL = v
	}
	if v := os.Getenv("WARDEN_THROTTLE_RESET_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Throttle.ResetInterval = d
		}
	}
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// authn.directory.test_credentials[*].credential_file -> .credential
	for i := range cfg.Authn.Directory.TestCredentials {
		tc := &cfg.Authn.Directory.TestCredentials[i]
		if tc.CredentialFile != "" && tc.Credential == "" {
			val, err := readSecretFile(tc.CredentialFile)
			if err != nil {
				return fmt.Errorf("authn.directory.test_credentials[%d].credential_file: %w", i, err)
			}
			tc.Credential = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
