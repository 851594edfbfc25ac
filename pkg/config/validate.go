package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be positive.
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	// storage.type must be a known value.
	switch c.Storage.Type {
	case "memory", "postgres":
		// valid
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\" or \"postgres\", got %q", c.Storage.Type))
	}

	// If storage.type is "postgres", DSN or DSNFile must be set.
	if c.Storage.Type == "postgres" {
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
		}
	}

	// authn.provider must be a known value.
	switch c.Authn.Provider {
	case "disabled", "store", "directory", "federated":
		// valid
	default:
		errs = append(errs, fmt.Errorf("authn.provider must be \"disabled\", \"store\", \"directory\", or \"federated\", got %q", c.Authn.Provider))
	}

	// The directory provider needs a bind target.
	if c.Authn.Provider == "directory" {
		if c.Authn.Directory.URL == "" {
			errs = append(errs, fmt.Errorf("authn.directory.url is required when authn.provider is \"directory\""))
		}
		if c.Authn.Directory.BaseDN == "" {
			errs = append(errs, fmt.Errorf("authn.directory.base_dn is required when authn.provider is \"directory\""))
		}
	}

	// The federated provider needs a decision endpoint.
	if c.Authn.Provider == "federated" && c.Authn.Federated.URL == "" {
		errs = append(errs, fmt.Errorf("authn.federated.url is required when authn.provider is \"federated\""))
	}

	// A client certificate needs its key and vice versa.
	cert, key := c.Authn.Federated.ClientCertFile, c.Authn.Federated.ClientKeyFile
	if (cert == "") != (key == "") {
		errs = append(errs, fmt.Errorf("authn.federated.client_cert_file and client_key_file must be set together"))
	}

	// Throttle limits must be non-negative.
	for category, limit := range c.Throttle.Limits {
		if limit < 0 {
			errs = append(errs, fmt.Errorf("throttle.limits[%q] must be >= 0, got %d", category, limit))
		}
	}

	return errors.Join(errs...)
}
