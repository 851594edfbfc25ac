// Command server runs the warden identity decision service.
//
// Configuration is layered: built-in defaults, a YAML config file
// (-config flag, WARDEN_CONFIG env, ./config.yaml, /etc/warden/config.yaml),
// then WARDEN_* environment variable overrides.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
	"github.com/wardenauth/warden/pkg/authn/directory"
	"github.com/wardenauth/warden/pkg/authn/disabled"
	authnfederated "github.com/wardenauth/warden/pkg/authn/federated"
	authnstore "github.com/wardenauth/warden/pkg/authn/store"
	"github.com/wardenauth/warden/pkg/authz"
	"github.com/wardenauth/warden/pkg/config"
	"github.com/wardenauth/warden/pkg/keys"
	"github.com/wardenauth/warden/pkg/storage"
	"github.com/wardenauth/warden/pkg/storage/memory"
	"github.com/wardenauth/warden/pkg/storage/postgres"
	transporthttp "github.com/wardenauth/warden/pkg/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	aud := audit.New(logger)

	ctx := context.Background()

	// Identity store.
	st, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}
	defer st.Close()
	logger.Info("store ready", "type", cfg.Storage.Type)

	// Authentication variant.
	authenticator, err := buildAuthenticator(cfg, st, aud)
	if err != nil {
		return fmt.Errorf("creating authenticator: %w", err)
	}
	logger.Info("authentication provider selected", "provider", cfg.Authn.Provider)

	// Key registry and authorization chain: endpoint policy first, then
	// quota throttling, so a policy denial never consumes quota.
	registry := keys.NewRegistry(st, aud)
	chain := authz.NewChain(st, registry, aud,
		authz.NewEndpointAuthorizer(cfg.Policy.Endpoints),
		authz.NewThrottleAuthorizer(st, authz.ThrottleConfig{
			Limits:     cfg.Throttle.Limits,
			Categories: cfg.Throttle.Categories,
		}),
	)

	// Periodic throttle reset, making quotas per-period.
	if cfg.Throttle.ResetInterval > 0 {
		stopJanitor := startThrottleJanitor(st, cfg.Throttle.ResetInterval, logger)
		defer stopJanitor()
	}

	adapterCfg := transporthttp.DefaultConfig()
	adapterCfg.ProviderName = cfg.Authn.Provider
	if !cfg.Observability.Metrics.Enabled {
		adapterCfg.MetricsPath = ""
	} else if cfg.Observability.Metrics.Path != "" {
		adapterCfg.MetricsPath = cfg.Observability.Metrics.Path
	}

	adapter := transporthttp.NewAdapter(authenticator, chain, registry, st, aud, adapterCfg)

	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(logger),
	)

	return srv.ListenAndServe()
}

// buildStore creates the configured identity store adapter.
func buildStore(ctx context.Context, cfg *config.Config) (storage.IdentityStore, error) {
	switch cfg.Storage.Type {
	case "postgres":
		return postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
	default:
		return memory.New(), nil
	}
}

// buildAuthenticator creates the configured authentication variant.
func buildAuthenticator(cfg *config.Config, st storage.IdentityStore, aud *audit.Logger) (authn.Authenticator, error) {
	switch cfg.Authn.Provider {
	case "store":
		return authnstore.New(st, aud), nil

	case "directory":
		dirCfg := directory.Config{
			URL:     cfg.Authn.Directory.URL,
			BaseDN:  cfg.Authn.Directory.BaseDN,
			Timeout: cfg.Authn.Directory.Timeout,
			Space:   cfg.Authn.Directory.Space,
		}
		for _, tc := range cfg.Authn.Directory.TestCredentials {
			dirCfg.TestCredentials = append(dirCfg.TestCredentials, directory.TestCredential{
				Username: tc.Username,
				Secret:   tc.Credential,
			})
		}
		return directory.New(dirCfg, aud), nil

	case "federated":
		fedCfg := authnfederated.Config{
			URL:     cfg.Authn.Federated.URL,
			Timeout: cfg.Authn.Federated.Timeout,
		}
		if cfg.Authn.Federated.ClientCertFile != "" {
			cert, err := tls.LoadX509KeyPair(cfg.Authn.Federated.ClientCertFile, cfg.Authn.Federated.ClientKeyFile)
			if err != nil {
				return nil, fmt.Errorf("loading client certificate: %w", err)
			}
			fedCfg.ClientCertificate = &cert
		}
		if cfg.Authn.Federated.RootCAFile != "" {
			pem, err := os.ReadFile(cfg.Authn.Federated.RootCAFile)
			if err != nil {
				return nil, fmt.Errorf("reading root CA file: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("no certificates found in %s", cfg.Authn.Federated.RootCAFile)
			}
			fedCfg.RootCAs = pool
		}
		return authnfederated.New(fedCfg, aud), nil

	default:
		return disabled.New(), nil
	}
}

// startThrottleJanitor clears all throttle counters on the given interval.
// The returned function stops the loop.
func startThrottleJanitor(st storage.IdentityStore, interval time.Duration, logger *slog.Logger) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				if err := st.ClearThrottles(ctx); err != nil {
					logger.Error("throttle reset failed", "error", err)
				} else {
					logger.Info("throttle counters reset", "interval", interval)
				}
				cancel()
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}
