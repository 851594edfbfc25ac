// Package federated provides the authenticator that delegates both
// credential flows to an external identity endpoint reached over a mutually
// authenticated TLS channel. The provider's decision is returned verbatim.
package federated

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
)

// Config holds the federated authenticator configuration.
type Config struct {
	// URL is the identity provider's decision endpoint.
	URL string

	// Timeout bounds each decision round trip. Default: 30s.
	Timeout time.Duration

	// ClientCertificate is the client keypair for the mutually
	// authenticated channel. Supplied by the deployment, not loaded here.
	ClientCertificate *tls.Certificate

	// RootCAs verifies the provider's certificate. Nil uses system roots.
	RootCAs *x509.CertPool

	// HTTPClient overrides the TLS-configured client (useful for testing).
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// Authenticator delegates authentication decisions to the identity provider.
type Authenticator struct {
	config Config
	client *http.Client
	audit  *audit.Logger
}

// New creates a federated authenticator. Unless an HTTPClient is injected,
// the client is built with the configured mutual-TLS material.
func New(cfg Config, aud *audit.Logger) *Authenticator {
	cfg.applyDefaults()

	client := cfg.HTTPClient
	if client == nil {
		tlsCfg := &tls.Config{RootCAs: cfg.RootCAs}
		if cfg.ClientCertificate != nil {
			tlsCfg.Certificates = []tls.Certificate{*cfg.ClientCertificate}
		}
		client = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		}
	}

	return &Authenticator{config: cfg, client: client, audit: aud}
}

// decisionRequest is the payload sent to the identity provider.
type decisionRequest struct {
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
	Subject    string `json:"subject,omitempty"`
}

// ByPassword delegates the username/secret pair to the provider.
func (a *Authenticator) ByPassword(ctx context.Context, username, secret string) (authn.Decision, error) {
	a.audit.Record(ctx, username, "loginAttempt", "federated credential check")
	return a.decide(ctx, decisionRequest{Username: username, Credential: secret}, username)
}

// ByCertificate delegates the certificate-subject claim to the provider.
func (a *Authenticator) ByCertificate(ctx context.Context, subject string) (authn.Decision, error) {
	a.audit.Record(ctx, "", "loginAttempt", "federated certificate check")
	return a.decide(ctx, decisionRequest{Subject: subject}, "")
}

// decide posts the request and returns the provider's decision verbatim.
// A transport failure or non-2xx status is an infrastructure fault; a
// denial arrives as a well-formed body with valid=false.
func (a *Authenticator) decide(ctx context.Context, req decisionRequest, actor string) (authn.Decision, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return authn.Decision{}, fmt.Errorf("marshaling decision request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return authn.Decision{}, fmt.Errorf("building decision request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return authn.Decision{}, fmt.Errorf("reaching identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return authn.Decision{}, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var decision api.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		return authn.Decision{}, fmt.Errorf("decoding identity provider response: %w", err)
	}

	if !decision.Valid {
		a.audit.Record(ctx, actor, "userFailedAuthentication", "provider denied")
		return authn.Deny(decision.Details), nil
	}

	if decision.Profile != nil {
		actor = decision.Profile.Username
	}
	a.audit.Record(ctx, actor, "userLoggedIn", "")
	return authn.Decision{Success: true, Profile: decision.Profile, Details: decision.Details}, nil
}
