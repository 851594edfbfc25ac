// Package directory provides the directory-bound password authenticator.
// It attempts a simple bind against an external LDAP directory using the
// principal "uid=<username>,<base DN>"; a successful bind is a successful
// authentication. The certificate flow is not supported.
package directory

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
)

// TestCredential is a pre-shared username/secret pair for integration
// testing. Honored only in non-production deployment spaces.
type TestCredential struct {
	Username string
	Secret   string
}

// Config holds the directory authenticator configuration.
type Config struct {
	// URL is the directory endpoint (e.g., "ldaps://directory.example.com:636").
	URL string

	// BaseDN is appended to "uid=<username>," to form the bind principal.
	BaseDN string

	// Timeout bounds the dial and bind round trips. Default: 10s.
	Timeout time.Duration

	// Space names the deployment space (e.g., "int", "stage", "prod").
	// The test-credential bypass is active only in non-production spaces.
	Space string

	// TestCredentials lists the pre-shared bypass credentials.
	TestCredentials []TestCredential
}

// nonProductionSpaces are the deployment spaces where the test-credential
// bypass may be active.
var nonProductionSpaces = map[string]bool{
	"int":   true,
	"stage": true,
	"test":  true,
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
}

// binder is the slice of an LDAP connection the authenticator needs.
// Narrowed for testability.
type binder interface {
	Bind(username, password string) error
	Close() error
}

// Authenticator binds password credentials against an external directory.
type Authenticator struct {
	config Config
	audit  *audit.Logger
	dial   func(ctx context.Context) (binder, error)
}

// New creates a directory-bound authenticator.
func New(cfg Config, aud *audit.Logger) *Authenticator {
	cfg.applyDefaults()
	a := &Authenticator{config: cfg, audit: aud}
	a.dial = a.dialLDAP
	return a
}

// dialLDAP opens a connection to the configured directory.
func (a *Authenticator) dialLDAP(_ context.Context) (binder, error) {
	conn, err := ldap.DialURL(a.config.URL,
		ldap.DialWithDialer(&net.Dialer{Timeout: a.config.Timeout}))
	if err != nil {
		return nil, err
	}
	conn.SetTimeout(a.config.Timeout)
	return conn, nil
}

// ByPassword authenticates via directory bind. A rejected bind is a denial;
// an unreachable directory is an error. The test-credential bypass, when
// active, short-circuits the bind and is audit-logged distinctly.
func (a *Authenticator) ByPassword(ctx context.Context, username, secret string) (authn.Decision, error) {
	a.audit.Record(ctx, username, "loginAttempt", "directory bind")

	if username == "" || secret == "" {
		return authn.Deny("username and credential are required"), nil
	}

	if a.isApprovedTestUser(username, secret) {
		a.audit.Record(ctx, username, "testUserBypass",
			fmt.Sprintf("pre-shared credential accepted in space %q", a.config.Space))
		return authn.Decision{Success: true, Profile: a.profileFor(username)}, nil
	}

	conn, err := a.dial(ctx)
	if err != nil {
		return authn.Decision{}, fmt.Errorf("dialing directory: %w", err)
	}
	defer conn.Close()

	principal := fmt.Sprintf("uid=%s,%s", username, a.config.BaseDN)
	if err := conn.Bind(principal, secret); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			a.audit.Record(ctx, username, "userFailedAuthentication", "bind rejected")
			return authn.Deny("invalid username or credential"), nil
		}
		return authn.Decision{}, fmt.Errorf("binding %q: %w", principal, err)
	}

	a.audit.Record(ctx, username, "userLoggedIn", "")
	return authn.Decision{Success: true, Profile: a.profileFor(username)}, nil
}

// ByCertificate is not supported by the directory-bound variant.
func (a *Authenticator) ByCertificate(_ context.Context, _ string) (authn.Decision, error) {
	return authn.Decision{}, authn.ErrUnsupportedFlow
}

// isApprovedTestUser reports whether the pair matches a pre-shared test
// credential and the bypass is active in this deployment space.
func (a *Authenticator) isApprovedTestUser(username, secret string) bool {
	if !nonProductionSpaces[a.config.Space] {
		return false
	}
	for _, tc := range a.config.TestCredentials {
		if tc.Username == username && tc.Secret == secret {
			return true
		}
	}
	return false
}

// profileFor builds the minimal identity the directory can attest to.
func (a *Authenticator) profileFor(username string) *api.Profile {
	return &api.Profile{
		Username:          username,
		DistinguishedName: fmt.Sprintf("uid=%s,%s", username, a.config.BaseDN),
	}
}
