package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"

	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
)

// fakeBinder simulates a directory connection.
type fakeBinder struct {
	bindErr    error
	boundDN    string
	boundCreds string
	closed     bool
}

func (f *fakeBinder) Bind(username, password string) error {
	f.boundDN = username
	f.boundCreds = password
	return f.bindErr
}

func (f *fakeBinder) Close() error {
	f.closed = true
	return nil
}

func newTestAuth(cfg Config, b *fakeBinder, dialErr error) *Authenticator {
	a := New(cfg, audit.New(nil))
	a.dial = func(_ context.Context) (binder, error) {
		if dialErr != nil {
			return nil, dialErr
		}
		return b, nil
	}
	return a
}

func TestByPassword_BindSucceeds(t *testing.T) {
	b := &fakeBinder{}
	a := newTestAuth(Config{BaseDN: "ou=people,dc=example,dc=com"}, b, nil)

	d, err := a.ByPassword(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if !d.Success {
		t.Fatalf("decision = %+v, want success", d)
	}
	if d.Profile.Username != "alice" {
		t.Errorf("Profile.Username = %q", d.Profile.Username)
	}
	if b.boundDN != "uid=alice,ou=people,dc=example,dc=com" {
		t.Errorf("bind principal = %q", b.boundDN)
	}
	if !b.closed {
		t.Error("connection was not closed")
	}
}

func TestByPassword_BindRejected(t *testing.T) {
	b := &fakeBinder{bindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))}
	a := newTestAuth(Config{BaseDN: "dc=example,dc=com"}, b, nil)

	d, err := a.ByPassword(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("rejected bind should not be an error: %v", err)
	}
	if d.Success {
		t.Errorf("decision = %+v, want denial", d)
	}
}

func TestByPassword_DirectoryUnreachable(t *testing.T) {
	a := newTestAuth(Config{}, nil, errors.New("connection refused"))

	_, err := a.ByPassword(context.Background(), "alice", "s3cret")
	if err == nil {
		t.Fatal("unreachable directory should be an error")
	}
}

func TestByPassword_EmptyCredentials(t *testing.T) {
	b := &fakeBinder{}
	a := newTestAuth(Config{}, b, nil)

	d, err := a.ByPassword(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if d.Success {
		t.Error("empty secret must be denied without attempting a bind")
	}
	if b.boundDN != "" {
		t.Error("bind attempted with empty secret")
	}
}

func TestTestUserBypass_NonProductionOnly(t *testing.T) {
	creds := []TestCredential{{Username: "integration", Secret: "pre-shared"}}

	// Active in a non-production space, no bind attempted.
	b := &fakeBinder{bindErr: ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("nope"))}
	a := newTestAuth(Config{Space: "stage", TestCredentials: creds}, b, nil)

	d, err := a.ByPassword(context.Background(), "integration", "pre-shared")
	if err != nil || !d.Success {
		t.Fatalf("bypass in stage: decision = %+v, err = %v", d, err)
	}
	if b.boundDN != "" {
		t.Error("bypass should not reach the directory")
	}

	// Inactive in production: falls through to the (rejecting) bind.
	a = newTestAuth(Config{Space: "prod", TestCredentials: creds}, b, nil)
	d, err = a.ByPassword(context.Background(), "integration", "pre-shared")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if d.Success {
		t.Error("bypass must be inert in production")
	}
}

func TestByCertificate_Unsupported(t *testing.T) {
	a := newTestAuth(Config{}, &fakeBinder{}, nil)

	_, err := a.ByCertificate(context.Background(), "CN=alice")
	if !errors.Is(err, authn.ErrUnsupportedFlow) {
		t.Errorf("err = %v, want ErrUnsupportedFlow", err)
	}
}
