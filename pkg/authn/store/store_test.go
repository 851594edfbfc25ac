package store

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
	"github.com/wardenauth/warden/pkg/storage/memory"
)

func newTestAuth(t *testing.T) (*Authenticator, *memory.Store) {
	t.Helper()

	st := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	st.InsertProfile(context.Background(), &api.Profile{
		Username:   "alice",
		Roles:      []string{"user"},
		Credential: string(hash),
	})

	return New(st, audit.New(nil)), st
}

func TestByPassword_Match(t *testing.T) {
	a, _ := newTestAuth(t)

	d, err := a.ByPassword(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if !d.Success {
		t.Fatalf("decision = %+v, want success", d)
	}
	if d.Profile == nil || d.Profile.Username != "alice" {
		t.Errorf("Profile = %+v, want alice", d.Profile)
	}
}

func TestByPassword_Mismatch(t *testing.T) {
	a, _ := newTestAuth(t)

	d, err := a.ByPassword(context.Background(), "alice", "wrong")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if d.Success || d.Profile != nil {
		t.Errorf("decision = %+v, want denial without profile", d)
	}
}

func TestByPassword_UnknownUser(t *testing.T) {
	a, _ := newTestAuth(t)

	d, err := a.ByPassword(context.Background(), "mallory", "s3cret")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if d.Success {
		t.Errorf("decision = %+v, want denial", d)
	}
}

func TestByCertificate_Unsupported(t *testing.T) {
	a, _ := newTestAuth(t)

	_, err := a.ByCertificate(context.Background(), "CN=alice")
	if !errors.Is(err, authn.ErrUnsupportedFlow) {
		t.Errorf("err = %v, want ErrUnsupportedFlow", err)
	}
}
