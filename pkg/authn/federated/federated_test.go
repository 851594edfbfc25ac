package federated

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
)

// startProvider runs a fake identity provider that records the request and
// answers with the given response.
func startProvider(t *testing.T, status int, reply api.AuthResponse, got *decisionRequest) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decoding provider request: %v", err)
			}
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestByPassword_ProviderGrants(t *testing.T) {
	var got decisionRequest
	srv := startProvider(t, http.StatusOK, api.AuthResponse{
		Valid:   true,
		Profile: &api.Profile{Username: "alice", Roles: []string{"user"}},
	}, &got)

	a := New(Config{URL: srv.URL, HTTPClient: srv.Client()}, audit.New(nil))

	d, err := a.ByPassword(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("ByPassword: %v", err)
	}
	if !d.Success || d.Profile == nil || d.Profile.Username != "alice" {
		t.Errorf("decision = %+v", d)
	}
	if got.Username != "alice" || got.Credential != "s3cret" {
		t.Errorf("provider saw %+v", got)
	}
}

func TestByCertificate_ProviderGrants(t *testing.T) {
	var got decisionRequest
	srv := startProvider(t, http.StatusOK, api.AuthResponse{
		Valid:   true,
		Profile: &api.Profile{Username: "alice"},
	}, &got)

	a := New(Config{URL: srv.URL, HTTPClient: srv.Client()}, audit.New(nil))

	d, err := a.ByCertificate(context.Background(), "CN=alice,OU=platform")
	if err != nil {
		t.Fatalf("ByCertificate: %v", err)
	}
	if !d.Success {
		t.Errorf("decision = %+v", d)
	}
	if got.Subject != "CN=alice,OU=platform" {
		t.Errorf("provider saw subject %q", got.Subject)
	}
}

func TestDecide_ProviderDenies(t *testing.T) {
	srv := startProvider(t, http.StatusOK, api.AuthResponse{
		Valid:   false,
		Details: "account locked",
	}, nil)

	a := New(Config{URL: srv.URL, HTTPClient: srv.Client()}, audit.New(nil))

	d, err := a.ByPassword(context.Background(), "alice", "s3cret")
	if err != nil {
		t.Fatalf("denial must not be an error: %v", err)
	}
	if d.Success {
		t.Errorf("decision = %+v, want denial", d)
	}
	if d.Details != "account locked" {
		t.Errorf("Details = %q, want provider details verbatim", d.Details)
	}
}

func TestDecide_ProviderFault(t *testing.T) {
	srv := startProvider(t, http.StatusBadGateway, api.AuthResponse{}, nil)

	a := New(Config{URL: srv.URL, HTTPClient: srv.Client()}, audit.New(nil))

	if _, err := a.ByPassword(context.Background(), "alice", "s3cret"); err == nil {
		t.Fatal("5xx from provider should be an infrastructure error")
	}
}

func TestDecide_ProviderUnreachable(t *testing.T) {
	srv := startProvider(t, http.StatusOK, api.AuthResponse{}, nil)
	url := srv.URL
	srv.Close()

	a := New(Config{URL: url}, audit.New(nil))

	if _, err := a.ByPassword(context.Background(), "alice", "s3cret"); err == nil {
		t.Fatal("unreachable provider should be an infrastructure error")
	}
}
