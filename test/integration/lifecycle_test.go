package integration

import (
	"net/http"
	"testing"

	"github.com/wardenauth/warden/pkg/api"
)

// TestKeyLifecycle walks the full key flow: authenticate, issue, verify,
// authorize by key, rotate, and revoke.
func TestKeyLifecycle(t *testing.T) {
	env := newTestEnvironment(t)

	// Password authentication works before any key exists.
	resp := env.getJSON(t, "/authentication", basicAuth("alice", "sekret"))
	requireStatus(t, resp, http.StatusOK)
	auth := decodeJSON[api.AuthResponse](t, resp)
	if !auth.Valid || auth.Profile == nil || auth.Profile.Username != "alice" {
		t.Fatalf("authentication = %+v, want valid alice", auth)
	}

	token := env.issueKey(t, "alice", "sekret")

	// The fresh key verifies and resolves the owning profile.
	resp = env.postJSON(t, "/authn", "", api.VerifyKeyRequest{UUID: token})
	requireStatus(t, resp, http.StatusOK)
	verified := decodeJSON[api.AuthResponse](t, resp)
	if !verified.Valid || verified.Profile == nil || verified.Profile.Username != "alice" {
		t.Fatalf("verification = %+v, want valid alice", verified)
	}

	// The key authorizes without a username; the owner is derived.
	resp, decision := env.authorize(t, api.AuthorizationCheck{APIKey: token, Action: "ingest"})
	requireStatus(t, resp, http.StatusOK)
	if !decision.Authorized || decision.Profile == nil || decision.Profile.Username != "alice" {
		t.Fatalf("decision = %+v, want authorized alice", decision)
	}

	// Issuing again rotates: the old token stops validating.
	rotated := env.issueKey(t, "alice", "sekret")
	if rotated == token {
		t.Fatal("rotation returned the same token")
	}
	resp = env.postJSON(t, "/authn", "", api.VerifyKeyRequest{UUID: token})
	requireStatus(t, resp, http.StatusUnauthorized)
	stale := decodeJSON[api.AuthResponse](t, resp)
	if stale.Valid {
		t.Error("rotated-out token still validates")
	}

	// Revocation removes the live token.
	resp = env.deleteURL(t, "/v2/key/"+rotated, "")
	requireStatus(t, resp, http.StatusOK)
	resp = env.postJSON(t, "/authn", "", api.VerifyKeyRequest{UUID: rotated})
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestGetKeyReturnsExistingWithoutRotation(t *testing.T) {
	env := newTestEnvironment(t)

	token := env.issueKey(t, "alice", "sekret")

	resp := env.getJSON(t, "/v2/key", basicAuth("alice", "sekret"))
	requireStatus(t, resp, http.StatusOK)
	got := decodeJSON[api.KeyResponse](t, resp)
	if got.Token != token {
		t.Errorf("GET /v2/key = %q, want the issued token %q", got.Token, token)
	}
}

func TestGetKeyWithoutIssuedKey(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.getJSON(t, "/v2/key", basicAuth("alice", "sekret"))
	requireStatus(t, resp, http.StatusUnauthorized)
	body := decodeJSON[api.ErrorResponse](t, resp)
	if body.Error == nil || body.Error.Type != api.ErrorTypeAuthenticationFailure {
		t.Errorf("error = %+v, want authentication_failure", body.Error)
	}
}

func TestRevokeUnknownTokenSucceeds(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.deleteURL(t, "/v2/key/no-such-token", "")
	requireStatus(t, resp, http.StatusOK)
}

func TestVerifyUnknownKey(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/authn", "", api.VerifyKeyRequest{UUID: "not-a-key"})
	requireStatus(t, resp, http.StatusUnauthorized)
	got := decodeJSON[api.AuthResponse](t, resp)
	if got.Valid {
		t.Error("unknown key reported valid")
	}
}

// TestAuthorizeIdentityMismatch presents a valid key together with a
// different username. The check fails without reaching policy.
func TestAuthorizeIdentityMismatch(t *testing.T) {
	env := newTestEnvironment(t)

	token := env.issueKey(t, "alice", "sekret")

	resp, decision := env.authorize(t, api.AuthorizationCheck{
		Username: "bob",
		APIKey:   token,
		Action:   "ingest",
	})
	requireStatus(t, resp, http.StatusUnauthorized)
	if decision.Authorized {
		t.Fatal("mismatched identity was authorized")
	}
	if decision.Reason != "identity mismatch" {
		t.Errorf("reason = %q, want %q", decision.Reason, "identity mismatch")
	}
}

// TestAuthorizeKeyOutlivesProfile deletes a user whose key is still live.
// The dangling key must fail closed.
func TestAuthorizeKeyOutlivesProfile(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/user", "", api.CreateUserRequest{
		Username:   "carol",
		Credential: "passw0rd",
		Roles:      []string{"user"},
	})
	requireStatus(t, resp, http.StatusOK)

	token := env.issueKey(t, "carol", "passw0rd")

	resp = env.deleteURL(t, "/user/carol", "")
	requireStatus(t, resp, http.StatusOK)

	resp, decision := env.authorize(t, api.AuthorizationCheck{APIKey: token, Action: "ingest"})
	requireStatus(t, resp, http.StatusUnauthorized)
	if decision.Authorized {
		t.Fatal("dangling key was authorized")
	}
	if decision.Reason != "profile not found" {
		t.Errorf("reason = %q, want %q", decision.Reason, "profile not found")
	}
}
