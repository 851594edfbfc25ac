package integration

import (
	"net/http"
	"testing"

	"github.com/wardenauth/warden/pkg/api"
)

// TestUserLifecycle creates a user, authenticates as them, rotates the
// password, and finally deletes the account.
func TestUserLifecycle(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/user", basicAuth("alice", "sekret"), api.CreateUserRequest{
		Username:          "carol",
		DistinguishedName: "uid=carol,ou=people,dc=example,dc=org",
		Credential:        "initial",
		Roles:             []string{"user"},
	})
	requireStatus(t, resp, http.StatusOK)

	resp = env.getJSON(t, "/authentication", basicAuth("carol", "initial"))
	requireStatus(t, resp, http.StatusOK)
	auth := decodeJSON[api.AuthResponse](t, resp)
	if !auth.Valid || auth.Profile == nil || auth.Profile.Username != "carol" {
		t.Fatalf("authentication = %+v, want valid carol", auth)
	}
	if !auth.Profile.HasRole("user") {
		t.Errorf("carol roles = %v, want user", auth.Profile.Roles)
	}

	resp = env.postJSON(t, "/updatePassword", basicAuth("carol", "initial"),
		api.UpdatePasswordRequest{NewPassword: "rotated"})
	requireStatus(t, resp, http.StatusOK)

	resp = env.getJSON(t, "/authentication", basicAuth("carol", "initial"))
	requireStatus(t, resp, http.StatusUnauthorized)

	resp = env.getJSON(t, "/authentication", basicAuth("carol", "rotated"))
	requireStatus(t, resp, http.StatusOK)

	resp = env.deleteURL(t, "/user/carol", "")
	requireStatus(t, resp, http.StatusOK)

	resp = env.getJSON(t, "/authentication", basicAuth("carol", "rotated"))
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestCreateUserDuplicate(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/user", "", api.CreateUserRequest{Username: "alice"})
	requireStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON[api.ErrorResponse](t, resp)
	if body.Error == nil || body.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error = %+v, want invalid_request", body.Error)
	}
}

func TestCreateUserMissingUsername(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/user", "", api.CreateUserRequest{DistinguishedName: "uid=x"})
	requireStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON[api.ErrorResponse](t, resp)
	if body.Error == nil || body.Error.Param != "username" {
		t.Errorf("error = %+v, want param username", body.Error)
	}
}

func TestUpdatePasswordRequiresAuthentication(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.postJSON(t, "/updatePassword", "",
		api.UpdatePasswordRequest{NewPassword: "whatever"})
	requireStatus(t, resp, http.StatusUnauthorized)
}

func TestDeleteUnknownUser(t *testing.T) {
	env := newTestEnvironment(t)

	resp := env.deleteURL(t, "/user/nobody", "")
	requireStatus(t, resp, http.StatusBadRequest)
	body := decodeJSON[api.ErrorResponse](t, resp)
	if body.Error == nil || body.Error.Type != api.ErrorTypeInvalidRequest {
		t.Errorf("error = %+v, want invalid_request", body.Error)
	}
}
