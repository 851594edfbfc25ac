// Package http serves the warden identity decision API over HTTP.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenauth/warden/pkg/api"
	"github.com/wardenauth/warden/pkg/audit"
	"github.com/wardenauth/warden/pkg/authn"
	"github.com/wardenauth/warden/pkg/authz"
	"github.com/wardenauth/warden/pkg/credential"
	"github.com/wardenauth/warden/pkg/keys"
	"github.com/wardenauth/warden/pkg/observability"
	"github.com/wardenauth/warden/pkg/storage"
	"github.com/wardenauth/warden/pkg/transport"
)

// Adapter routes identity decision requests to the authenticator, the
// authorization chain, and the key registry, and serializes the results.
type Adapter struct {
	authenticator authn.Authenticator
	chain         *authz.Chain
	registry      *keys.Registry
	store         storage.IdentityStore
	audit         *audit.Logger
	mux           *http.ServeMux
	config        Config
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize int64

	// ProviderName labels authentication metrics with the active variant.
	ProviderName string

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:  1 << 20, // 1 MB
		ProviderName: "unknown",
		MetricsPath:  "/metrics",
	}
}

// NewAdapter creates an HTTP adapter over the given decision components.
func NewAdapter(authenticator authn.Authenticator, chain *authz.Chain, registry *keys.Registry, st storage.IdentityStore, aud *audit.Logger, cfg Config) *Adapter {
	if aud == nil {
		aud = audit.New(nil)
	}

	a := &Adapter{
		authenticator: authenticator,
		chain:         chain,
		registry:      registry,
		store:         st,
		audit:         aud,
		mux:           http.NewServeMux(),
		config:        cfg,
	}

	a.mux.HandleFunc("GET /authentication", a.handleAuthenticate)
	a.mux.HandleFunc("POST /authn", a.handleVerifyKey)
	a.mux.HandleFunc("POST /authz", a.handleAuthorize)
	a.mux.HandleFunc("GET /key", a.handleIssueKey)
	a.mux.HandleFunc("POST /v2/key", a.handleIssueKey)
	a.mux.HandleFunc("GET /v2/key", a.handleGetKey)
	a.mux.HandleFunc("DELETE /v2/key/{token}", a.handleRevokeKey)
	a.mux.HandleFunc("POST /user", a.handleCreateUser)
	a.mux.HandleFunc("POST /updatePassword", a.handleUpdatePassword)
	a.mux.HandleFunc("DELETE /user/{username}", a.handleDeleteUser)
	a.mux.HandleFunc("GET /healthz", a.handleHealth)

	if cfg.MetricsPath != "" {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest.
func (a *Adapter) Handler() http.Handler {
	return a.mux
}

// authenticate resolves the Authorization header through the configured
// authenticator. A malformed header, an unsupported flow, and a rejected
// credential all fail closed with a 401-class error; only backend faults
// surface as server errors.
func (a *Adapter) authenticate(r *http.Request) (*api.Profile, *api.APIError) {
	provider := a.config.ProviderName

	claim, err := credential.Decode(r.Header.Get("Authorization"))
	if err != nil {
		observability.AuthAttemptsTotal.WithLabelValues(provider, "malformed").Inc()
		a.audit.Record(r.Context(), audit.UnknownActor, "authenticationFailed", "malformed credential header")
		return nil, api.NewAuthenticationError("malformed or missing credential")
	}

	var decision authn.Decision
	switch claim.Kind {
	case credential.KindPassword:
		decision, err = a.authenticator.ByPassword(r.Context(), claim.Username, claim.Secret)
	case credential.KindCertificate:
		decision, err = a.authenticator.ByCertificate(r.Context(), claim.Subject)
	}

	actor := claim.Username
	if actor == "" {
		actor = claim.Subject
	}

	if err != nil {
		if errors.Is(err, authn.ErrUnsupportedFlow) {
			observability.AuthAttemptsTotal.WithLabelValues(provider, "unsupported").Inc()
			a.audit.Record(r.Context(), actor, "authenticationFailed", "credential flow not supported")
			return nil, api.NewAuthenticationError("credential flow not supported by this deployment")
		}
		observability.AuthAttemptsTotal.WithLabelValues(provider, "fault").Inc()
		return nil, api.NewServerError("authentication backend unavailable: " + proximateCause(err))
	}

	if !decision.Success {
		observability.AuthAttemptsTotal.WithLabelValues(provider, "denied").Inc()
		a.audit.Record(r.Context(), actor, "authenticationFailed", decision.Details)
		return nil, api.NewAuthenticationError(decision.Details)
	}

	observability.AuthAttemptsTotal.WithLabelValues(provider, "success").Inc()
	a.audit.Record(r.Context(), decision.Profile.Username, "userAuthenticated", "")
	return decision.Profile, nil
}

// handleAuthenticate handles GET /authentication.
func (a *Adapter) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	profile, apiErr := a.authenticate(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}
	writeJSON(w, api.AuthResponse{Valid: true, Profile: profile})
}

// handleVerifyKey handles POST /authn: validate an API key and resolve
// its owner's profile. An unknown key and a dangling key both yield an
// invalid verdict, never an error.
func (a *Adapter) handleVerifyKey(w http.ResponseWriter, r *http.Request) {
	var req api.VerifyKeyRequest
	if apiErr := a.decodeBody(w, r, &req); apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}
	if req.UUID == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("uuid", "uuid is required"),
			http.StatusBadRequest,
		)
		return
	}

	profile, err := a.store.FindProfileByKey(r.Context(), req.UUID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			a.audit.Record(r.Context(), audit.UnknownActor, "apiKeyRejected", "unknown or dangling key")
			writeJSONStatus(w, http.StatusUnauthorized, api.AuthResponse{Valid: false, Details: "invalid api key"})
			return
		}
		transport.WriteAPIError(w, api.NewServerError("key lookup failed: "+proximateCause(err)))
		return
	}

	a.audit.Record(r.Context(), profile.Username, "apiKeyVerified", "")
	writeJSON(w, api.AuthResponse{Valid: true, Profile: profile})
}

// handleAuthorize handles POST /authz.
func (a *Adapter) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var check api.AuthorizationCheck
	if apiErr := a.decodeBody(w, r, &check); apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}

	result, err := a.chain.Check(r.Context(), check)
	if err != nil {
		observability.AuthzDecisionsTotal.WithLabelValues("fault", "").Inc()
		transport.WriteAPIError(w, api.NewServerError("authorization check failed: "+proximateCause(err)))
		return
	}

	if !result.Authorized {
		observability.AuthzDecisionsTotal.WithLabelValues("denied", reasonLabel(result.Reason)).Inc()
		writeJSONStatus(w, http.StatusUnauthorized, api.AuthzResponse{
			Authorized: false,
			Reason:     result.Reason,
		})
		return
	}

	observability.AuthzDecisionsTotal.WithLabelValues("allowed", "").Inc()
	writeJSON(w, api.AuthzResponse{Authorized: true, Profile: result.Profile})
}

// handleIssueKey handles GET /key and POST /v2/key: authenticate, then
// issue a fresh key, rotating any previous one.
func (a *Adapter) handleIssueKey(w http.ResponseWriter, r *http.Request) {
	profile, apiErr := a.authenticate(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	ctx := audit.SetActor(r.Context(), profile.Username)
	token, err := a.registry.Issue(ctx, profile.Username)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("key issuance failed: "+proximateCause(err)))
		return
	}

	observability.KeysIssuedTotal.Inc()
	writeJSON(w, api.KeyResponse{Token: token})
}

// handleGetKey handles GET /v2/key: return the caller's existing key
// without issuing a new one.
func (a *Adapter) handleGetKey(w http.ResponseWriter, r *http.Request) {
	profile, apiErr := a.authenticate(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	token, err := a.registry.KeyFor(r.Context(), profile.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewAuthenticationError("no api key issued for this identity"))
			return
		}
		transport.WriteAPIError(w, api.NewServerError("key lookup failed: "+proximateCause(err)))
		return
	}

	writeJSON(w, api.KeyResponse{Token: token})
}

// handleRevokeKey handles DELETE /v2/key/{token}. Revoking an unknown
// token succeeds.
func (a *Adapter) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	if err := a.registry.Revoke(r.Context(), token); err != nil {
		transport.WriteAPIError(w, api.NewServerError("key revocation failed: "+proximateCause(err)))
		return
	}

	writeJSON(w, api.SuccessResponse{Message: "api key revoked"})
}

// handleCreateUser handles POST /user.
func (a *Adapter) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if apiErr := a.decodeBody(w, r, &req); apiErr != nil {
		transport.WriteErrorResponse(w, apiErr, http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("username", "username is required"),
			http.StatusBadRequest,
		)
		return
	}

	now := time.Now().UTC()
	profile := &api.Profile{
		Username:          req.Username,
		DistinguishedName: req.DistinguishedName,
		Roles:             req.Roles,
		CreatedBy:         creatorOf(r),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if req.Credential != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Credential), bcrypt.DefaultCost)
		if err != nil {
			transport.WriteAPIError(w, api.NewServerError("credential hashing failed"))
			return
		}
		profile.Credential = string(hash)
	}

	if err := a.store.InsertProfile(r.Context(), profile); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("username", fmt.Sprintf("user %q already exists", req.Username)),
				http.StatusBadRequest,
			)
			return
		}
		transport.WriteAPIError(w, api.NewServerError("user creation failed: "+proximateCause(err)))
		return
	}

	a.audit.Record(r.Context(), profile.CreatedBy, "userCreated", "username="+req.Username)
	writeJSON(w, api.SuccessResponse{Message: fmt.Sprintf("user %q created", req.Username)})
}

// handleUpdatePassword handles POST /updatePassword: authenticate the
// caller, then replace their stored credential hash.
func (a *Adapter) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	identity, apiErr := a.authenticate(r)
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	var req api.UpdatePasswordRequest
	if decodeErr := a.decodeBody(w, r, &req); decodeErr != nil {
		transport.WriteErrorResponse(w, decodeErr, http.StatusBadRequest)
		return
	}
	if req.NewPassword == "" {
		transport.WriteErrorResponse(w,
			api.NewInvalidRequestError("newPassword", "newPassword is required"),
			http.StatusBadRequest,
		)
		return
	}

	// The authenticator may return a minimal profile; update the stored one.
	profile, err := a.store.FindProfileByUsername(r.Context(), identity.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteAPIError(w, api.NewAuthenticationError("no stored profile for this identity"))
			return
		}
		transport.WriteAPIError(w, api.NewServerError("profile lookup failed: "+proximateCause(err)))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		transport.WriteAPIError(w, api.NewServerError("credential hashing failed"))
		return
	}
	profile.Credential = string(hash)
	profile.UpdatedAt = time.Now().UTC()

	if err := a.store.UpdateProfile(r.Context(), profile); err != nil {
		transport.WriteAPIError(w, api.NewServerError("password update failed: "+proximateCause(err)))
		return
	}

	a.audit.Record(r.Context(), profile.Username, "passwordUpdated", "")
	writeJSON(w, api.SuccessResponse{Message: "password updated"})
}

// handleDeleteUser handles DELETE /user/{username}.
func (a *Adapter) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	if err := a.store.DeleteProfile(r.Context(), username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteErrorResponse(w,
				api.NewInvalidRequestError("username", fmt.Sprintf("user %q does not exist", username)),
				http.StatusBadRequest,
			)
			return
		}
		transport.WriteAPIError(w, api.NewServerError("user deletion failed: "+proximateCause(err)))
		return
	}

	a.audit.Record(r.Context(), audit.ActorFromContext(r.Context()), "userDeleted", "username="+username)
	writeJSON(w, api.SuccessResponse{Message: fmt.Sprintf("user %q deleted", username)})
}

// handleHealth handles GET /healthz.
func (a *Adapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.HealthCheck(r.Context()); err != nil {
		transport.WriteErrorResponse(w,
			api.NewServerError("store unreachable: "+proximateCause(err)),
			http.StatusServiceUnavailable,
		)
		return
	}
	writeJSON(w, api.SuccessResponse{Message: "ok"})
}

// decodeBody decodes a JSON request body with a size limit. Returns an
// invalid-request error on oversized bodies, bad content types, and
// malformed JSON.
func (a *Adapter) decodeBody(w http.ResponseWriter, r *http.Request, dst any) *api.APIError {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return api.NewInvalidRequestError("content_type", "Content-Type must be application/json")
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return api.NewInvalidRequestError("body", fmt.Sprintf("request body too large (max %d bytes)", a.config.MaxBodySize))
		}
		return api.NewInvalidRequestError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// creatorOf resolves who is creating a resource: the credential in the
// Authorization header when one is present and decodable, otherwise the
// audit fallback actor.
func creatorOf(r *http.Request) string {
	claim, err := credential.Decode(r.Header.Get("Authorization"))
	if err != nil {
		return audit.UnknownActor
	}
	if claim.Username != "" {
		return claim.Username
	}
	return claim.Subject
}

// reasonLabel bounds metric label cardinality by truncating dynamic
// reason suffixes like quota counts.
func reasonLabel(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}

// proximateCause returns the innermost error message, keeping wrapped
// internal detail out of responses.
func proximateCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
