package api

import "time"

// Profile is the stored record for a platform user.
type Profile struct {
	// Username uniquely identifies the profile.
	Username string `json:"username"`

	// DistinguishedName is the directory DN associated with the user.
	DistinguishedName string `json:"distinguishedName,omitempty"`

	// Roles lists the roles granted to the user.
	Roles []string `json:"roles,omitempty"`

	// Credential is the bcrypt hash of the user's secret.
	// Never serialized to callers.
	Credential string `json:"-"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// HasRole reports whether the profile carries the given role.
func (p *Profile) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthResponse is the body returned by the authentication endpoints.
type AuthResponse struct {
	Valid   bool     `json:"valid"`
	Profile *Profile `json:"profile,omitempty"`
	Details string   `json:"details,omitempty"`
}

// AuthzResponse is the body returned by the authorization endpoint.
type AuthzResponse struct {
	Authorized bool     `json:"authorized"`
	Profile    *Profile `json:"profile,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// AuthorizationCheck is the request body for POST /authz. At least one of
// Username or APIKey must be present; the chain resolves them to a single
// concrete username before any policy runs.
type AuthorizationCheck struct {
	Username string `json:"username,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
	Action   string `json:"action"`
}

// KeyResponse carries an issued or retrieved API key.
type KeyResponse struct {
	Token string `json:"token"`
}

// VerifyKeyRequest is the request body for POST /authn.
type VerifyKeyRequest struct {
	UUID string `json:"uuid"`
}

// CreateUserRequest is the request body for POST /user. Credential, when
// present, is the initial plaintext secret; it is hashed before storage.
type CreateUserRequest struct {
	Username          string   `json:"username"`
	DistinguishedName string   `json:"distinguishedName"`
	Credential        string   `json:"credential,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// UpdatePasswordRequest is the request body for POST /updatePassword.
type UpdatePasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// SuccessResponse carries a human-readable confirmation message.
type SuccessResponse struct {
	Message string `json:"message"`
}
