// Package credential decodes the transport-level Authorization header into
// either a certificate-subject claim or a username/secret pair.
package credential

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ErrMalformed is returned when the header is absent or does not decode to
// a recognized credential shape. It signals a fail-closed authentication
// failure, never a server fault.
var ErrMalformed = errors.New("malformed credential header")

// Kind distinguishes the two credential flows.
type Kind int

const (
	// KindCertificate is a certificate-subject claim (PKI flow).
	KindCertificate Kind = iota

	// KindPassword is a username/secret pair.
	KindPassword
)

// Claim is a decoded credential.
type Claim struct {
	Kind Kind

	// Subject is set for KindCertificate.
	Subject string

	// Username and Secret are set for KindPassword.
	Username string
	Secret   string
}

// Decode parses an Authorization header value. The header must be
// "<scheme> <base64-payload>"; the decoded payload is split on ":".
// One part is a certificate subject, two parts are username and secret.
// Any other shape returns ErrMalformed.
//
// The colon-count rule is the legacy wire contract: a secret containing a
// colon cannot be expressed. Kept for compatibility with existing callers.
func Decode(header string) (Claim, error) {
	if header == "" {
		return Claim{}, ErrMalformed
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return Claim{}, ErrMalformed
	}

	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return Claim{}, ErrMalformed
	}

	fields := strings.Split(string(decoded), ":")
	switch len(fields) {
	case 1:
		if fields[0] == "" {
			return Claim{}, ErrMalformed
		}
		return Claim{Kind: KindCertificate, Subject: fields[0]}, nil
	case 2:
		return Claim{Kind: KindPassword, Username: fields[0], Secret: fields[1]}, nil
	default:
		return Claim{}, ErrMalformed
	}
}
