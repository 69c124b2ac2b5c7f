// Package identity derives the current user from the session access token.
//
// The panel renders fine without a valid token; every decode failure maps
// to an explicit non-fatal status so callers can branch instead of relying
// on suppressed errors.
package identity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Status classifies the outcome of decoding an access token.
type Status int

const (
	// StatusNone means no token was supplied.
	StatusNone Status = iota
	// StatusMalformed means the token did not parse as a signed token structure.
	StatusMalformed
	// StatusValid means the token parsed and carried a user identifier claim.
	StatusValid
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusMalformed:
		return "malformed"
	case StatusValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Claims is the result of decoding an access token.
type Claims struct {
	Status Status
	UserID string
}

// Decode extracts the user identifier claim from an access token.
//
// The token is structurally parsed, not verified: the panel only needs the
// claim for display, and the remote API re-validates the token on every
// call the rendering surface makes. Signature checking here would require
// distributing the signing key to every editor install.
func Decode(accessToken string) Claims {
	if accessToken == "" {
		return Claims{Status: StatusNone}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return Claims{Status: StatusMalformed}
	}

	userID := stringClaim(claims, "sub")
	if userID == "" {
		userID = stringClaim(claims, "user_id")
	}
	if userID == "" {
		return Claims{Status: StatusMalformed}
	}

	return Claims{Status: StatusValid, UserID: userID}
}

// CurrentUserID resolves the user id for rendering: empty string for
// anything other than a valid token.
func CurrentUserID(accessToken string) string {
	c := Decode(accessToken)
	if c.Status != StatusValid {
		return ""
	}
	return c.UserID
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
