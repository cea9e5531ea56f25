package domain

import (
	"context"
	"fmt"
	"net/http"
)

// Permission strings carried in the token's permissions claim.
const (
	PermGetDrinks       = "get:drinks"
	PermGetDrinksDetail = "get:drinks-detail"
	PermPostDrinks      = "post:drinks"
	PermPatchDrinks     = "patch:drinks"
	PermDeleteDrinks    = "delete:drinks"
)

// Claims is the decoded, verified token payload.
type Claims map[string]any

func (c Claims) Subject() string {
	sub, _ := c["sub"].(string)
	return sub
}

// Permissions returns the permissions claim and whether it was present at all.
// A present claim that is not a list of strings yields an empty, present set.
func (c Claims) Permissions() ([]string, bool) {
	raw, ok := c["permissions"]
	if !ok {
		return nil, false
	}
	var out []string
	switch v := raw.(type) {
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, v...)
	}
	return out, true
}

type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (Claims, error)
}

type Authorizer interface {
	Require(ctx context.Context, claims Claims, permission string) error
}

// AuthError is a classified authentication or authorization failure.
type AuthError struct {
	Status      int
	Code        string
	Description string
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAuthError(status int, code, description string) *AuthError {
	return &AuthError{Status: status, Code: code, Description: description}
}

func ErrMissingAuthorizationHeader() *AuthError {
	return newAuthError(http.StatusBadRequest, "authorization_header_missing", "missing authorization header")
}

func ErrMalformedAuthorizationHeader() *AuthError {
	return newAuthError(http.StatusUnauthorized, "invalid_header", "malformed authorization header")
}

func ErrAuthorizationMalformed() *AuthError {
	return newAuthError(http.StatusUnauthorized, "invalid_header", "authorization malformed")
}

func ErrKeyNotFound() *AuthError {
	return newAuthError(http.StatusUnauthorized, "invalid_header", "Unable to find the appropriate key")
}

func ErrTokenExpired() *AuthError {
	return newAuthError(http.StatusUnauthorized, "token_expired", "Token expired")
}

func ErrIncorrectClaims() *AuthError {
	return newAuthError(http.StatusUnauthorized, "invalid_claims", "Incorrect claims. Please, check the audience and issuer")
}

func ErrUnparseableToken() *AuthError {
	return newAuthError(http.StatusBadRequest, "invalid_header", "Unable to parse authentication token")
}

func ErrPermissionsMissing() *AuthError {
	return newAuthError(http.StatusBadRequest, "invalid_claims", "permissions not included in JWT")
}

func ErrPermissionNotFound() *AuthError {
	return newAuthError(http.StatusForbidden, "unauthorized", "Permission not found")
}
