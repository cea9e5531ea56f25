package domain

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("unprocessable")
	ErrConflict   = errors.New("conflict")
)

// AsAuthError unwraps err into an *AuthError when it carries one.
func AsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}
